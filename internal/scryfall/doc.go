// Package scryfall fetches card reference data from the Scryfall API.
//
// Scryfall publishes its whole catalogue as daily bulk files. Client.BulkData
// looks up the download link for a bulk type and fetches it; SaveBulkData and
// ReadBulkFile cache it on disk. Downloader.SaveImages then fetches one image
// per card with bounded concurrency.
//
// Every request goes through a shared rate limiter and carries the
// User-Agent and Accept headers Scryfall requires. Network errors, 429 and 5xx
// responses are retried with exponential backoff; other non-2xx responses
// fail immediately with a *StatusError.
package scryfall
