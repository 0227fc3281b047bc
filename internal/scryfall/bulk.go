package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// SaveBulkData writes bulk entries to path as a JSON array, creating parent
// directories as needed.
func SaveBulkData(path string, items []json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create bulk data directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bulk data file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(items); err != nil {
		f.Close()
		return fmt.Errorf("failed to write bulk data: %w", err)
	}
	return f.Close()
}

// ReadBulkFile decodes a bulk data file saved by SaveBulkData (or
// downloaded from Scryfall directly).
func ReadBulkFile(path string) ([]Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bulk data: %w", err)
	}
	defer f.Close()

	var cards []Card
	if err := json.NewDecoder(f).Decode(&cards); err != nil {
		return nil, fmt.Errorf("failed to decode bulk data %s: %w", path, err)
	}
	return cards, nil
}

// PullOptions controls Pull.
type PullOptions struct {
	BulkType     BulkDataType
	BulkDataPath string
	ImageDir     string
	SkipImages   bool
	Download     DownloadOptions
}

// PullResult is what Pull fetched.
type PullResult struct {
	Cards  []Card
	Images DownloadStats
}

// Pull downloads the latest bulk file, caches it at BulkDataPath and, unless
// SkipImages is set, saves every card image into ImageDir. Caching and image
// download run concurrently.
func (c *Client) Pull(ctx context.Context, opts PullOptions) (*PullResult, error) {
	bulkType := opts.BulkType
	if bulkType == "" {
		bulkType = BulkUniqueArtwork
	}

	items, err := c.BulkData(ctx, bulkType)
	if err != nil {
		return nil, err
	}
	cards, err := ParseCards(items)
	if err != nil {
		return nil, err
	}
	result := &PullResult{Cards: cards}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.logger.Info("saving bulk data", "path", opts.BulkDataPath, "cards", len(items))
		return SaveBulkData(opts.BulkDataPath, items)
	})
	if !opts.SkipImages {
		g.Go(func() error {
			stats, err := NewDownloader(c, opts.ImageDir).SaveImages(gctx, cards, opts.Download)
			result.Images = stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("pull finished",
		"cards", len(cards),
		"downloaded", result.Images.Downloaded,
		"existing", result.Images.Existing,
		"skipped", result.Images.Skipped)
	return result, nil
}
