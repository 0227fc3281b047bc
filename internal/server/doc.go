// Package server implements the MCP (Model Context Protocol) server for card
// edge detection.
//
// Protocol handling (initialize, tools/list, tools/call, ping) comes from
// the MCP Go SDK. The server speaks newline-delimited JSON-RPC 2.0 over
// stdio; Serve runs the same session over any reader and writer.
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load a photo and report size, format and colour model
//   - image_dimensions: Get width and height
//
// Card Detection:
//   - card_detect_edge: Bounding rectangle, corners and area of the card
//   - card_blackout: Photo with everything outside the card painted black
//   - card_crop: Photo cropped to the card, optionally scaled
//   - card_debug_overlay: Contour and bounds drawn over the photo
//
// Every card_* tool accepts threshold and require_frame_span to override
// the detection.Options the server was created with.
//
// # Image Caching
//
// Loaded photos are cached by path for the lifetime of the process, so
// repeated calls on the same scan decode it once.
//
// # Error Handling
//
// Tool failures are returned as results with isError set and the Go error
// string as text content. Malformed arguments, out-of-range thresholds and
// unknown tools yield JSON-RPC error -32602.
//
// # Usage
//
//	srv := server.New(server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
