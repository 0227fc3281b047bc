package scryfall

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of concurrent image downloads.
const DefaultWorkers = 8

// DownloadOptions controls SaveImages.
type DownloadOptions struct {
	// Size selects the image version. Defaults to ImageSmall.
	Size ImageType

	// Limit caps how many bulk entries are considered, skipped layouts
	// included. Zero means no limit.
	Limit int

	// Overwrite re-downloads images that already exist on disk.
	Overwrite bool

	// Workers bounds concurrent downloads. Defaults to DefaultWorkers.
	Workers int
}

// DownloadStats summarises a SaveImages run.
type DownloadStats struct {
	Downloaded int `json:"downloaded"`
	Existing   int `json:"existing"`
	Skipped    int `json:"skipped"`
}

// Downloader saves card images into a directory.
type Downloader struct {
	client *Client
	dir    string
}

// NewDownloader returns a downloader writing into dir.
func NewDownloader(client *Client, dir string) *Downloader {
	return &Downloader{client: client, dir: dir}
}

type imageJob struct {
	uri  string
	path string
}

// SaveImages downloads each card's image to <dir>/<id>.jpg (.png for
// ImagePNG). Art series cards are skipped. A card with no usable image URI
// aborts the run before any download starts.
func (d *Downloader) SaveImages(ctx context.Context, cards []Card, opts DownloadOptions) (DownloadStats, error) {
	var stats DownloadStats

	size := opts.Size
	if size == "" {
		size = ImageSmall
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return stats, fmt.Errorf("failed to create image directory: %w", err)
	}

	var jobs []imageJob
	for i := range cards {
		if opts.Limit > 0 && i >= opts.Limit {
			d.client.logger.Info("image pull limit reached", "limit", opts.Limit)
			break
		}
		card := &cards[i]
		if card.Layout == LayoutArtSeries {
			stats.Skipped++
			continue
		}
		uri, err := card.ImageURI(size)
		if err != nil {
			return stats, err
		}
		jobs = append(jobs, imageJob{
			uri:  uri,
			path: filepath.Join(d.dir, ImageFileName(card.ID, size)),
		})
	}

	var downloaded, existing atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			fetched, err := d.save(ctx, job, opts.Overwrite)
			if err != nil {
				return err
			}
			if fetched {
				downloaded.Add(1)
			} else {
				existing.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Downloaded = int(downloaded.Load())
	stats.Existing = int(existing.Load())
	return stats, err
}

// save writes one image, reporting whether it was fetched.
func (d *Downloader) save(ctx context.Context, job imageJob, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(job.path); err == nil {
			d.client.logger.Debug("image exists, skipping", "path", job.path)
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}

	d.client.logger.Debug("downloading image", "uri", job.uri)
	data, err := d.client.get(ctx, job.uri)
	if err != nil {
		return false, fmt.Errorf("failed to download image: %w", err)
	}

	// Existing files are always complete images.
	tmp := job.path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp, job.path); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("failed to write image: %w", err)
	}
	return true, nil
}
