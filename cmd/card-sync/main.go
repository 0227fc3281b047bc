// Command card-sync pulls the Scryfall catalogue, downloads card images and
// loads the cards into the SQLite database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ridge/must/v2"
	"golang.org/x/time/rate"

	"github.com/ironsheep/card-scanner/internal/config"
	"github.com/ironsheep/card-scanner/internal/logging"
	"github.com/ironsheep/card-scanner/internal/scryfall"
	"github.com/ironsheep/card-scanner/internal/store"
)

type syncOptions struct {
	// Offline loads the cached bulk file instead of calling Scryfall.
	Offline    bool
	SkipImages bool
}

func main() {
	cfg := must.OK1(config.Load())

	var (
		opts      syncOptions
		bulkType  = string(cfg.BulkDataType)
		imageSize = string(cfg.ImageSize)
	)
	flag.StringVar(&cfg.DBURL, "db-url", cfg.DBURL, "SQLite database file")
	flag.StringVar(&cfg.BulkDataPath, "bulk-data-path", cfg.BulkDataPath, "where the bulk JSON is cached")
	flag.StringVar(&cfg.ImageDataDir, "image-data-dir", cfg.ImageDataDir, "directory for card images")
	flag.StringVar(&bulkType, "bulk-data-type", bulkType, "Scryfall bulk data type")
	flag.StringVar(&imageSize, "image-size", imageSize, "Scryfall image size")
	flag.IntVar(&cfg.ImagePullLimit, "image-pull-limit", cfg.ImagePullLimit, "stop after this many cards (0 for all)")
	flag.BoolVar(&cfg.OverwriteExistingImages, "overwrite-existing-images", cfg.OverwriteExistingImages, "download images that already exist")
	flag.BoolVar(&opts.SkipImages, "skip-images", false, "do not download images")
	flag.BoolVar(&opts.Offline, "skip-download", false, "populate from the cached bulk file without calling Scryfall")
	flag.Parse()

	cfg.BulkDataType = must.OK1(scryfall.ParseBulkDataType(bulkType))
	cfg.ImageSize = must.OK1(scryfall.ParseImageType(imageSize))

	logger := logging.New(os.Stderr, must.OK1(logging.ParseLevel(cfg.LogLevel)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := run(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("sync failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("%d new cards\n", n)
}

// run fetches (or reads) the catalogue and inserts it, returning the number
// of newly stored cards.
func run(ctx context.Context, cfg *config.Config, opts syncOptions, logger *slog.Logger) (int, error) {
	var cards []scryfall.Card
	if opts.Offline {
		var err error
		if cards, err = scryfall.ReadBulkFile(cfg.BulkDataPath); err != nil {
			return 0, err
		}
		logger.Info("loaded cached bulk data", "path", cfg.BulkDataPath, "cards", len(cards))
	} else {
		client := scryfall.NewClient(
			scryfall.WithBaseURL(cfg.ScryfallBaseURL),
			scryfall.WithRateLimit(rate.Limit(cfg.ScryfallRateLimit), 1),
			scryfall.WithLogger(logger),
		)
		result, err := client.Pull(ctx, scryfall.PullOptions{
			BulkType:     cfg.BulkDataType,
			BulkDataPath: cfg.BulkDataPath,
			ImageDir:     cfg.ImageDataDir,
			SkipImages:   opts.SkipImages,
			Download:     cfg.DownloadOptions(),
		})
		if err != nil {
			return 0, err
		}
		cards = result.Cards
	}

	db, err := store.Open(cfg.DBURL)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	n, err := db.PopulateCards(ctx, cards, cfg.ImageDataDir)
	if err != nil {
		return n, err
	}
	logger.Info("populated cards", "new", n, "total", len(cards))
	return n, nil
}
