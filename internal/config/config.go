// Package config loads settings from the environment and an optional .env
// file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ironsheep/card-scanner/internal/detection"
	"github.com/ironsheep/card-scanner/internal/scryfall"
)

// Config holds every setting shared by the card-scanner commands.
type Config struct {
	// DBURL is the SQLite database file.
	DBURL string

	BulkDataPath            string
	ImageDataDir            string
	BulkDataType            scryfall.BulkDataType
	ImageSize               scryfall.ImageType
	ImagePullLimit          int
	OverwriteExistingImages bool
	DownloadWorkers         int

	ScryfallBaseURL   string
	ScryfallRateLimit float64

	WebAddr string

	// CardThreshold and CardTracer configure card edge detection.
	CardThreshold int
	CardTracer    string

	LogLevel string
}

// Load reads .env files (".env" when none are given) into the process
// environment and builds a Config. Missing files are ignored; variables
// already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	e := &envReader{}

	cfg := &Config{
		DBURL:                   getEnv("DB_URL", "card-scanner.db"),
		BulkDataPath:            getEnv("BULK_DATA_PATH", "data/bulk_data.json"),
		ImageDataDir:            getEnv("IMAGE_DATA_DIR", "data/image_data"),
		ImagePullLimit:          e.int("IMAGE_PULL_LIMIT", 0),
		OverwriteExistingImages: e.bool("OVERWRITE_EXISTING_IMAGES", false),
		DownloadWorkers:         e.int("DOWNLOAD_WORKERS", scryfall.DefaultWorkers),
		ScryfallBaseURL:         getEnv("SCRYFALL_BASE_URL", scryfall.DefaultBaseURL),
		ScryfallRateLimit:       e.float("SCRYFALL_RATE_LIMIT", float64(scryfall.DefaultRateLimit)),
		WebAddr:                 getEnv("WEB_ADDR", ":8080"),
		CardThreshold:           e.int("CARD_THRESHOLD", detection.DefaultThreshold),
		CardTracer:              getEnv("CARD_TRACER", detection.TracerSuzuki),
		LogLevel:                getEnv("CARD_SCANNER_LOG_LEVEL", "info"),
	}

	bulkType, err := scryfall.ParseBulkDataType(getEnv("BULK_DATA_TYPE", string(scryfall.BulkUniqueArtwork)))
	e.add("BULK_DATA_TYPE", err)
	cfg.BulkDataType = bulkType

	size, err := scryfall.ParseImageType(getEnv("IMAGE_SIZE", string(scryfall.ImageSmall)))
	e.add("IMAGE_SIZE", err)
	cfg.ImageSize = size

	if cfg.CardThreshold < 1 || cfg.CardThreshold > 255 {
		e.add("CARD_THRESHOLD", fmt.Errorf("must be between 1 and 255, got %d", cfg.CardThreshold))
	}
	if cfg.ImagePullLimit < 0 {
		e.add("IMAGE_PULL_LIMIT", fmt.Errorf("must not be negative, got %d", cfg.ImagePullLimit))
	}
	if cfg.DownloadWorkers < 1 {
		e.add("DOWNLOAD_WORKERS", fmt.Errorf("must be positive, got %d", cfg.DownloadWorkers))
	}
	if cfg.ScryfallRateLimit <= 0 {
		e.add("SCRYFALL_RATE_LIMIT", fmt.Errorf("must be positive, got %g", cfg.ScryfallRateLimit))
	}

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DetectionOptions returns the detector settings selected by CardThreshold
// and CardTracer.
func (c *Config) DetectionOptions(logger *slog.Logger) (detection.Options, error) {
	tracer, err := detection.NewTracer(c.CardTracer)
	if err != nil {
		return detection.Options{}, fmt.Errorf("CARD_TRACER: %w", err)
	}

	opts := detection.DefaultOptions()
	opts.Threshold = uint8(c.CardThreshold)
	opts.Tracer = tracer
	opts.Logger = logger
	return opts, nil
}

// DownloadOptions returns the image download settings.
func (c *Config) DownloadOptions() scryfall.DownloadOptions {
	return scryfall.DownloadOptions{
		Size:      c.ImageSize,
		Limit:     c.ImagePullLimit,
		Overwrite: c.OverwriteExistingImages,
		Workers:   c.DownloadWorkers,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables, collecting every malformed value.
type envReader struct {
	errs []error
}

func (e *envReader) add(key string, err error) {
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
	}
}

func (e *envReader) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.add(key, fmt.Errorf("must be an integer, got %q", value))
		return defaultValue
	}
	return n
}

func (e *envReader) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.add(key, fmt.Errorf("must be a number, got %q", value))
		return defaultValue
	}
	return f
}

func (e *envReader) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.add(key, fmt.Errorf("must be a boolean, got %q", value))
		return defaultValue
	}
	return b
}
