package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/card-scanner/internal/config"
	"github.com/ironsheep/card-scanner/internal/logging"
	"github.com/ironsheep/card-scanner/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("card-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("card-mcp - MCP server for trading card edge detection")
			fmt.Println()
			fmt.Println("Usage: card-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  CARD_SCANNER_LOG_LEVEL=debug  Log level (debug, info, warn, error)")
			fmt.Println("  CARD_THRESHOLD=70             Default foreground threshold (1-255)")
			fmt.Println("  CARD_TRACER=suzuki            Contour tracer (suzuki, gocv)")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "card-mcp: %v\n", err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "card-mcp: CARD_SCANNER_LOG_LEVEL: %v\n", err)
		os.Exit(2)
	}

	// stdout is for MCP protocol
	logger := logging.New(os.Stderr, level)
	logger.Debug("starting card MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)

	opts, err := cfg.DetectionOptions(logger)
	if err != nil {
		logger.Error("invalid detection settings", "error", err)
		os.Exit(2)
	}

	server.ServerVersion = Version
	srv := server.New(
		server.WithDetectionOptions(opts),
		server.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
