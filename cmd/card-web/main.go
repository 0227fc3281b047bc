// Command card-web serves the stored cards as a browsable list.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ridge/must/v2"

	"github.com/ironsheep/card-scanner/internal/config"
	"github.com/ironsheep/card-scanner/internal/logging"
	"github.com/ironsheep/card-scanner/internal/store"
	"github.com/ironsheep/card-scanner/internal/web"
)

func main() {
	cfg := must.OK1(config.Load())
	logger := logging.New(os.Stderr, must.OK1(logging.ParseLevel(cfg.LogLevel)))

	db := must.OK1(store.Open(cfg.DBURL))
	defer db.Close()

	handler := must.OK1(web.New(db, cfg.ImageDataDir, logger))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	handler.Attach(r)

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("serving card list", "addr", cfg.WebAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
