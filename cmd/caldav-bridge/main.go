package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kodbox-tools/caldav-bridge/internal/cache"
	"github.com/kodbox-tools/caldav-bridge/internal/config"
	"github.com/kodbox-tools/caldav-bridge/internal/dav"
	"github.com/kodbox-tools/caldav-bridge/internal/kodbox"
	"github.com/kodbox-tools/caldav-bridge/internal/render"
	"github.com/kodbox-tools/caldav-bridge/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bridge exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return err
	}

	client, err := kodbox.NewClient(cfg.KodboxBaseURL, cfg.KodboxUsername, cfg.KodboxPassword,
		&http.Client{Timeout: cfg.KodboxTimeout}, logger)
	if err != nil {
		return err
	}

	renderer := render.NewRenderer(loc, logger)
	snapshots := cache.New(client, renderer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// First fetch is best-effort: an unreachable KodBox must not keep
	// the listener from coming up, the refresher retries on its own.
	if err := snapshots.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed, serving empty snapshot", "error", err)
	}

	refresher := cache.NewRefresher(snapshots, cfg.SyncInterval, cfg.SyncRetryDelay, logger)
	go refresher.Run(ctx)

	davHandler := dav.NewHandler(snapshots, renderer, cfg.CaldavUsername, logger)
	server := web.NewServer(cfg, snapshots, renderer, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Router(davHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
