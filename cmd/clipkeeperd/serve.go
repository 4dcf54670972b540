package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"clipkeeper/internal/config"
	"clipkeeper/internal/ingestserver"
	"clipkeeper/internal/logging"
)

// serve runs the ingestion server until ctx is cancelled. ready, when set,
// receives the bound address once the listener is up.
func serve(ctx context.Context, cfg *config.Config, ready func(addr string)) error {
	logger, err := logging.NewFromConfig(cfg, "clipkeeperd", true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(cfg.ServerLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipkeeperd instance is already running")
	}
	defer releaseLock(lock, logger)

	dataset, err := ingestserver.OpenDataset(cfg.Server.DatabasePath)
	if err != nil {
		return err
	}
	defer dataset.Close()

	srv, err := ingestserver.New(cfg, dataset, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	if ready != nil {
		ready(srv.Addr())
	}

	<-ctx.Done()
	srv.Stop()
	logger.Info("clipkeeperd shutting down")
	return nil
}

func releaseLock(lock *flock.Flock, logger *slog.Logger) {
	if err := lock.Unlock(); err != nil {
		logger.Warn("failed to release server lock", logging.Error(err))
	}
}
