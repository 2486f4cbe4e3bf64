// Command rangedl runs the download engine: the Persistence Store, the
// Download Manager, and the Control API server, following the teacher's
// main.go bootstrap sequence (logger, storage, engine, API server) minus
// the desktop-shell/systray wiring that is out of scope here.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rangedl/internal/api"
	"rangedl/internal/config"
	"rangedl/internal/events"
	"rangedl/internal/logger"
	"rangedl/internal/manager"
	"rangedl/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal startup error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if err := settings.EnsureDirs(); err != nil {
		return err
	}

	log, logFile, err := logger.New(settings.LogPath())
	if err != nil {
		return err
	}
	defer logFile.Close()
	slog.SetDefault(log)

	st, err := store.Open(settings.DBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	emitter := events.NewBroadcaster()
	mgr := manager.New(st, emitter, log, settings.DownloadDir)

	if err := mgr.RecoverInterrupted(); err != nil {
		log.Error("failed to recover interrupted downloads", slog.String("error", err.Error()))
	}

	srv := api.New(mgr, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(settings.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
