// Command bridge is the browser-integration bridge binary: it speaks the
// length-prefixed JSON protocol of spec.md §6 over stdin/stdout and
// forwards each request to a Download Manager running in this process,
// opened on the same persistence store as the engine, following the
// teacher's cmd/ convention for separately deployable binaries.
package main

import (
	"log/slog"
	"os"

	"rangedl/internal/bridge"
	"rangedl/internal/config"
	"rangedl/internal/logger"
	"rangedl/internal/manager"
	"rangedl/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bridge fatal error", slog.String("error", err.Error()))
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

	st, err := store.Open(settings.DBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := manager.New(st, nil, log, settings.DownloadDir)

	return bridge.Serve(os.Stdin, os.Stdout, mgr, log)
}
