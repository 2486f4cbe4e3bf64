// Package config holds the resolved runtime settings for the engine:
// filesystem locations and the handful of constants the rest of the
// engine is tuned against.
package config

import (
	"os"
	"path/filepath"
)

const (
	// MaxSegments bounds the number of parallel range fetches per download.
	MaxSegments = 32
	// MinSegmentSize is the smallest slice a segment is allowed to shrink to
	// before the planner collapses to fewer segments.
	MinSegmentSize int64 = 1024 * 1024
	// DefaultUserAgent is attached to outbound requests when the caller
	// supplies none.
	DefaultUserAgent = "GripDL/1.0"
	// ProgressBoundary is the granularity at which a segment worker reports
	// incremental progress to its supervisor.
	ProgressBoundary int64 = 1024 * 1024
)

// Settings is a plain, defaulted struct — there is no config-file or
// environment-parsing library in play here, matching how the teacher
// resolves its own paths.
type Settings struct {
	// AppDataDir holds the database and log files.
	AppDataDir string
	// DownloadDir is the default destination for final artifacts.
	DownloadDir string
	// ListenAddr is the loopback address the Control API binds to.
	ListenAddr string
}

// DBPath returns the path to the persistence store's sqlite file.
func (s Settings) DBPath() string {
	return filepath.Join(s.AppDataDir, "downloads.db")
}

// LogPath returns the path to the JSON log file.
func (s Settings) LogPath() string {
	return filepath.Join(s.AppDataDir, "logs", "engine.json")
}

// Load resolves Settings from the user's home directory, applying the
// documented defaults. Local-path discovery beyond this is out of scope
// (spec.md §1) — the caller may override any field after Load returns.
func Load() (Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Settings{}, err
	}
	appData := filepath.Join(home, ".rangedl")
	return Settings{
		AppDataDir:  appData,
		DownloadDir: filepath.Join(home, "Downloads"),
		ListenAddr:  "127.0.0.1:8923",
	}, nil
}

// EnsureDirs creates the app-data directory tree (and its logs
// subdirectory) and the download directory, if they don't already exist.
func (s Settings) EnsureDirs() error {
	if err := os.MkdirAll(filepath.Dir(s.LogPath()), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(s.DownloadDir, 0o755)
}
