package manager

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangedl/internal/events"
	"rangedl/internal/httpclient"
	"rangedl/internal/rderrors"
	"rangedl/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newTestManager(t *testing.T, downloadDir string) *Manager {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	log := discardLogger()
	return New(st, events.NewBroadcaster(), log, downloadDir)
}

func TestStartAssignsIDAndRunsToCompletion(t *testing.T) {
	payload := strings.Repeat("z", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			w.Write([]byte(payload))
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := newTestManager(t, dir)

	id, err := m.Start(context.Background(), srv.URL, httpclient.Auth{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// give the supervisor a moment to run to completion for the small body
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := m.Get(id)
		require.NoError(t, err)
		if rec.Status == store.StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("download did not complete in time")
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	_, err := m.Get("does-not-exist")
	assert.True(t, rderrors.IsNotFound(err))
}

func TestPauseResumeCancelOnUnknownIDAreNoops(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	assert.NoError(t, m.Pause("unknown"))
	assert.NoError(t, m.Resume("unknown"))
	assert.NoError(t, m.Cancel("unknown"))
}

func TestListReadsThroughStore(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecoverInterruptedMarksStaleDownloadingPaused(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	require.NoError(t, m.store.Save(store.Record{
		ID: "stuck", URL: "u", FilePath: "p", FileName: "f",
		Status: store.StatusDownloading, CreatedAt: 1, UpdatedAt: 1,
	}))

	require.NoError(t, m.RecoverInterrupted())

	rec, err := m.Get("stuck")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPaused, rec.Status)
}

func TestRecoverInterruptedMarksStalePendingPaused(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	require.NoError(t, m.store.Save(store.Record{
		ID: "queued", URL: "u", FilePath: "p", FileName: "f",
		Status: store.StatusPending, CreatedAt: 1, UpdatedAt: 1,
	}))

	require.NoError(t, m.RecoverInterrupted())

	rec, err := m.Get("queued")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPaused, rec.Status)
}

// TestResumeRestartsCrashedPausedDownload covers the case RecoverInterrupted
// creates: a Paused record with no live supervisor. Resume must spawn a
// fresh supervisor rather than silently no-op, so the download is never
// stuck Paused forever.
func TestResumeRestartsCrashedPausedDownload(t *testing.T) {
	payload := strings.Repeat("q", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			w.Write([]byte(payload))
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := newTestManager(t, dir)
	finalPath := filepath.Join(dir, "crashed.bin")
	require.NoError(t, m.store.Save(store.Record{
		ID: "crashed", URL: srv.URL, FilePath: finalPath, FileName: "crashed.bin",
		Status: store.StatusPaused, CreatedAt: 1, UpdatedAt: 1,
	}))

	require.NoError(t, m.Resume("crashed"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := m.Get("crashed")
		require.NoError(t, err)
		if rec.Status == store.StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("resumed download did not complete in time")
}

func TestStartUsesDeriveFileNameFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := newTestManager(t, dir)

	id, err := m.Start(context.Background(), srv.URL+"/", httpclient.Auth{})
	require.NoError(t, err)

	rec, err := m.Get(id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(rec.FilePath), "download_"))
}
