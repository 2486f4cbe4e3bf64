// Package manager is the Download Manager (registry) of spec.md §4.G: a
// process-wide table of live supervisors keyed by id, dispatching external
// control commands and reading through the persistence store for queries.
package manager

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"rangedl/internal/events"
	"rangedl/internal/fsutil"
	"rangedl/internal/httpclient"
	"rangedl/internal/rderrors"
	"rangedl/internal/store"
	"rangedl/internal/supervisor"
)

// Manager is the process-wide singleton described in spec.md §4.G.
type Manager struct {
	store       *store.Store
	emit        events.Emitter
	log         *slog.Logger
	downloadDir string

	mu       sync.Mutex
	registry map[string]chan<- supervisor.Command
}

func New(st *store.Store, emit events.Emitter, log *slog.Logger, downloadDir string) *Manager {
	return &Manager{
		store:       st,
		emit:        emit,
		log:         log,
		downloadDir: downloadDir,
		registry:    make(map[string]chan<- supervisor.Command),
	}
}

// Start mints an id, persists a Pending record, inserts the id into the
// live registry, spawns the supervisor, and returns the id immediately —
// the caller does not wait for the download to progress.
func (m *Manager) Start(ctx context.Context, url string, auth httpclient.Auth) (string, error) {
	id := uuid.New().String()
	fileName := fsutil.DeriveFileName(url, id)
	filePath := fsutil.UniquePath(filepath.Join(m.downloadDir, fileName))
	fileName = filepath.Base(filePath)

	now := time.Now().Unix()
	rec := store.Record{
		ID:        id,
		URL:       url,
		FilePath:  filePath,
		FileName:  fileName,
		Status:    store.StatusPending,
		Cookies:   auth.Cookies,
		Referrer:  auth.Referrer,
		UserAgent: auth.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(rec); err != nil {
		return "", err
	}

	m.spawn(rec)
	return id, nil
}

// spawn constructs and launches a Supervisor for an already-persisted
// record, registering its control channel before starting the run loop.
func (m *Manager) spawn(rec store.Record) {
	auth := httpclient.Auth{Cookies: rec.Cookies, Referrer: rec.Referrer, UserAgent: rec.UserAgent}
	sup := supervisor.New(rec.ID, rec.URL, auth, rec.FilePath, rec.FileName, rec.CreatedAt, m.store, m.emit, m.log, m.remove)

	m.mu.Lock()
	m.registry[rec.ID] = sup.Control()
	m.mu.Unlock()

	go sup.Run(context.Background())
}

// Pause and Cancel look up the control channel by id and send the command;
// an absent id (terminal or unknown) is a no-op returning success, per
// spec.md §4.G's idempotent-retry rationale. The status field itself is
// only ever updated by the supervisor that observes the command — Manager
// never writes to the store directly.
func (m *Manager) Pause(id string) error  { return m.send(id, supervisor.Pause) }
func (m *Manager) Cancel(id string) error { return m.send(id, supervisor.Cancel) }

// Resume sends the Resume command to a live supervisor if one is running.
// If none is running — e.g. the record was marked Paused by
// RecoverInterrupted after a crash, leaving no live supervisor — and the
// persisted record is still Paused, Resume restarts it from zero, per
// spec.md §3's registry invariant that a Paused id never stalls without a
// live supervisor once Resume is called (§7's stated spec.md §9 resolution:
// segment-level resume is advisory only, so restart is always from byte 0).
func (m *Manager) Resume(id string) error {
	m.mu.Lock()
	ch, ok := m.registry[id]
	m.mu.Unlock()
	if ok {
		sendCommand(ch, supervisor.Resume)
		return nil
	}

	rec, err := m.store.Get(id)
	if err != nil {
		if rderrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if rec.Status != store.StatusPaused {
		return nil
	}
	m.spawn(rec)
	return nil
}

func (m *Manager) send(id string, cmd supervisor.Command) error {
	m.mu.Lock()
	ch, ok := m.registry[id]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	sendCommand(ch, cmd)
	return nil
}

func sendCommand(ch chan<- supervisor.Command, cmd supervisor.Command) {
	select {
	case ch <- cmd:
	default:
		// control channel full; best-effort, matches lossy delivery model
	}
}

// Get reads a single record through the persistence store, returning
// rderrors.ErrNotFound when absent — the only strict-lookup failure mode
// in the Control API (spec.md §6, §7).
func (m *Manager) Get(id string) (store.Record, error) {
	return m.store.Get(id)
}

// List reads every record through the persistence store; there is no
// separate in-memory cache, per spec.md §4.G.
func (m *Manager) List() ([]store.Record, error) {
	return m.store.LoadAll()
}

// remove is the on_exit callback a Supervisor invokes once its run loop
// returns — the weak back-reference described in spec.md §9.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.registry, id)
	m.mu.Unlock()
}

// RecoverInterrupted marks every persisted record still in a non-terminal
// status as Paused on startup — restart recovery is not itself part of
// spec.md's core contract, but without it a crash leaves a download stuck
// Downloading with no live supervisor, violating the registry invariant
// of spec.md §3 ("for any id in the live registry, a supervisor is
// running"). No supervisor is spawned for a Paused record; a subsequent
// Resume call restarts it from zero (segment-level resume is advisory
// only, per spec.md §9).
func (m *Manager) RecoverInterrupted() error {
	records, err := m.store.LoadAll()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Status == store.StatusDownloading || r.Status == store.StatusPending {
			r.Status = store.StatusPaused
			r.UpdatedAt = time.Now().Unix()
			if err := m.store.Save(r); err != nil {
				return err
			}
		}
	}
	return nil
}
