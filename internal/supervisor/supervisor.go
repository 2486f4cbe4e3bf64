// Package supervisor is the Download Supervisor of spec.md §4.F: the
// per-download state machine that orchestrates probe → plan → fan-out →
// merge → finalize, and that owns persistence and emission for its id —
// it is the sole writer of status and progress for the download it owns
// (spec.md §9's recommended "supervisor-as-serializer" discipline).
package supervisor

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"rangedl/internal/events"
	"rangedl/internal/fsutil"
	"rangedl/internal/httpclient"
	"rangedl/internal/merger"
	"rangedl/internal/planner"
	"rangedl/internal/rderrors"
	"rangedl/internal/store"
	"rangedl/internal/worker"
)

// Command is sent over a Supervisor's control channel.
type Command int

const (
	Pause Command = iota
	Resume
	Cancel
)

// OnExit is invoked once when the supervisor's run loop returns, so the
// Manager's registry can remove the id — this is the "weak back-reference"
// described in spec.md §9: the supervisor holds no strong handle back to
// the manager, only this closure.
type OnExit func(id string)

// Supervisor owns the state machine for exactly one download.
type Supervisor struct {
	id     string
	url    string
	auth   httpclient.Auth
	store  *store.Store
	emit   events.Emitter
	log    *slog.Logger
	client *http.Client

	control chan Command
	onExit  OnExit

	mu            sync.Mutex
	downloaded    int64
	segmentCounts map[int]int64 // per-segment downloaded bytes, owned solely by the supervisor
	totalSize     *int64
	filePath      string
	fileName      string
	status        store.Status
	failureReason string
	createdAt     int64
	updatedAt     int64

	paused    bool
	cancelled bool
}

// New constructs a Supervisor for a freshly-created Pending record. The
// Manager persists the Pending record and inserts the control channel into
// its registry before calling Run.
func New(id, url string, auth httpclient.Auth, filePath, fileName string, createdAt int64, st *store.Store, emit events.Emitter, log *slog.Logger, onExit OnExit) *Supervisor {
	return &Supervisor{
		id:            id,
		url:           url,
		auth:          auth,
		store:         st,
		emit:          emit,
		log:           log.With(slog.String("download_id", id)),
		client:        httpclient.NewClient(),
		control:       make(chan Command, 8),
		onExit:        onExit,
		segmentCounts: make(map[int]int64),
		filePath:      filePath,
		fileName:      fileName,
		status:        store.StatusPending,
		createdAt:     createdAt,
		updatedAt:     createdAt,
	}
}

// Control returns the channel the Manager sends Pause/Resume/Cancel
// commands on.
func (s *Supervisor) Control() chan<- Command { return s.control }

// Run executes the full state machine to completion. It is meant to run
// in its own goroutine; the Manager does not wait for it except via the
// on_exit callback.
func (s *Supervisor) Run(ctx context.Context) {
	defer s.onExit(s.id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watchControl(cancel)

	s.transition(store.StatusDownloading, "")
	s.persistAndEmit()

	probeResult, err := httpclient.Probe(ctx, s.client, s.url, s.auth)
	if err != nil {
		if s.isCancelled() {
			s.finishCancelled(nil)
			return
		}
		s.fail(err)
		return
	}
	s.mu.Lock()
	s.totalSize = probeResult.TotalSize
	s.mu.Unlock()

	var total int64 = -1
	if probeResult.TotalSize != nil {
		total = *probeResult.TotalSize
	}

	if err := fsutil.CheckDiskSpace(s.filePath, total); err != nil {
		s.fail(err)
		return
	}

	segments := planner.Plan(total, probeResult.RangeSupported)

	if s.isCancelled() {
		s.finishCancelled(nil)
		return
	}

	if len(segments) == 1 {
		s.runSingleStream(ctx, total)
		return
	}
	s.runSegmented(ctx, segments, total)
}

// runSingleStream handles the N==1 path: GET without Range, streaming
// straight to the final path, persisting/emitting on every chunk per
// spec.md's supplemented per-chunk-vs-boundary distinction (SPEC_FULL.md).
func (s *Supervisor) runSingleStream(ctx context.Context, total int64) {
	written, err := worker.RunSingleStream(ctx, s.client, s.url, s.auth, s.filePath, func(downloaded int64) {
		if s.isCancelled() {
			return
		}
		s.waitWhilePaused(ctx)
		s.mu.Lock()
		s.downloaded = downloaded
		s.mu.Unlock()
		s.persistAndEmit()
	})
	if s.isCancelled() {
		s.finishCancelled([]string{s.filePath})
		return
	}
	if err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	s.downloaded = written
	s.mu.Unlock()
	s.transition(store.StatusCompleted, "")
	s.persistAndEmit()
}

// runSegmented handles the N>1 path: fan out N workers in parallel, each
// to its own part-file; await all; on any failure propagate
// Failed(reason) and abandon the rest; on full success, merge and finish.
func (s *Supervisor) runSegmented(ctx context.Context, segments []planner.Segment, total int64) {
	segCtx, cancelSegs := context.WithCancel(ctx)
	defer cancelSegs()

	results := make(chan error, len(segments))
	partPaths := make([]string, len(segments))
	var wg sync.WaitGroup

	for _, seg := range segments {
		seg := seg
		partPaths[seg.Index] = worker.PartPath(s.filePath, seg.Index)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := worker.Run(segCtx, s.client, s.url, s.auth, seg, partPaths[seg.Index], func(idx int, downloaded int64) {
				s.reportSegmentProgress(idx, downloaded)
			}, s.checkpoint, s.log)
			results <- err
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for err := range results {
		if err != nil && firstErr == nil && !s.isCancelled() {
			firstErr = err
		}
	}

	if s.isCancelled() {
		cancelSegs()
		wg.Wait()
		s.finishCancelled(partPaths)
		return
	}

	if firstErr != nil {
		cancelSegs()
		s.fail(firstErr)
		s.cleanupParts(partPaths)
		return
	}

	if err := merger.Merge(s.filePath, partPaths); err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	s.downloaded = total
	s.mu.Unlock()
	s.transition(store.StatusCompleted, "")
	s.persistAndEmit()
}

// reportSegmentProgress is the single point where worker progress is
// aggregated — the supervisor sums its own per-segment counters rather
// than letting workers mutate a shared counter directly, implementing the
// fix spec.md §9 recommends for the original's unsynchronized increment.
func (s *Supervisor) reportSegmentProgress(index int, downloaded int64) {
	if s.isCancelled() {
		return
	}
	s.mu.Lock()
	s.segmentCounts[index] = downloaded
	var sum int64
	for _, v := range s.segmentCounts {
		sum += v
	}
	s.downloaded = sum
	s.mu.Unlock()
	s.persistAndEmit()
}

func (s *Supervisor) cleanupParts(partPaths []string) {
	for _, p := range partPaths {
		_ = os.Remove(p)
	}
}

func (s *Supervisor) finishCancelled(partPaths []string) {
	s.transition(store.StatusCancelled, "")
	s.persistAndEmit()
	if partPaths != nil {
		s.cleanupParts(partPaths)
	}
}

func (s *Supervisor) fail(err error) {
	reason := rderrors.Reason(err)
	s.transition(store.StatusFailed, reason)
	s.persistAndEmit()
	if s.log != nil {
		s.log.Error("download failed", slog.String("reason", reason))
	}
}

func (s *Supervisor) transition(status store.Status, reason string) {
	s.mu.Lock()
	s.status = status
	s.failureReason = reason
	s.updatedAt = nowUnix()
	s.mu.Unlock()
}

// watchControl polls the control channel, the only place Pause/Resume/
// Cancel are observed (spec.md §4.F step 7, §5 suspension point (e)).
func (s *Supervisor) watchControl(cancel context.CancelFunc) {
	for cmd := range s.control {
		switch cmd {
		case Pause:
			s.mu.Lock()
			if !s.isTerminalLocked() {
				s.paused = true
				s.status = store.StatusPaused
				s.updatedAt = nowUnix()
			}
			s.mu.Unlock()
			s.persistAndEmit()
		case Resume:
			s.mu.Lock()
			if s.status == store.StatusPaused {
				s.paused = false
				s.status = store.StatusDownloading
				s.updatedAt = nowUnix()
			}
			s.mu.Unlock()
			s.persistAndEmit()
		case Cancel:
			s.mu.Lock()
			s.cancelled = true
			s.paused = false
			s.mu.Unlock()
			cancel()
			return
		}
	}
}

// waitWhilePaused blocks the single-stream path at a suspension point
// while Paused, waking on Resume or Cancel (ctx.Done).
func (s *Supervisor) waitWhilePaused(ctx context.Context) {
	for {
		s.mu.Lock()
		paused := s.paused
		s.mu.Unlock()
		if !paused {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// checkpoint is the per-chunk suspension point a segment worker calls into
// (worker.Checkpoint): it blocks while Paused and surfaces ctx.Err() once
// Cancel has fired, so a segmented download suspends on Pause the same way
// runSingleStream already does via waitWhilePaused.
func (s *Supervisor) checkpoint(ctx context.Context) error {
	s.waitWhilePaused(ctx)
	return ctx.Err()
}

func (s *Supervisor) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *Supervisor) isTerminalLocked() bool {
	switch s.status {
	case store.StatusCompleted, store.StatusFailed, store.StatusCancelled:
		return true
	default:
		return false
	}
}

// Snapshot returns the current in-memory record, used both for
// persistAndEmit and for reads that bypass the store (none currently —
// Manager.Get/List always read through the store per spec.md §4.G).
func (s *Supervisor) Snapshot() store.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Record{
		ID:             s.id,
		URL:            s.url,
		FilePath:       s.filePath,
		FileName:       s.fileName,
		TotalSize:      s.totalSize,
		DownloadedSize: s.downloaded,
		Status:         s.status,
		FailureReason:  s.failureReason,
		Cookies:        s.auth.Cookies,
		Referrer:       s.auth.Referrer,
		UserAgent:      s.auth.UserAgent,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
	}
}

// persistAndEmit is the only path by which this download's record reaches
// the store or the event emitter — every state transition is persisted
// before being emitted, per spec.md §4.F step 6.
func (s *Supervisor) persistAndEmit() {
	rec := s.Snapshot()
	if err := s.store.Save(rec); err != nil && s.log != nil {
		s.log.Error("failed to persist download record", slog.String("error", err.Error()))
	}
	if s.emit != nil {
		s.emit.Emit(toUpdate(rec))
	}
}

func toUpdate(r store.Record) events.Update {
	return events.Update{
		ID:             r.ID,
		URL:            r.URL,
		FilePath:       r.FilePath,
		FileName:       r.FileName,
		TotalSize:      r.TotalSize,
		DownloadedSize: r.DownloadedSize,
		Status:         string(r.Status),
		FailureReason:  r.FailureReason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func nowUnix() int64 { return time.Now().Unix() }
