// Package worker is the Segment Worker of spec.md §4.D: it fetches one
// byte range into one part-file and reports incremental progress.
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"rangedl/internal/config"
	"rangedl/internal/httpclient"
	"rangedl/internal/planner"
	"rangedl/internal/rderrors"
)

// ProgressFunc is invoked by a worker whenever its locally-accumulated
// downloaded count crosses a 1 MiB boundary (config.ProgressBoundary).
// The supervisor uses this to aggregate progress across workers without
// sharing a mutable counter (spec.md §9's recommended race fix).
type ProgressFunc func(segmentIndex int, downloaded int64)

// Result is returned by Run on success.
type Result struct {
	SegmentIndex int
	BytesWritten int64
}

// PartPath returns the conventional part-file path for one segment of a
// download, following spec.md §6: "<final_name>.part.<i>" in the final
// artifact's directory.
func PartPath(finalPath string, index int) string {
	return fmt.Sprintf("%s.part.%d", finalPath, index)
}

// Checkpoint is invoked after every chunk write, before the next read —
// the per-chunk suspension point of spec.md §5 ((b)/(c), interleaved with
// the control-channel poll (e)). Implementations block while paused and
// return ctx.Err() if cancelled while blocked.
type Checkpoint func(ctx context.Context) error

// Run performs a single GET with a Range header covering seg, streaming
// the response body to the part-file for seg's index. The part-file is
// opened for create+write with truncation, per spec.md §4.D — any prior
// content from a failed attempt is discarded, since the base spec requires
// restart-from-zero on segment failure.
func Run(ctx context.Context, client *http.Client, url string, auth httpclient.Auth, seg planner.Segment, partPath string, onProgress ProgressFunc, checkpoint Checkpoint, log *slog.Logger) (Result, error) {
	req, err := httpclient.NewRequest(ctx, http.MethodGet, url, auth)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", seg.Start, seg.End))

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, rderrors.Network(fmt.Sprintf("segment %d request failed", seg.Index), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return Result{}, rderrors.FriendlyHTTPStatus(resp.StatusCode)
	}

	f, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{}, rderrors.IO(fmt.Sprintf("failed to open part file for segment %d", seg.Index), err)
	}
	defer f.Close()

	pw := &progressWriter{ctx: ctx, w: f, boundary: config.ProgressBoundary, onProgress: onProgress, checkpoint: checkpoint, index: seg.Index}
	written, err := io.Copy(pw, resp.Body)
	if err != nil {
		return Result{}, rderrors.Network(fmt.Sprintf("segment %d read failed", seg.Index), err)
	}

	if log != nil {
		log.Debug("segment complete", slog.Int("segment", seg.Index), slog.Int64("bytes", written))
	}
	return Result{SegmentIndex: seg.Index, BytesWritten: written}, nil
}

// progressWriter wraps an io.Writer, calls onProgress every time the
// cumulative write count crosses config.ProgressBoundary (matching the
// original's 1 MiB boundary check in original_source/downloader.rs
// download_segment, but driven by total bytes written rather than a
// fragile exact-modulo comparison), and calls checkpoint after every chunk
// to observe a pending Pause/Cancel.
type progressWriter struct {
	ctx        context.Context
	w          io.Writer
	boundary   int64
	onProgress ProgressFunc
	checkpoint Checkpoint
	index      int
	written    int64
	lastReport int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.onProgress != nil && p.written-p.lastReport >= p.boundary {
		p.lastReport = p.written
		p.onProgress(p.index, p.written)
	}
	if err != nil {
		return n, err
	}
	if p.checkpoint != nil {
		if cpErr := p.checkpoint(p.ctx); cpErr != nil {
			return n, cpErr
		}
	}
	return n, err
}
