package worker

import (
	"context"
	"io"
	"net/http"
	"os"

	"rangedl/internal/httpclient"
	"rangedl/internal/rderrors"
)

// SingleStreamProgressFunc is invoked on every chunk written, matching the
// original's unthrottled per-chunk persistence on the single-stream path
// (original_source/downloader.rs download_single_threaded), in contrast to
// the segmented path's 1 MiB boundary throttling.
type SingleStreamProgressFunc func(downloaded int64)

// RunSingleStream performs a plain GET (no Range header) and streams the
// response directly to finalPath, used when the planner collapses to one
// segment (no range support, unknown size, or N==1). finalPath is opened
// for create+write with truncation.
func RunSingleStream(ctx context.Context, client *http.Client, url string, auth httpclient.Auth, finalPath string, onProgress SingleStreamProgressFunc) (int64, error) {
	req, err := httpclient.NewRequest(ctx, http.MethodGet, url, auth)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, rderrors.Network("single-stream request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, rderrors.FriendlyHTTPStatus(resp.StatusCode)
	}

	f, err := os.OpenFile(finalPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, rderrors.IO("failed to open destination file", err)
	}
	defer f.Close()

	pw := &chunkWriter{w: f, onProgress: onProgress}
	written, err := io.Copy(pw, resp.Body)
	if err != nil {
		return 0, rderrors.Network("single-stream read failed", err)
	}
	return written, nil
}

type chunkWriter struct {
	w          io.Writer
	onProgress SingleStreamProgressFunc
	written    int64
}

func (c *chunkWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.written += int64(n)
	if c.onProgress != nil {
		c.onProgress(c.written)
	}
	return n, err
}
