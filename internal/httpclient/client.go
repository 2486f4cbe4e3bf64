// Package httpclient is the HTTP Client Factory of spec.md §4.B: it
// builds requests pre-loaded with a download's auth context, and probes a
// URL for size and range support.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"rangedl/internal/config"
	"rangedl/internal/rderrors"
)

// Auth carries the optional per-download authentication context forwarded
// verbatim to outbound requests.
type Auth struct {
	Cookies   string
	Referrer  string
	UserAgent string
}

// NewClient builds the *http.Client used for every request issued for one
// download. Its configuration is intentionally plain: no connection-pool
// tuning beyond the transport defaults, since HTTP/2 multiplexing
// awareness and bandwidth throttling are explicit Non-goals.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: 0, // no client-level timeout; a request is bounded only by its context
	}
}

// NewRequest builds a request for method/url carrying auth's headers. The
// User-Agent defaults to config.DefaultUserAgent when auth.UserAgent is
// empty. Referrer and Cookies are attached only when non-empty.
func NewRequest(ctx context.Context, method, url string, auth Auth) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, rderrors.Config("failed to build request", err)
	}
	ua := auth.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if auth.Referrer != "" {
		req.Header.Set("Referer", auth.Referrer)
	}
	if auth.Cookies != "" {
		req.Header.Set("Cookie", auth.Cookies)
	}
	return req, nil
}

// ProbeResult is what the HEAD probe of spec.md §4.F step 2 discovers.
type ProbeResult struct {
	TotalSize      *int64
	RangeSupported bool
	ETag           string
	LastModified   string
}

// Probe issues a HEAD request and reads Content-Length and Accept-Ranges.
// RangeSupported is true iff the header is present and equal to "bytes".
func Probe(ctx context.Context, client *http.Client, url string, auth Auth) (ProbeResult, error) {
	req, err := NewRequest(ctx, http.MethodHead, url, auth)
	if err != nil {
		return ProbeResult{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return ProbeResult{}, rderrors.Network("probe request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ProbeResult{}, rderrors.FriendlyHTTPStatus(resp.StatusCode)
	}

	result := ProbeResult{
		RangeSupported: resp.Header.Get("Accept-Ranges") == "bytes",
		ETag:           resp.Header.Get("ETag"),
		LastModified:   resp.Header.Get("Last-Modified"),
	}
	if resp.ContentLength >= 0 {
		size := resp.ContentLength
		result.TotalSize = &size
	}
	return result, nil
}

// idleTimeout is the default stall detector suggested by spec.md §5; the
// core contract does not require it, but surfacing stalls as NetworkError
// after an idle interval is explicitly encouraged there.
const idleTimeout = 30 * time.Second

// IdleTimeout exposes the default idle interval. The segment and
// single-stream workers do not apply it: a stalled read is not failed as a
// NetworkError and lasts until the request's context is cancelled.
func IdleTimeout() time.Duration { return idleTimeout }
