// Package fsutil resolves filesystem details the engine needs but treats
// as an injected capability per spec.md §1: filename derivation,
// collision avoidance, and a pre-allocation disk-space check.
package fsutil

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DeriveFileName extracts a base filename from a URL's path, falling back
// to "download_<id-prefix>" when the path yields nothing usable — matching
// extract_filename in original_source/downloader.rs (split on '/', take
// the last non-empty segment).
func DeriveFileName(rawURL, id string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return FallbackName(id)
}

// FallbackName mirrors the original's download_<first-8-hex-chars>
// convention.
func FallbackName(id string) string {
	n := 8
	if len(id) < n {
		n = len(id)
	}
	return "download_" + id[:n]
}

// UniquePath appends " (n)" before the extension when path already
// exists, following the collision-avoidance convention of
// internal/core/organizer.go's findAvailablePath in the teacher repo.
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)

	for i := 1; i < 1000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext))
}
