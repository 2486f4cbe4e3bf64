package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangedl/internal/httpclient"
	"rangedl/internal/planner"
)

func TestPartPathNaming(t *testing.T) {
	assert.Equal(t, "/tmp/final.bin.part.3", PartPath("/tmp/final.bin", 3))
}

func TestRunWritesRangeToPartFile(t *testing.T) {
	body := strings.Repeat("a", 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=0-2047", r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	partPath := filepath.Join(dir, "final.bin.part.0")
	seg := planner.Segment{Index: 0, Start: 0, End: 2047}

	result, err := Run(context.Background(), httpclient.NewClient(), srv.URL, httpclient.Auth{}, seg, partPath, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), result.BytesWritten)

	data, err := os.ReadFile(partPath)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestRunFailsOnNon206(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	seg := planner.Segment{Index: 0, Start: 0, End: 99}
	_, err := Run(context.Background(), httpclient.NewClient(), srv.URL, httpclient.Auth{}, seg, filepath.Join(dir, "p"), nil, nil, nil)
	assert.Error(t, err)
}

func TestRunReportsProgressAtBoundary(t *testing.T) {
	big := strings.Repeat("x", 3*1024*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(big))
	}))
	defer srv.Close()

	dir := t.TempDir()
	seg := planner.Segment{Index: 5, Start: 0, End: int64(len(big) - 1)}
	var reports []int64
	_, err := Run(context.Background(), httpclient.NewClient(), srv.URL, httpclient.Auth{}, seg, filepath.Join(dir, "p"), func(idx int, downloaded int64) {
		assert.Equal(t, 5, idx)
		reports = append(reports, downloaded)
	}, nil, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(reports), 2)
}

func TestRunSingleStreamReportsEveryChunk(t *testing.T) {
	body := "hello world"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	finalPath := filepath.Join(dir, "out.bin")
	var last int64
	written, err := RunSingleStream(context.Background(), httpclient.NewClient(), srv.URL, httpclient.Auth{}, finalPath, func(downloaded int64) {
		last = downloaded
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), written)
	assert.Equal(t, int64(len(body)), last)
}

func TestRunCheckpointCalledAfterEachChunk(t *testing.T) {
	body := strings.Repeat("y", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	seg := planner.Segment{Index: 0, Start: 0, End: int64(len(body) - 1)}
	var calls int
	_, err := Run(context.Background(), httpclient.NewClient(), srv.URL, httpclient.Auth{}, seg, filepath.Join(dir, "p"), nil, func(ctx context.Context) error {
		calls++
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Greater(t, calls, 0)
}

func TestRunCheckpointErrorAbortsCopy(t *testing.T) {
	body := strings.Repeat("z", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	seg := planner.Segment{Index: 0, Start: 0, End: int64(len(body) - 1)}
	boom := context.Canceled
	_, err := Run(context.Background(), httpclient.NewClient(), srv.URL, httpclient.Auth{}, seg, filepath.Join(dir, "p"), nil, func(ctx context.Context) error {
		return boom
	}, nil)
	require.Error(t, err)
}
