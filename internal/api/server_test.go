package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangedl/internal/httpclient"
	"rangedl/internal/rderrors"
	"rangedl/internal/store"
)

type fakeManager struct {
	startCalled bool
	pauseID     string
	resumeID    string
	cancelID    string
	records     map[string]store.Record
}

func newFakeManager() *fakeManager {
	return &fakeManager{records: make(map[string]store.Record)}
}

func (f *fakeManager) Start(ctx context.Context, url string, auth httpclient.Auth) (string, error) {
	f.startCalled = true
	f.records["new-id"] = store.Record{ID: "new-id", URL: url, Status: store.StatusPending}
	return "new-id", nil
}

func (f *fakeManager) Pause(id string) error  { f.pauseID = id; return nil }
func (f *fakeManager) Resume(id string) error { f.resumeID = id; return nil }
func (f *fakeManager) Cancel(id string) error { f.cancelID = id; return nil }

func (f *fakeManager) Get(id string) (store.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return store.Record{}, rderrors.ErrNotFound
	}
	return rec, nil
}

func (f *fakeManager) List() ([]store.Record, error) {
	out := make([]store.Record, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

func TestHandleStart(t *testing.T) {
	m := newFakeManager()
	srv := httptest.NewServer(New(m, nil).routes())
	defer srv.Close()

	body, _ := json.Marshal(startRequest{URL: "http://example.com/f"})
	resp, err := http.Post(srv.URL+"/downloads", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out startResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "new-id", out.ID)
	assert.True(t, m.startCalled)
}

func TestHandleGetNotFound(t *testing.T) {
	m := newFakeManager()
	srv := httptest.NewServer(New(m, nil).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/downloads/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Download not found", out.Error)
}

func TestHandlePauseResumeCancel(t *testing.T) {
	m := newFakeManager()
	srv := httptest.NewServer(New(m, nil).routes())
	defer srv.Close()

	for _, action := range []string{"pause", "resume", "cancel"} {
		resp, err := http.Post(srv.URL+"/downloads/abc/"+action, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	assert.Equal(t, "abc", m.pauseID)
	assert.Equal(t, "abc", m.resumeID)
	assert.Equal(t, "abc", m.cancelID)
}

func TestHandleListReturnsAllRecords(t *testing.T) {
	m := newFakeManager()
	m.records["a"] = store.Record{ID: "a", Status: store.StatusPending}
	srv := httptest.NewServer(New(m, nil).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/downloads")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out []downloadJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out, 1)
}

func TestHandleStartRejectsEmptyURL(t *testing.T) {
	m := newFakeManager()
	srv := httptest.NewServer(New(m, nil).routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/downloads", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
