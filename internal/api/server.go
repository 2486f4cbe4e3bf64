// Package api is the Control API of spec.md §6, exposed to the shell over
// HTTP on a loopback address, grounded on the teacher's chi-based
// ControlServer (internal/api/server.go).
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rangedl/internal/httpclient"
	"rangedl/internal/rderrors"
	"rangedl/internal/store"
)

// downloadManager is the subset of manager.Manager the Control API needs;
// declared locally to avoid this package importing the supervisor package
// transitively through manager for anything beyond these six calls.
type downloadManager interface {
	Start(ctx context.Context, url string, auth httpclient.Auth) (string, error)
	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error
	Get(id string) (store.Record, error)
	List() ([]store.Record, error)
}

// Server is the loopback HTTP Control API.
type Server struct {
	mgr      downloadManager
	log      *slog.Logger
	listener net.Listener
	http     *http.Server
}

func New(mgr downloadManager, log *slog.Logger) *Server {
	s := &Server{mgr: mgr, log: log}
	s.http = &http.Server{Handler: s.routes()}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/downloads", s.handleStart)
	r.Get("/downloads", s.handleList)
	r.Get("/downloads/{id}", s.handleGet)
	r.Post("/downloads/{id}/pause", s.handlePause)
	r.Post("/downloads/{id}/resume", s.handleResume)
	r.Post("/downloads/{id}/cancel", s.handleCancel)
	return r
}

// Start binds addr and serves until the process exits or Shutdown is
// called, matching the teacher's net.Listen + http.Serve pattern.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return rderrors.Config("failed to bind control API listener", err)
	}
	s.listener = ln
	if s.log != nil {
		s.log.Info("control API listening", slog.String("addr", addr))
	}
	return s.http.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type startRequest struct {
	URL       string `json:"url"`
	Cookies   string `json:"cookies,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

type startResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.mgr.Start(r.Context(), req.URL, httpclient.Auth{
		Cookies:   req.Cookies,
		Referrer:  req.Referrer,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, startResponse{ID: id})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleCommand(w, r, s.mgr.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleCommand(w, r, s.mgr.Resume)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.handleCommand(w, r, s.mgr.Cancel)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, fn func(string) error) {
	id := chi.URLParam(r, "id")
	if err := fn(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGet returns "Download not found" for a missing id, per spec.md
// §6's get_download_info contract.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.mgr.Get(id)
	if err != nil {
		if rderrors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Download not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(rec))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.mgr.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]downloadJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, recordJSON(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// downloadJSON is the wire shape of a Download Record in the
// get_downloads/get_download_info outputs. It carries every Record field
// except the auth context: cookies, referrer and user_agent are not sent.
type downloadJSON struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	FilePath       string `json:"file_path"`
	FileName       string `json:"file_name"`
	TotalSize      *int64 `json:"total_size"`
	DownloadedSize int64  `json:"downloaded_size"`
	Status         string `json:"status"`
	FailureReason  string `json:"failure_reason,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

func recordJSON(r store.Record) downloadJSON {
	return downloadJSON{
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
