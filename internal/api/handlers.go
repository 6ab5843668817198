package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dataforge/internal/batch"
	"dataforge/internal/schema"
	"dataforge/internal/snapshot"
)

type ingestRequest struct {
	Records []map[string]any `json:"records"`
}

type restoreRequest struct {
	Snapshot string `json:"snapshot"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor separates caller mistakes from infrastructure trouble. Rejected
// records are neither: they travel inside a 200 Outcome.
func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrBatchSize),
		errors.Is(err, schema.ErrUnknownTable),
		errors.Is(err, snapshot.ErrTableMismatch):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, s.requestTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r, s.requestTimeout)
	defer cancel()
	outcome, err := s.proc.Process(ctx, table, req.Records)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	ctx, cancel := withTimeout(r, s.requestTimeout)
	defer cancel()
	path, err := s.snaps.Backup(ctx, table)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"table": table, "snapshot": path})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Snapshot == "" {
		respondError(w, http.StatusBadRequest, errors.New("snapshot path is required"))
		return
	}

	ctx, cancel := withTimeout(r, s.requestTimeout)
	defer cancel()
	out, err := s.snaps.Restore(ctx, table, req.Snapshot)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}
