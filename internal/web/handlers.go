package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ssgtools/tpconsole/internal/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// kindSummary describes one record kind and its expected columns.
type kindSummary struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	SheetName   string       `json:"sheetName"`
	Submittable bool         `json:"submittable"`
	Columns     []kindColumn `json:"columns"`
}

type kindColumn struct {
	Column   string `json:"column"`
	Required bool   `json:"required"`
}

func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	kinds := pipeline.All()
	out := make([]kindSummary, 0, len(kinds))
	for _, k := range kinds {
		cols := make([]kindColumn, 0, len(k.Mappings))
		for _, m := range k.Mappings {
			cols = append(cols, kindColumn{Column: m.Column, Required: m.Required})
		}
		out = append(out, kindSummary{
			Key:         k.Key,
			Label:       k.Label,
			SheetName:   k.SheetName,
			Submittable: k.Submittable,
			Columns:     cols,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpload accepts a multipart workbook upload and starts a session.
// The response carries the mapped row count and any diagnostics so the
// operator can review before confirming.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field in form data")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	view, err := s.service.Begin(r.Context(), kind, header.Filename, data)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSelectSheet switches the session to another sheet and re-runs
// mapping and validation.
func (s *Server) handleSelectSheet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sheet string `json:"sheet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Sheet == "" {
		writeError(w, http.StatusBadRequest, "request body must carry a sheet name")
		return
	}

	view, err := s.service.SelectSheet(chi.URLParam(r, "sessionID"), req.Sheet)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSubmit confirms the session and dispatches its records. The result
// is persisted to history before responding; a persistence failure is
// logged but does not fail the submission the operator already made.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	if s.history != nil {
		if _, err := s.history.RecordUpload(r.Context(), result); err != nil {
			slog.Error("recording upload history", "session_id", result.SessionID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.service.Cancel(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "upload history is not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	records, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHistoryFailures(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "upload history is not configured")
		return
	}

	uploadID, err := strconv.ParseInt(chi.URLParam(r, "uploadID"), 10, 64)
	if err != nil {
		respondError(w, r, errors.New("upload id must be numeric"))
		return
	}

	failures, err := s.history.ListFailures(r.Context(), uploadID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, failures)
}
