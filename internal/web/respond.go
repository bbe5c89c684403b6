package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ssgtools/tpconsole/internal/excel"
	"github.com/ssgtools/tpconsole/internal/pipeline"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError logs the technical error with the request ID and returns a
// JSON error with a status derived from the error kind.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", chimw.GetReqID(r.Context()),
	)

	writeError(w, status, err.Error())
}

// statusFor maps pipeline and decode errors to HTTP status codes.
func statusFor(err error) int {
	var decodeErr *excel.DecodeError
	switch {
	case errors.Is(err, pipeline.ErrUnknownKind),
		errors.Is(err, pipeline.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrUnknownSheet),
		errors.Is(err, pipeline.ErrNoRecords),
		errors.Is(err, pipeline.ErrNotSubmittable):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrDiagnosticsPresent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeJSON encodes v as JSON. Encoding errors are logged since headers are
// already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
