package web

// errors.go provides unified error responses for the web layer.
//
// Pipeline errors carry stable kinds; this file maps them to HTTP statuses
// and machine-readable codes. Technical details are logged server-side with
// the request id; clients receive the pipeline's human-readable detail only,
// never internal stack state.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ledgerlens/ledgerlens/internal/logging"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
)

// ErrorResponse is the JSON structure for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs err and writes the matching JSON rejection.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
	)

	detail := "internal error"
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		detail = pe.Detail
	} else if status < http.StatusInternalServerError {
		detail = err.Error()
	}

	respondErrorJSON(w, status, code, detail)
}

// classify maps an error chain to an HTTP status and stable code.
func classify(err error) (int, string) {
	kind, ok := pipeline.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "internal"
	}

	switch kind {
	case pipeline.KindInvalidIdentifier,
		pipeline.KindUnsupportedFormat,
		pipeline.KindUnknownReport:
		return http.StatusBadRequest, string(kind)
	case pipeline.KindResolutionError:
		return http.StatusUnprocessableEntity, string(kind)
	case pipeline.KindLoadFailure,
		pipeline.KindRestoreFailure,
		pipeline.KindPublishFailure:
		return http.StatusInternalServerError, string(kind)
	default:
		return http.StatusInternalServerError, string(kind)
	}
}

// respondErrorJSON writes a JSON error body with the given status.
func respondErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

// respondJSON encodes v as JSON.
func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
