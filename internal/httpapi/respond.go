package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/plumehq/plume/internal/permalink"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps service errors onto HTTP statuses. Unrecognized
// errors surface as 500 with a generic body; the detail goes to the log
// only.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := serviceErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, status, errorBody{Error: msg, RequestID: middleware.GetReqID(r.Context())})
		return
	}
	writeError(w, status, msg)
}

func serviceErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, permalink.ErrNotAuthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, permalink.ErrNotFound):
		// Missing and foreign resources share one answer.
		return http.StatusNotFound, "not found"
	case errors.Is(err, permalink.ErrInvalidTitle):
		return http.StatusUnprocessableEntity, "title must not be empty"
	case errors.Is(err, permalink.ErrInvalidSlug):
		return http.StatusUnprocessableEntity, "malformed slug"
	case errors.Is(err, permalink.ErrInvalidHandle):
		return http.StatusUnprocessableEntity, "malformed handle"
	case errors.Is(err, permalink.ErrHandleReserved):
		return http.StatusUnprocessableEntity, "handle is reserved"
	case errors.Is(err, permalink.ErrHandleTaken):
		return http.StatusConflict, "handle is taken"
	case errors.Is(err, permalink.ErrSlugExhausted):
		return http.StatusConflict, "could not allocate a unique slug"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
