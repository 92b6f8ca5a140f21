package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plumehq/plume/internal/permalink"
)

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var in permalink.NewPost
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	post, err := h.svc.Create(r.Context(), OwnerID(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) renamePost(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var in struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	newSlug, err := h.svc.Rename(r.Context(), OwnerID(r.Context()), postID, in.Title)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"slug": newSlug})
}

// checkSlug answers whether a slug is currently free in the caller's
// namespace. Advisory: a positive answer is not a reservation.
func (h *Handler) checkSlug(w http.ResponseWriter, r *http.Request) {
	sl := r.URL.Query().Get("slug")
	exclude := parseOptionalID(r.URL.Query().Get("exclude"))

	available, err := h.svc.CheckAvailability(r.Context(), OwnerID(r.Context()), sl, exclude)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slug":      sl,
		"available": available,
	})
}

// suggestSlug previews the slug a create or rename with the given title
// would receive.
func (h *Handler) suggestSlug(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	exclude := parseOptionalID(r.URL.Query().Get("exclude"))

	sl, err := h.svc.SuggestSlug(r.Context(), OwnerID(r.Context()), title, exclude)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"slug": sl})
}

func parseOptionalID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
