package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plumehq/plume/internal/permalink"
)

// resolveOwner serves GET /{handle}: the owner's profile for a live
// handle, a permanent redirect for a retired one.
func (h *Handler) resolveOwner(w http.ResponseWriter, r *http.Request) {
	owner, redirect, err := h.svc.ResolveOwner(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if redirect != nil {
		http.Redirect(w, r, redirectPath(*redirect), http.StatusMovedPermanently)
		return
	}
	writeJSON(w, http.StatusOK, owner)
}

// resolveContent serves GET /{handle}/{slug}: the post at its canonical
// location, or a permanent redirect when either segment is retired.
func (h *Handler) resolveContent(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "handle")
	sl := chi.URLParam(r, "slug")

	post, redirect, err := h.svc.ResolveContent(r.Context(), ref, sl)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if redirect != nil {
		http.Redirect(w, r, redirectPath(*redirect), http.StatusMovedPermanently)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// locatePost serves GET /p/{id}: a temporary redirect to the post's
// canonical URL. Temporary because the id stays a valid, stable reference.
func (h *Handler) locatePost(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	redirect, err := h.svc.Locate(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, redirectPath(redirect), http.StatusFound)
}

func redirectPath(rd permalink.Redirect) string {
	if rd.Slug == "" {
		return "/" + rd.Handle
	}
	return "/" + rd.Handle + "/" + rd.Slug
}
