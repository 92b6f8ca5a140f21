package httpapi

import (
	"net/http"
)

func (h *Handler) updateHandle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Handle string `json:"handle"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	owner, err := h.svc.UpdateHandle(r.Context(), OwnerID(r.Context()), in.Handle)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, owner)
}
