package handler

import (
	"net/http"

	"github.com/voralek/sessguard/internal/infra/buildinfo"
)

// handleHealth handles GET /healthz.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: info.Version,
		Commit:  info.Commit,
	})
}
