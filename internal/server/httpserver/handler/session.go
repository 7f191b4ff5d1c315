package handler

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/voralek/sessguard/internal/core/domain"
)

// handleListSessions handles GET /v1/sessions. It lists the caller's
// sessions, newest first, with the presenting session marked current.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	auth := h.requireAuth(w, r)
	if auth == nil {
		return
	}

	infos, err := h.sessions.List(r.Context(), auth.User.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]SessionResponse, len(infos))
	for i, info := range infos {
		items[i] = SessionResponse{
			ID:        info.UnsignedID,
			UserAgent: info.UserAgent,
			IPAddress: info.IPAddress,
			CreatedAt: info.CreatedAt,
			LastUsed:  info.LastUsed,
			ExpiresAt: info.ExpiresAt,
			State:     info.State,
			Current:   info.UnsignedID == auth.Session.UnsignedID,
		}
	}

	h.writeJSON(w, r, http.StatusOK, ListSessionsResponse{
		Sessions: items,
		Total:    len(items),
	})
}

// handleLogout handles POST /v1/auth/logout. It tears down the
// presenting session and clears the cookie pair.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth := h.requireAuth(w, r)
	if auth == nil {
		return
	}

	if err := h.sessions.Logout(r.Context(), auth.User.ID, auth.Session.UnsignedID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.countRemoved("logout", 1)
	h.cookies.Clear(w)
	h.writeJSON(w, r, http.StatusOK, LogoutResponse{Removed: 1})
}

// handleLogoutOthers handles POST /v1/auth/logout/others. The
// presenting session survives; every other session of the user is
// torn down.
func (h *Handler) handleLogoutOthers(w http.ResponseWriter, r *http.Request) {
	auth := h.requireAuth(w, r)
	if auth == nil {
		return
	}

	removed, err := h.sessions.LogoutOthers(r.Context(), auth.User.ID, auth.Session.UnsignedID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.countRemoved("logout_others", removed)
	h.writeJSON(w, r, http.StatusOK, LogoutResponse{Removed: removed})
}

// handleLogoutSelected handles POST /v1/auth/logout/selected. Ids that
// do not exist or belong to someone else are skipped. When the list
// includes the presenting session, the cookie pair is cleared too.
func (h *Handler) handleLogoutSelected(w http.ResponseWriter, r *http.Request) {
	auth := h.requireAuth(w, r)
	if auth == nil {
		return
	}

	var req LogoutSelectedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", nil)
		return
	}

	removed, err := h.sessions.LogoutSelected(r.Context(), auth.User.ID, req.SessionIDs)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.countRemoved("logout_selected", removed)
	if slices.Contains(req.SessionIDs, auth.Session.UnsignedID) {
		h.cookies.Clear(w)
	}
	h.writeJSON(w, r, http.StatusOK, LogoutResponse{Removed: removed})
}
