package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/voralek/sessguard/internal/core/domain"
)

// maxAvatarBytes caps avatar uploads.
const maxAvatarBytes = 5 << 20

// handleMe handles GET /v1/me.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	auth := h.requireAuth(w, r)
	if auth == nil {
		return
	}
	h.writeJSON(w, r, http.StatusOK, userToResponse(auth.User))
}

// handleUploadAvatar handles POST /v1/me/avatar.
func (h *Handler) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	auth := h.requireAuth(w, r)
	if auth == nil {
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code, "avatar must be an image", nil)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	key, err := h.accounts.UploadAvatar(r.Context(), auth.User.ID, contentType, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, domain.ErrInvalidArgument.Code, "avatar too large", nil)
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, UploadAvatarResponse{AvatarKey: key})
}

// handleGetAvatar handles GET /v1/me/avatar. The blob is streamed as
// stored, not wrapped in the JSON envelope.
func (h *Handler) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	auth := h.requireAuth(w, r)
	if auth == nil {
		return
	}
	if h.objects == nil || auth.User.AvatarKey == "" {
		h.writeError(w, r, http.StatusNotFound, domain.ErrObjectNotFound.Code, "no avatar set", nil)
		return
	}

	body, contentType, err := h.objects.Get(r.Context(), auth.User.AvatarKey)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
