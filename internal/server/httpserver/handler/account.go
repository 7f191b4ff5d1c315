package handler

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/internal/core/service"
	"github.com/voralek/sessguard/internal/telemetry/logger"
	"github.com/voralek/sessguard/pkg/signer"
)

// handleRegister handles POST /v1/auth/register.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", nil)
		return
	}

	resp, err := h.accounts.Register(r.Context(), &service.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: getClientIP(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.countCreated("register")
	h.cookies.Issue(w, resp.User.ID, resp.Token, resp.Session.ExpiresAt)
	h.writeJSON(w, r, http.StatusCreated, LoginResponse{
		User:      userToResponse(resp.User),
		ExpiresAt: resp.Session.ExpiresAt,
	})
}

// handleLogin handles POST /v1/auth/login.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", nil)
		return
	}

	resp, err := h.accounts.Login(r.Context(), &service.LoginRequest{
		Handle:    req.Handle,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: getClientIP(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	// Second factor pending: no session yet, no cookies.
	if resp.CodeRequired {
		h.writeJSON(w, r, http.StatusAccepted, LoginResponse{
			User:         userToResponse(resp.User),
			CodeRequired: true,
		})
		return
	}

	h.countCreated("login")
	h.cookies.Issue(w, resp.User.ID, resp.Token, resp.Session.ExpiresAt)
	h.writeJSON(w, r, http.StatusOK, LoginResponse{
		User:      userToResponse(resp.User),
		ExpiresAt: resp.Session.ExpiresAt,
	})
}

// handleLoginWithCode handles POST /v1/auth/login/code.
func (h *Handler) handleLoginWithCode(w http.ResponseWriter, r *http.Request) {
	var req LoginWithCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", nil)
		return
	}

	resp, err := h.accounts.LoginWithCode(r.Context(), &service.LoginWithCodeRequest{
		UserID:    req.UserID,
		Code:      req.Code,
		UserAgent: r.UserAgent(),
		IPAddress: getClientIP(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.countCreated("login")
	h.cookies.Issue(w, resp.User.ID, resp.Token, resp.Session.ExpiresAt)
	h.writeJSON(w, r, http.StatusOK, LoginResponse{
		User:      userToResponse(resp.User),
		ExpiresAt: resp.Session.ExpiresAt,
	})
}

// Transient cookies carrying the OAuth handshake state between the
// redirect and the callback.
const (
	oauthStateCookie    = "oauth_state"
	oauthVerifierCookie = "oauth_verifier"
)

const oauthHandshakeTTL = 10 * time.Minute

// handleOAuthStart handles GET /v1/auth/oauth/google. It starts the
// authorization code flow with PKCE and redirects to the provider.
func (h *Handler) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.writeError(w, r, http.StatusNotFound, domain.ErrBadRequest.Code, "google sign-in is not enabled", nil)
		return
	}

	state, err := signer.GenerateWithLength(16)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrInternalServer.WithCause(err))
		return
	}
	verifier, err := signer.GenerateWithLength(32)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrInternalServer.WithCause(err))
		return
	}

	h.setHandshakeCookie(w, oauthStateCookie, state)
	h.setHandshakeCookie(w, oauthVerifierCookie, verifier)

	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	http.Redirect(w, r, h.google.AuthCodeURL(state, challenge), http.StatusFound)
}

// handleOAuthCallback handles GET /v1/auth/oauth/google/callback.
func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.writeError(w, r, http.StatusNotFound, domain.ErrBadRequest.Code, "google sign-in is not enabled", nil)
		return
	}

	query := r.URL.Query()
	state := query.Get("state")
	code := query.Get("code")
	stateCookie, serr := r.Cookie(oauthStateCookie)
	verifierCookie, verr := r.Cookie(oauthVerifierCookie)
	h.clearHandshakeCookies(w)

	if code == "" || state == "" || serr != nil || verr != nil || stateCookie.Value != state {
		h.writeError(w, r, http.StatusUnauthorized, domain.ErrInvalidCredentials.Code, "oauth state mismatch", nil)
		return
	}

	ident, err := h.google.ExchangeCode(r.Context(), code, verifierCookie.Value)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp, err := h.accounts.LoginWithIdentity(r.Context(), ident, r.UserAgent(), getClientIP(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	logger.L(r.Context()).Info("external sign-in",
		"provider", h.google.Name(),
		"user_id", resp.User.ID,
	)
	h.countCreated("identity")
	h.cookies.Issue(w, resp.User.ID, resp.Token, resp.Session.ExpiresAt)
	h.writeJSON(w, r, http.StatusOK, LoginResponse{
		User:      userToResponse(resp.User),
		ExpiresAt: resp.Session.ExpiresAt,
	})
}

func (h *Handler) setHandshakeCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/v1/auth/oauth",
		MaxAge:   int(oauthHandshakeTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearHandshakeCookies(w http.ResponseWriter) {
	for _, name := range []string{oauthStateCookie, oauthVerifierCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/v1/auth/oauth",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
