// Package handler provides HTTP request handlers for sessguard.
//
// This package implements the HTTP API endpoints for registration,
// login, session management, and profile operations.
package handler

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/voralek/sessguard/internal/collab"
	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/internal/core/service"
	"github.com/voralek/sessguard/internal/telemetry/logger"
	"github.com/voralek/sessguard/internal/telemetry/metric"
)

// Handler is the main HTTP handler that routes requests to appropriate
// handlers.
type Handler struct {
	accounts *service.AccountService
	sessions *service.SessionService
	google   collab.OAuthProvider // nil disables Google sign-in
	objects  collab.ObjectStore   // nil disables avatar serving
	metrics  *metric.Registry
	cookies  CookiePolicy
	log      logger.Logger
	mux      *http.ServeMux
}

// Config holds the dependencies of a Handler. Optional fields may be
// nil; the corresponding endpoints then answer 400 or 404.
type Config struct {
	Accounts *service.AccountService
	Sessions *service.SessionService
	Google   collab.OAuthProvider
	Objects  collab.ObjectStore
	Metrics  *metric.Registry
	Cookies  CookiePolicy
	Logger   logger.Logger
}

// New creates a new Handler with the given services.
func New(cfg *Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	h := &Handler{
		accounts: cfg.Accounts,
		sessions: cfg.Sessions,
		google:   cfg.Google,
		objects:  cfg.Objects,
		metrics:  cfg.Metrics,
		cookies:  cfg.Cookies,
		log:      log,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoint (no auth required)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)

	// Account endpoints (no auth required)
	h.mux.HandleFunc("POST /v1/auth/register", h.handleRegister)
	h.mux.HandleFunc("POST /v1/auth/login", h.handleLogin)
	h.mux.HandleFunc("POST /v1/auth/login/code", h.handleLoginWithCode)
	h.mux.HandleFunc("GET /v1/auth/oauth/google", h.handleOAuthStart)
	h.mux.HandleFunc("GET /v1/auth/oauth/google/callback", h.handleOAuthCallback)

	// Session endpoints (behind the auth gate)
	h.mux.HandleFunc("GET /v1/sessions", h.handleListSessions)
	h.mux.HandleFunc("POST /v1/auth/logout", h.handleLogout)
	h.mux.HandleFunc("POST /v1/auth/logout/others", h.handleLogoutOthers)
	h.mux.HandleFunc("POST /v1/auth/logout/selected", h.handleLogoutSelected)

	// Profile endpoints (behind the auth gate)
	h.mux.HandleFunc("GET /v1/me", h.handleMe)
	h.mux.HandleFunc("POST /v1/me/avatar", h.handleUploadAvatar)
	h.mux.HandleFunc("GET /v1/me/avatar", h.handleGetAvatar)
}

type contextKey string

const authContextKey contextKey = "sessguard.auth"

// WithAuth attaches an authentication result to the context. Called by
// the auth middleware; handlers behind it read it back with
// AuthFromContext.
func WithAuth(ctx context.Context, auth *service.AuthResponse) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves the authentication result from context.
func AuthFromContext(ctx context.Context) *service.AuthResponse {
	if auth, ok := ctx.Value(authContextKey).(*service.AuthResponse); ok {
		return auth
	}
	return nil
}

// requireAuth returns the authentication result or writes a 401. A nil
// result behind the auth middleware means a routing mistake, but the
// response is the same either way.
func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) *service.AuthResponse {
	auth := AuthFromContext(r.Context())
	if auth == nil {
		h.writeError(w, r, http.StatusUnauthorized, domain.ErrNoCookie.Code, domain.ErrNoCookie.Message, nil)
		return nil
	}
	return auth
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"),
		strings.HasSuffix(code, "-4012"), strings.HasSuffix(code, "-4013"),
		strings.HasSuffix(code, "-4014"), strings.HasSuffix(code, "-4015"):
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "SG-ARG-"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "SG-SYS-5"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// userToResponse converts a domain user to its API shape.
func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarKey: u.AvatarKey,
		CreatedAt: u.CreatedAt,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// countCreated bumps the session-creation counter when metrics are wired.
func (h *Handler) countCreated(trigger string) {
	if h.metrics != nil {
		h.metrics.SessionsCreated.WithLabelValues(trigger).Inc()
	}
}

// countRemoved bumps the session-removal counter when metrics are wired.
func (h *Handler) countRemoved(trigger string, n int) {
	if h.metrics != nil && n > 0 {
		h.metrics.SessionsRemoved.WithLabelValues(trigger).Add(float64(n))
	}
}
