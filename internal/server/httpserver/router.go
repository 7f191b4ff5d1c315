package httpserver

import (
	"net/http"

	"github.com/voralek/sessguard/internal/collab"
	"github.com/voralek/sessguard/internal/core/service"
	"github.com/voralek/sessguard/internal/server/httpserver/handler"
	"github.com/voralek/sessguard/internal/telemetry/logger"
	"github.com/voralek/sessguard/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// AccountService handles registration and login flows.
	AccountService *service.AccountService

	// SessionService handles session listing and teardown.
	SessionService *service.SessionService

	// AuthService runs the gate in front of protected routes.
	AuthService *service.AuthService

	// Google is the external identity provider (nil disables it).
	Google collab.OAuthProvider

	// Objects serves stored avatars (nil disables serving).
	Objects collab.ObjectStore

	// Metrics receives gate and request observations (nil disables).
	Metrics *metric.Registry

	// Cookies decides the attributes of issued cookies.
	Cookies handler.CookiePolicy

	// Logger for request logging.
	Logger logger.Logger
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware. Public routes carry request id, panic recovery and
// observation; protected routes additionally pass the auth gate.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	h := handler.New(&handler.Config{
		Accounts: cfg.AccountService,
		Sessions: cfg.SessionService,
		Google:   cfg.Google,
		Objects:  cfg.Objects,
		Metrics:  cfg.Metrics,
		Cookies:  cfg.Cookies,
		Logger:   log,
	})

	middlewareCfg := &MiddlewareConfig{
		AuthService: cfg.AuthService,
		Logger:      log,
		Metrics:     cfg.Metrics,
		Cookies:     cfg.Cookies,
	}

	public := Chain(h, RequestID(), Recover(log), Observe(log, cfg.Metrics))
	protected := Chain(h, RequestID(), Recover(log), Observe(log, cfg.Metrics), Auth(middlewareCfg))

	mux := http.NewServeMux()

	// Health endpoint - no authentication required
	mux.Handle("GET /healthz", public)

	// Metrics endpoint - Prometheus format, outside the envelope
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), RequestID(), Recover(log)))
	}

	// Account endpoints - these mint the cookies, so no gate in front
	mux.Handle("POST /v1/auth/register", public)
	mux.Handle("POST /v1/auth/login", public)
	mux.Handle("POST /v1/auth/login/code", public)
	mux.Handle("GET /v1/auth/oauth/google", public)
	mux.Handle("GET /v1/auth/oauth/google/callback", public)

	// Session endpoints - require a valid session
	mux.Handle("GET /v1/sessions", protected)
	mux.Handle("POST /v1/auth/logout", protected)
	mux.Handle("POST /v1/auth/logout/others", protected)
	mux.Handle("POST /v1/auth/logout/selected", protected)

	// Profile endpoints - require a valid session
	mux.Handle("GET /v1/me", protected)
	mux.Handle("POST /v1/me/avatar", protected)
	mux.Handle("GET /v1/me/avatar", protected)

	return mux
}
