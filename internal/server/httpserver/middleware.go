package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/internal/core/service"
	"github.com/voralek/sessguard/internal/server/httpserver/handler"
	"github.com/voralek/sessguard/internal/telemetry/logger"
	"github.com/voralek/sessguard/internal/telemetry/metric"
	"github.com/voralek/sessguard/pkg/signer"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// MiddlewareConfig holds configuration for middlewares.
type MiddlewareConfig struct {
	AuthService *service.AuthService
	Logger      logger.Logger
	Metrics     *metric.Registry
	Cookies     handler.CookiePolicy
}

// RequestID adds a unique request ID to each request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				if id, err := signer.GenerateWithLength(12); err == nil {
					requestID = "req-" + id
				} else {
					requestID = "req-unknown"
				}
			}

			w.Header().Set("X-Request-ID", requestID)
			ctx := logger.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth creates the authentication gate middleware. It reads the cookie
// pair, runs the full gate, and either forwards the request with the
// result on the context or answers for the handler: rejections get a
// 401 with cookie handling per error class, and a refreshed session
// gets a distinguished reply carrying the fresh cookie pair.
func Auth(cfg *MiddlewareConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, token := handler.ReadCredentials(r)

			resp, err := cfg.AuthService.Authenticate(r.Context(), &service.AuthRequest{
				UserID:    userID,
				Token:     token,
				UserAgent: r.UserAgent(),
				IPAddress: r.RemoteAddr,
			})
			if err != nil {
				writeAuthReject(w, r, cfg, err)
				return
			}

			if cfg.Metrics != nil {
				if resp.CacheHit {
					cfg.Metrics.CacheLookups.WithLabelValues("hit").Inc()
				} else {
					cfg.Metrics.CacheLookups.WithLabelValues("miss").Inc()
				}
			}

			// Rotated session: reissue cookies and tell the client to
			// retry instead of serving the requested resource.
			if resp.Refreshed {
				if cfg.Metrics != nil {
					cfg.Metrics.AuthTotal.WithLabelValues("refreshed").Inc()
					cfg.Metrics.SessionsCreated.WithLabelValues("refresh").Inc()
					cfg.Metrics.SessionsRemoved.WithLabelValues("rotated").Inc()
				}
				cfg.Cookies.Issue(w, resp.User.ID, resp.Token, resp.Session.ExpiresAt)
				writeEnvelope(w, r, http.StatusUnauthorized,
					domain.ErrSessionRefreshed.Code, "session refreshed, retry with new cookies")
				return
			}

			if cfg.Metrics != nil {
				cfg.Metrics.AuthTotal.WithLabelValues("ok").Inc()
			}
			ctx := handler.WithAuth(r.Context(), resp)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthReject maps a gate error onto the wire. Parse, signature
// and expiry failures additionally clear the cookie pair; a bare
// missing-cookie rejection leaves whatever the client has alone.
func writeAuthReject(w http.ResponseWriter, r *http.Request, cfg *MiddlewareConfig, err error) {
	code := domain.GetErrorCode(err)
	status := http.StatusUnauthorized

	switch code {
	case domain.ErrNoCookie.Code:
		// Nothing to clear.
	case domain.ErrCookieParse.Code, domain.ErrBadSignature.Code, domain.ErrSessionExpired.Code:
		cfg.Cookies.Clear(w)
	default:
		status = http.StatusInternalServerError
		if code == "" {
			code = domain.ErrInternalServer.Code
		}
		logger.L(r.Context()).Error("auth gate failure", "error", err)
	}

	if cfg.Metrics != nil {
		if status == http.StatusUnauthorized {
			cfg.Metrics.AuthTotal.WithLabelValues("rejected").Inc()
		} else {
			cfg.Metrics.AuthTotal.WithLabelValues("error").Inc()
		}
	}
	writeEnvelope(w, r, status, code, err.Error())
}

// Recover recovers from panics and returns 500 error.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeEnvelope(w, r, http.StatusInternalServerError,
						domain.ErrInternalServer.Code, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Observe logs each completed request and records its latency.
func Observe(log logger.Logger, metrics *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = r.URL.Path
			}
			if metrics != nil {
				metrics.RequestDuration.
					WithLabelValues(route, strconv.Itoa(wrapped.statusCode)).
					Observe(duration.Seconds())
			}

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
			}
			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Info("request completed", attrs...)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// writeEnvelope writes a bare envelope response from middleware, where
// no Handler is in scope.
func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(handler.NewErrorResponse(
		logger.RequestIDFromContext(r.Context()), code, message, nil))
}
