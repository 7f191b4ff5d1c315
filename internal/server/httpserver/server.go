// Package httpserver provides the HTTP/HTTPS server for sessguard.
package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/voralek/sessguard/internal/server/config"
)

// Server wraps http.Server with lifecycle management.
type Server struct {
	httpServer *http.Server
}

// New creates a new Server with the given address and handler.
func New(cfg config.HTTPConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// ListenAndServe starts the server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServeTLS starts the server with TLS. It blocks until the
// server stops.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	err := s.httpServer.ListenAndServeTLS(certFile, keyFile)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server, draining in-flight
// requests until the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
