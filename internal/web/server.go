// Package web provides the HTTP server and handlers for stock loads.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/stockload/internal/config"
	"github.com/JonMunkholm/stockload/internal/core"
	mw "github.com/JonMunkholm/stockload/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTimeout = 60 * time.Second

// LoadService is the part of core.Service the server depends on.
type LoadService interface {
	LoadFile(ctx context.Context, sourceName string, r io.Reader) (*core.LoadResult, error)
	ListLoads(ctx context.Context) ([]core.LoadSummary, error)
	GetLoad(ctx context.Context, loadID int64) (*core.Load, error)
	Revert(ctx context.Context, loadID int64) (core.RevertResult, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP server for stock loads.
type Server struct {
	service LoadService
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service LoadService, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Loads run under LOAD_TIMEOUT in core rather than the request timeout.
	requestTimeout := s.cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	timeout := middleware.Timeout(requestTimeout)
	auth := mw.RequireAPIKey(s.cfg.Security)

	s.router.With(timeout).Get("/", s.handleIndex)
	s.router.With(timeout).Get("/healthz", s.handleHealth)

	s.router.Route("/api/loads", func(r chi.Router) {
		r.With(auth).Post("/", s.handleCreateLoad)
		r.With(timeout).Get("/", s.handleListLoads)
		r.With(timeout).Get("/{loadID}", s.handleGetLoad)
		r.With(auth, timeout).Post("/{loadID}/revert", s.handleRevert)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	srv := s.cfg.Server
	s.server = &http.Server{
		Addr:         srv.Addr(),
		Handler:      s.router,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  srv.IdleTimeout,
	}

	slog.Info("starting server", "addr", srv.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Inline styles only; the page has no scripts.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
