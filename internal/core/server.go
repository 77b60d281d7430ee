// Package core provides the API chassis for the notification service: the
// chi router, cross-cutting middleware (recovery, request IDs, logging,
// CORS, admin auth), response envelopes, and request validation. Domain
// handlers mount onto it without knowing about any of these concerns.
package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"teanotify/internal/config"
)

// defaultRequestTimeout is the soft deadline applied to request contexts
// when the config does not specify one.
const defaultRequestTimeout = 29 * time.Second

// defaultRedactedHeaders lists header names whose values are masked in
// request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Admin-Api-Key",
}

// RouteRegistrar mounts a group of domain routes onto the router. The
// indirection keeps core free of handler imports.
type RouteRegistrar func(r chi.Router)

// Server bundles the router with the cross-cutting dependencies every
// handler needs.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// HealthProbes are checked by GET /health. Register one per critical
	// dependency (database, external transports in real mode).
	HealthProbes []HealthProbe

	// V1Routes is populated by main before MountRoutes.
	V1Routes []RouteRegistrar

	router *chi.Mux
}

// NewServer creates a Server with its router and validator initialized.
// Routes are mounted separately so tests can register their own.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// MountRoutes registers the global middleware chain, the /v1 domain routes,
// and the public health endpoint.
//
// Middleware ordering matters: Recoverer is outermost so every panic is
// caught; the context timeout and request ID are set before anything logs;
// CORS runs before domain routing so preflights short-circuit.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.Config.Server.CorsAllowedOrigins))

	s.router.Route("/v1", func(r chi.Router) {
		for _, mount := range s.V1Routes {
			mount(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
}

// requestTimeout returns the configured soft deadline for requests.
func (s *Server) requestTimeout() time.Duration {
	if s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}
