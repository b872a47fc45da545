// Package server provides the web front end: the search page and its JSON API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/artcollector/internal/config"
	"github.com/hyperjump/artcollector/internal/search"
	"github.com/hyperjump/artcollector/internal/ui"
	"go.uber.org/zap"
)

// Server is the HTTP server for the search page.
type Server struct {
	renderer *ui.Renderer
	sessions *sessionStore
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server whose sessions search catalog.
func NewServer(catalog search.Catalog, cfg *config.ServerConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer, err := ui.NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{
		renderer: renderer,
		sessions: newSessionStore(catalog, cfg.MaxSessions, cfg.SessionTTL, logger),
		config:   cfg,
		logger:   logger,
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fields", s.handleFields)
		r.Post("/search", s.handleSearch)
		r.Get("/state", s.handleState)
		r.Get("/references", s.handleReferences)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
