// Package server provides the HTTP API for kioku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/connectivity"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/index"
	"github.com/hyperjump/kioku/internal/memsync"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/pkg/utils"
	"go.uber.org/zap"
)

// Deps are the components the API exposes. Embedder is optional and only feeds
// the status endpoint.
type Deps struct {
	Engine   *search.Engine
	Memory   *memsync.Service
	Index    *index.Index
	Monitor  *connectivity.Monitor
	Embedder *embedding.Provider
}

// Server is the HTTP server for the kioku API.
type Server struct {
	engine   *search.Engine
	memory   *memsync.Service
	index    *index.Index
	monitor  *connectivity.Monitor
	embedder *embedding.Provider
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		engine:   deps.Engine,
		memory:   deps.Memory,
		index:    deps.Index,
		monitor:  deps.Monitor,
		embedder: deps.Embedder,
		config:   cfg,
		logger:   utils.OrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/identity", s.handleIdentity)

		r.Post("/search", s.handleSearch)
		r.Post("/search/context", s.handleSearchContext)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handleUpdateProfile)
		r.Get("/facts", s.handleGetFacts)
		r.Put("/facts", s.handleSetFact)
		r.Delete("/facts/{id}", s.handleDeleteFact)
		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handleSetPreference)
		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{id}/messages", s.handleGetMessages)
		r.Post("/sessions/{id}/messages", s.handleAddMessage)
		r.Get("/consent", s.handleGetConsent)
		r.Put("/consent", s.handleUpdateConsent)

		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/sync", s.handleForceSync)
		r.Put("/connectivity", s.handleSetConnectivity)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
