// Package server provides the HTTP API for barstamp.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/akvl/barstamp/internal/annotate"
	"github.com/akvl/barstamp/internal/config"
	"github.com/akvl/barstamp/internal/importer"
	"github.com/akvl/barstamp/internal/lookup"
	"github.com/akvl/barstamp/internal/store"
)

// WatchService is the subset of the watcher the API manages.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the barstamp API.
type Server struct {
	store     store.Store
	finder    *lookup.Finder
	index     lookup.Index
	importer  *importer.Importer
	annotator *annotate.Annotator
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server

	// watch management; nil when the watcher is not running
	watch      WatchService
	configPath string
	fullConfig *config.Config
	configMu   sync.Mutex
}

// NewServer creates a server with the given dependencies. watch, configPath,
// and fullConfig may be zero when the watcher is disabled; watch endpoints
// then answer 501.
func NewServer(
	st store.Store,
	finder *lookup.Finder,
	idx lookup.Index,
	imp *importer.Importer,
	ann *annotate.Annotator,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
	fullConfig *config.Config,
) *Server {
	return &Server{
		store:      st,
		finder:     finder,
		index:      idx,
		importer:   imp,
		annotator:  ann,
		config:     cfg,
		logger:     logger,
		watch:      watch,
		configPath: configPath,
		fullConfig: fullConfig,
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/find", s.handleFind)
	r.Get("/api/v1/records", s.handleListRecords)
	r.Get("/api/v1/records/{id}", s.handleGetRecord)
	r.Delete("/api/v1/records/{id}", s.handleDeleteRecord)
	r.Post("/api/v1/import", s.handleImport)
	r.Post("/api/v1/annotate", s.handleAnnotate)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
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
