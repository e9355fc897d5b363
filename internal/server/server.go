// Package server provides the HTTP API for shiori.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/quiz"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/watcher"
	"go.uber.org/zap"
)

// StatsSource reports the size of the knowledge base.
type StatsSource interface {
	Stats(ctx context.Context) (models.Stats, error)
}

// InboxService manages the watched inbox directories.
type InboxService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
	Stats() watcher.Stats
}

// Server is the HTTP server for the shiori API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	quizzes *quiz.Manager
	store   StatsSource
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	locks   *keyedMutex

	inbox      InboxService
	configPath string
	configMu   sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithInbox enables the inbox endpoints. When configPath is set, directory
// changes are written back to the config file.
func WithInbox(inbox InboxService, configPath string) Option {
	return func(s *Server) {
		s.inbox = inbox
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	quizzes *quiz.Manager,
	store StatsSource,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		engine:  engine,
		indexer: idx,
		quizzes: quizzes,
		store:   store,
		config:  cfg,
		logger:  logger,
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler serving every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", s.handleListArticles)
			r.Post("/", s.handleIngestURL)
			r.Delete("/", s.handleDeleteArticle)
			r.Post("/raw", s.handleIngestRaw)
			r.Get("/text", s.handleArticleText)
		})
		r.Post("/ask", s.handleAsk)
		r.Post("/retrieve", s.handleRetrieve)
		r.Route("/quizzes", func(r chi.Router) {
			r.Post("/", s.handleQuizStart)
			r.Get("/{id}", s.handleQuizGet)
			r.Delete("/{id}", s.handleQuizCancel)
			r.Post("/{id}/article", s.handleQuizArticle)
			r.Post("/{id}/count", s.handleQuizCount)
			r.Post("/{id}/answer", s.handleQuizAnswer)
		})
		r.Route("/inbox", func(r chi.Router) {
			r.Get("/", s.handleInboxList)
			r.Post("/", s.handleInboxAdd)
			r.Delete("/", s.handleInboxRemove)
		})
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
		Handler:           s.Router(),
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
