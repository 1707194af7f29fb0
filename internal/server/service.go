// Package server provides the HTTP surface for inspo.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/internal/analysis"
	"github.com/dailyinspo/inspo/internal/chat"
	"github.com/dailyinspo/inspo/internal/config"
	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
	"github.com/dailyinspo/inspo/internal/generation"
	"github.com/dailyinspo/inspo/internal/scheduler"
)

// Service is the HTTP service tying the stores and domain components to
// the router.
type Service struct {
	version string
	config  *config.Config
	store   *dbgorm.Store

	ideaStore    *dbgorm.IdeaStore
	logStore     *dbgorm.GenerationLogStore
	projectStore *dbgorm.ProjectStore
	chatStore    *dbgorm.ChatStore

	registry    *chat.Registry
	responder   *chat.Responder
	runner      *analysis.Runner
	scheduler   *scheduler.Scheduler
	generateCmd *generation.Command

	router chi.Router

	ctx    context.Context
	cancel context.CancelFunc

	startTime time.Time
	ready     atomic.Bool
}

// Options carries the constructed dependencies into NewService.
type Options struct {
	Version     string
	Config      *config.Config
	Store       *dbgorm.Store
	Registry    *chat.Registry
	Responder   *chat.Responder
	Runner      *analysis.Runner
	Scheduler   *scheduler.Scheduler
	GenerateCmd *generation.Command
}

// NewService wires the stores and routes. The caller owns the store and
// scheduler lifecycles.
func NewService(opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	ideaStore := dbgorm.NewIdeaStore(opts.Store)

	svc := &Service{
		version:      opts.Version,
		config:       opts.Config,
		store:        opts.Store,
		ideaStore:    ideaStore,
		logStore:     dbgorm.NewGenerationLogStore(opts.Store),
		projectStore: dbgorm.NewProjectStore(opts.Store, ideaStore),
		chatStore:    dbgorm.NewChatStore(opts.Store),
		registry:     opts.Registry,
		responder:    opts.Responder,
		runner:       opts.Runner,
		scheduler:    opts.Scheduler,
		generateCmd:  opts.GenerateCmd,
		router:       chi.NewRouter(),
		ctx:          ctx,
		cancel:       cancel,
		startTime:    time.Now(),
	}

	svc.setupRoutes()
	svc.ready.Store(true)

	return svc
}

// Router returns the configured HTTP handler.
func (s *Service) Router() http.Handler {
	return s.router
}

// Shutdown cancels background request contexts and closes open chat
// listeners.
func (s *Service) Shutdown() {
	s.ready.Store(false)
	s.cancel()
	s.registry.CloseAll()
	s.runner.Wait()
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/ideas", func(r chi.Router) {
			r.Get("/", s.handleListIdeas)
			r.Get("/search/", s.handleSearchIdeas)
			r.Get("/random/", s.handleRandomIdea)
			r.Get("/recent/", s.handleRecentIdeas)
			r.Get("/stats/", s.handleIdeaStats)
			r.Post("/generate/", s.handleGenerateIdea)
			r.Get("/{id}", s.handleGetIdea)
			r.Delete("/{id}", s.handleDeleteIdea)
		})

		r.Route("/filters", func(r chi.Router) {
			r.Get("/tags/", s.handleAllTags)
			r.Get("/tags/{category}", s.handleTagCategory)
			r.Get("/industries/", s.handleIndustries)
			r.Get("/technologies/", s.handleTechnologies)
			r.Get("/complexity-levels/", s.handleComplexityLevels)
			r.Get("/target-markets/", s.handleTargetMarkets)
			r.Post("/validate/", s.handleValidateFilters)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleCreateProject)
			r.Get("/", s.handleListProjects)
			r.Get("/{id}", s.handleGetProject)
			r.Put("/{id}", s.handleUpdateProject)
			r.Delete("/{id}", s.handleDeleteProject)
			r.Get("/{id}/ideas", s.handleProjectIdeas)
			r.Post("/{id}/connect-idea/{ideaID}", s.handleConnectIdea)
			r.Delete("/{id}/connect-idea/{ideaID}", s.handleDisconnectIdea)
			r.Post("/{id}/analyze", s.handleAnalyzeProject)
			r.Get("/{id}/analysis", s.handleProjectAnalyses)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{id}", s.handleListSessions)
			r.Get("/sessions/{id}/messages", s.handleListMessages)
			r.Post("/sessions/{id}/messages", s.handleSendMessage)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
			r.Get("/sessions/{id}/export", s.handleExportSession)
			r.Get("/sessions/{id}/ws", s.handleChatWS)
		})
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.ready.Load() {
		status = "shutting down"
		code = http.StatusServiceUnavailable
	} else if err := s.store.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// requestLogger logs each request with method, path, status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeJSON serializes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes the error payload shape used across the API.
func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
