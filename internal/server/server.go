// Package server exposes the cached screening results and pipeline
// status over a read-only HTTP API, following the teacher's chi-based
// module/route-file layout.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/jsj9346/screener/internal/orchestrator"
	"github.com/jsj9346/screener/internal/repository"
)

// Config wires the repositories and orchestrator the server reads from.
// Nothing here ever writes: order submission and pipeline runs stay on
// the cmd/screener CLI and the scheduler.
type Config struct {
	Port       int
	Log        zerolog.Logger
	Stage0Repo *repository.Stage0Repository
	Stage1Repo *repository.Stage1Repository
	Stage2Repo *repository.Stage2Repository
	TradeRepo  *repository.TradeRepository
	ExecLog    *repository.ExecutionLogRepository
	Orch       *orchestrator.Orchestrator
	DevMode    bool
}

// Server is the read-only HTTP API over the embedded store.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	stage0Repo *repository.Stage0Repository
	stage1Repo *repository.Stage1Repository
	stage2Repo *repository.Stage2Repository
	tradeRepo  *repository.TradeRepository
	execLog    *repository.ExecutionLogRepository
	orch       *orchestrator.Orchestrator
}

func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		stage0Repo: cfg.Stage0Repo,
		stage1Repo: cfg.Stage1Repo,
		stage2Repo: cfg.Stage2Repo,
		tradeRepo:  cfg.TradeRepo,
		execLog:    cfg.ExecLog,
		orch:       cfg.Orch,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/status", func(r chi.Router) {
			r.Get("/{region}", s.handleStatus)
		})
		r.Route("/stage0", func(r chi.Router) {
			r.Get("/{region}", s.handleStage0Passed)
		})
		r.Route("/stage1", func(r chi.Router) {
			r.Get("/{region}", s.handleStage1Passed)
		})
		r.Route("/stage2", func(r chi.Router) {
			r.Get("/{region}", s.handleStage2Latest)
		})
		r.Route("/trades", func(r chi.Router) {
			r.Get("/{region}/open", s.handleOpenTrades)
			r.Get("/{region}/recent", s.handleRecentTrades)
		})
		r.Route("/execlog", func(r chi.Router) {
			r.Get("/{region}/{stage}", s.handleExecutionLog)
		})
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
