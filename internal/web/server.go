// Package web exposes the scan and analysis pipeline as a JSON API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"ivcrush/internal/config"
	"ivcrush/internal/provider"
	"ivcrush/internal/store"
	"ivcrush/internal/symbols"
)

// Server is the HTTP server around the analysis pipeline
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	cfg      *config.Config
	provider provider.Provider
	calendar *symbols.CalendarLoader
	store    *store.Store
}

// New creates the server. store may be nil; the runs endpoints then report
// 503.
func New(cfg *config.Config, p provider.Provider, cal *symbols.CalendarLoader, st *store.Store, log zerolog.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      log.With().Str("component", "web").Logger(),
		cfg:      cfg,
		provider: p,
		calendar: cal,
		store:    st,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // scans can take a while
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		if s.cfg.Web.JWTSecret != "" {
			r.Use(bearerAuth(s.cfg.Web.JWTSecret))
		}
		r.Post("/api/analyze", s.handleAnalyze)
		r.Post("/api/scan", s.handleScan)
		r.Get("/api/runs", s.handleListRuns)
		r.Get("/api/runs/{id}", s.handleGetRun)
	})
}

// Start blocks serving HTTP until Shutdown or a listener error
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting web server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
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
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
