// Package server exposes stored leads over HTTP for dashboards and
// integrations. It reads from the lead store and can launch scraping
// batches, but never mutates leads itself.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/store"
)

// Runner launches one scraping batch. The pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, q model.Query) (*model.RunSummary, error)
}

// Options configures the HTTP server.
type Options struct {
	Store  store.Store
	Runner Runner // nil disables POST /api/search
	// CORSOrigins lists allowed origins; empty means allow all.
	CORSOrigins []string
}

// Server is the HTTP surface over the lead store.
type Server struct {
	store  store.Store
	runner Runner
	router *chi.Mux

	// base is the lifetime context for batches launched from
	// POST /api/search; set by Serve before the listener starts.
	base context.Context
}

func New(opts Options) *Server {
	s := &Server{
		store:  opts.Store,
		runner: opts.Runner,
		base:   context.Background(),
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/leads", s.handleListLeads)
		r.Get("/leads/{id}", s.handleGetLead)
		r.Get("/top", s.handleTopLeads)
		r.Get("/stats", s.handleStats)
		r.Post("/search", s.handleSearch)
	})

	s.router = r
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on the given port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, port int) error {
	s.base = ctx

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}
