// Package server exposes the ingestion and analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Config controls limits and defaults of the HTTP API.
type Config struct {
	// MaxUploadBytes caps request bodies, uploads included.
	MaxUploadBytes int64
	// RequestTimeout bounds each request, remote fetches included.
	RequestTimeout time.Duration
	// FetchToken is sent as a bearer token when fetching URL sources.
	FetchToken string
	// FetchHosts lists the hosts URL sources may name: an exact host, a
	// ".suffix" matching its subdomains, or "*" for any host. Empty disables
	// URL sources.
	FetchHosts []string
	Options    analysis.Options
	// Client is used for URL sources; nil uses a client bounded by RequestTimeout.
	Client *http.Client
}

// Server routes API requests. It keeps no state between requests.
type Server struct {
	cfg    Config
	log    logrus.FieldLogger
	router chi.Router
}

// New builds a Server with its middleware stack and routes.
func New(cfg Config, log logrus.FieldLogger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = log
	}
	s := &Server{cfg: cfg, log: log, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/sheets", s.handleSheets)
		r.Post("/preview", s.handlePreview)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/correlation", s.handleCorrelation)
		r.Post("/export", s.handleExport)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithFields(logrus.Fields{
					"request_id":  middleware.GetReqID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      ww.Status(),
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
				}).Info("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
