// Package server exposes a file list over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/3leaps/bucketdeck/internal/errors"
	"github.com/3leaps/bucketdeck/internal/metrics"
	"github.com/3leaps/bucketdeck/internal/server/handlers"
	"github.com/3leaps/bucketdeck/internal/server/middleware"
)

// Server is the bucketdeck HTTP server.
type Server struct {
	host       string
	port       int
	opts       options
	router     chi.Router
	httpServer *http.Server
}

type options struct {
	files        handlers.FileService
	readOnly     bool
	metrics      bool
	limiter      *rate.Limiter
	logger       *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

// Option configures a Server.
type Option func(*options)

// WithFiles mounts the file list API over svc.
func WithFiles(svc handlers.FileService) Option {
	return func(o *options) { o.files = svc }
}

// WithReadOnly rejects deletes with 403.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) { o.readOnly = readOnly }
}

// WithMetrics exposes /metrics and records request metrics.
func WithMetrics(enabled bool) Option {
	return func(o *options) { o.metrics = enabled }
}

// WithRefreshLimit allows perSecond refreshes with the given burst.
func WithRefreshLimit(perSecond float64, burst int) Option {
	return func(o *options) { o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithLogger logs every request.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeouts sets the http.Server timeouts.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(o *options) {
		o.readTimeout, o.writeTimeout, o.idleTimeout = read, write, idle
	}
}

// New creates a server bound to host:port. Nothing listens until Start.
func New(host string, port int, opts ...Option) *Server {
	o := options{
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		idleTimeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{host: host, port: port, opts: o}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(host, fmt.Sprint(port)),
		Handler:           s.router,
		ReadTimeout:       o.readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      o.writeTimeout,
		IdleTimeout:       o.idleTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	if s.opts.metrics {
		r.Use(metrics.HTTPMiddleware)
	}
	if s.opts.logger != nil {
		r.Use(middleware.Logger(s.opts.logger))
	}

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	if s.opts.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	if s.opts.files != nil {
		fh := handlers.NewFilesHandler(s.opts.files, s.opts.readOnly, s.opts.limiter)
		r.Route("/api/v1/files", func(r chi.Router) {
			r.Get("/", fh.List)
			r.Post("/refresh", fh.Refresh)
			r.Delete("/*", fh.Delete)
		})
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
