package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/MrEthical07/goIntake/internal/observability"
	intakemw "github.com/MrEthical07/goIntake/middleware"
	"github.com/MrEthical07/goIntake/textgen"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 1 << 20

// Options wires the server's collaborators. Engine is required.
type Options struct {
	Engine    *goIntake.Engine
	Completer textgen.Completer
	Logger    *zap.Logger

	// Gatherer backs GET /metrics; nil leaves the route out.
	Gatherer    prometheus.Gatherer
	HTTPMetrics *observability.HTTPMetrics

	MaxBodyBytes int64

	// TrustProxyHeaders installs chi's RealIP. When false the socket peer
	// address is the client identity.
	TrustProxyHeaders bool

	ChatTimeout time.Duration
	// ChatSystem is used when a chat request carries no system prompt.
	ChatSystem string
}

// Server is the intake HTTP API.
type Server struct {
	router *chi.Mux
	http   *http.Server
	opts   Options
	log    *zap.Logger
}

func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("server: engine required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Completer == nil {
		opts.Completer = textgen.Echo{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(observability.RequestLogger(opts.Logger, opts.HTTPMetrics))
	r.Use(middleware.Recoverer)
	r.Use(intakemw.ClientContext)

	s := &Server{
		router: r,
		opts:   opts,
		log:    opts.Logger,
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "not_found", "the requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.registerRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and blocks until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.log.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
