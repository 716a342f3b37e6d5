// Package server exposes the splitter over HTTP.
//
// Routes:
//
//	POST /v1/split               split one readout
//	POST /v1/split/batch         split an array or JSON Lines stream of readouts
//	GET  /v1/topology            the whole topology as DOT, or SVG with ?format=svg
//	GET  /v1/topology/{string}   the rings of one string
//	GET  /healthz                liveness
//	GET  /metrics                Prometheus metrics
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/hivesplit/pkg/cache"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
	"github.com/matzehuels/hivesplit/pkg/observability"
	"github.com/matzehuels/hivesplit/pkg/pipeline"
)

// DefaultMaxBody bounds request bodies.
const DefaultMaxBody = 32 << 20

// Options configures a Server.
type Options struct {
	Runner   *pipeline.Runner
	Topology *honeycomb.Topology
	Logger   *log.Logger

	// Gatherer serves /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// MaxBody bounds request bodies in bytes. Zero means DefaultMaxBody.
	MaxBody int64
	// Workers bounds per-request batch concurrency.
	Workers int
}

// Server is the HTTP front end of a pipeline.Runner.
type Server struct {
	opts   Options
	router chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if opts.Topology == nil && opts.Runner != nil && opts.Runner.Clusterer != nil {
		opts.Topology = opts.Runner.Clusterer.Topology()
	}

	s := &Server{opts: opts}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/split", s.handleSplit)
		r.Post("/split/batch", s.handleBatch)
		r.Get("/topology", s.handleTopologyGraph)
		r.Get("/topology/{string}", s.handleTopologyString)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.opts.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe logs every request and reports it to the HTTP hooks under its
// route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, d)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) topologyCache() (cache.Cache, cache.Keyer) {
	if s.opts.Runner == nil {
		return cache.NewNullCache(), cache.NewDefaultKeyer()
	}
	return s.opts.Runner.Cache, s.opts.Runner.Keyer
}
