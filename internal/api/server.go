// Package api serves the catalog, projection and comparison endpoints over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-finance/baobab/internal/domain"
)

// MaxBodyBytes caps request bodies; a comparison request is a few hundred bytes.
const MaxBodyBytes = 1 << 20

// Server is the Baobab HTTP API.
type Server struct {
	router  *chi.Mux
	handler *Handler
	http    *http.Server
}

// NewServer wires deps behind the middleware stack. A nil gatherer serves
// the default Prometheus registry on /metrics.
func NewServer(cfg domain.ServerConfig, deps Deps, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(
		CORSMiddleware(cfg.CORSOrigins),
		TracingMiddleware,
		LoggingMiddleware,
		RecoverMiddleware,
		middleware.RealIP,
		middleware.RequestSize(MaxBodyBytes),
		middleware.Compress(5),
	)
	mount(r, h, gatherer)

	return &Server{
		router:  r,
		handler: h,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           r,
			ReadTimeout:       seconds(cfg.ReadTimeout),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      seconds(cfg.WriteTimeout),
			IdleTimeout:       2 * time.Minute,
		},
	}
}

func mount(r chi.Router, h *Handler, gatherer prometheus.Gatherer) {
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/scenarios", h.ListScenarios)
	r.Get("/scenarios/{id}", h.GetScenario)
	r.Get("/regions", h.ListRegions)
	r.Get("/crops", h.ListCrops)

	r.Get("/projections", h.Project)
	r.Get("/recommendations", h.Recommend)

	r.Post("/compare", h.Compare)
	r.Route("/comparisons", func(r chi.Router) {
		r.Post("/", h.SubmitComparison)
		r.Get("/", h.ListComparisons)
		r.Get("/{id}", h.GetComparison)
		r.Get("/{id}/outlook", h.GetOutlook)
	})
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Addr is the listen address, host:port.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start blocks serving requests until Shutdown. It returns
// http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router exposes the routed handler, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the endpoint handlers.
func (s *Server) Handler() *Handler {
	return s.handler
}
