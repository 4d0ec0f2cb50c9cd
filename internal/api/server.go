package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	redisadapter "migitrader/internal/adapters/redis"
	"migitrader/internal/metrics"
	insightssvc "migitrader/internal/services/insights"
	"migitrader/pkg/errors"
	"migitrader/pkg/logger"
)

// Server is the HTTP boundary consumed by the UI collaborator.
// It serves the insights JSON, a health probe and Prometheus metrics;
// rendering happens elsewhere.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	insights *insightssvc.Service
	redis    *redisadapter.Client
	log      *logger.Logger
}

// New creates a new HTTP server
func New(port int, insights *insightssvc.Service, redis *redisadapter.Client) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		insights: insights,
		redis:    redis,
		log:      logger.Get().With("component", "api"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/insights", s.handleGetInsights)
	})
}

func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	daily, err := s.insights.GetDaily(r.Context())
	if err != nil {
		s.log.Errorw("Insights pipeline failed", "error", err)

		status := http.StatusInternalServerError
		if errors.Is(err, errors.ErrFetchExhausted) {
			status = http.StatusBadGateway
		}
		s.writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, daily)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"

	if err := s.redis.Health(r.Context()); err != nil {
		// Degraded, not down: the pipeline still serves on a cache miss
		status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warnw("Failed to encode response", "error", err)
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.log.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
