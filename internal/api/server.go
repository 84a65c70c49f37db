// Package api provides the HTTP API server and handlers for the Pagemark server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pagemarkapp/pagemark-server/internal/config"
	"github.com/pagemarkapp/pagemark-server/internal/ratelimit"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	syncRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with middleware and all routes configured.
func NewServer(st store.Store, services *Services, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		store:           st,
		services:        services,
		router:          chi.NewRouter(),
		logger:          logger,
		syncRateLimiter: ratelimit.New(cfg.Sync.RateLimitRPS, cfg.Sync.RateLimitBurst),
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("Pagemark API", "1.0.0")
	// Response bodies carry exactly the documented shapes; no $schema field.
	humaConfig.Transformers = nil
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerSyncRoutes()
	s.registerMaintenanceRoutes()
	s.registerSearchRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server's middleware.
func (s *Server) Close() {
	s.syncRateLimiter.Stop()
}

// setupMiddleware configures the middleware stack. Order matters: RealIP
// must run before the rate limiter so limits key on the actual client.
func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.rateLimitSyncMutations)
}
