// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/omq/mealsync/internal/application/mealsync"
	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/omq/mealsync/internal/infrastructure/http/handlers"
	"github.com/omq/mealsync/internal/infrastructure/http/middleware"
	"github.com/omq/mealsync/internal/infrastructure/monitoring"
	"github.com/omq/mealsync/internal/infrastructure/security"
	"github.com/omq/mealsync/internal/ports/inbound"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

// Dependencies are the services the API server exposes
type Dependencies struct {
	Registry *mealsync.Registry
	Shopping inbound.ShoppingService
	Auth     *security.AuthService
	// Metrics is optional. When set, requests are measured and /metrics is served.
	Metrics *monitoring.Metrics
	Health  map[string]HealthCheck
	// MediaRoot serves locally stored images under /media when set
	MediaRoot string
}

// Server is the JSON API HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, deps Dependencies, log *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log.Named("api-server"),
		deps:   deps,
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      otelhttp.NewHandler(s.router, "mealsync-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	if s.config.Server.EnableCORS {
		r.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	}
	if s.deps.Metrics != nil {
		r.Use(middleware.Metrics(s.deps.Metrics))
	}
	if s.config.Server.EnableCompression {
		compressor := chimiddleware.NewCompressor(5, "application/json", "text/plain")
		compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
			return brotli.NewWriterLevel(w, level)
		})
		r.Use(compressor.Handler)
	}

	r.Get("/health", s.handleHealthCheck)
	if s.deps.Metrics != nil && s.config.Server.EnableMetrics {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}
	if s.deps.MediaRoot != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(s.deps.MediaRoot))))
	}

	openAPI := NewOpenAPIHandler(s.logger)
	r.Get("/api/v1/openapi.yaml", openAPI.ServeOpenAPISpec)
	r.Get("/api/v1/docs", openAPI.ServeSwaggerUI)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JSONOnly())
		s.setupAPIV1Routes(r)
	})

	return r
}

func (s *Server) setupAPIV1Routes(r chi.Router) {
	mealH := handlers.NewMealHandlers(s.deps.Registry, s.logger)
	shopH := handlers.NewShoppingHandlers(s.deps.Shopping, s.logger)
	metaH := handlers.NewMetaHandlers(s.logger)
	sessH := handlers.NewSessionHandlers(s.deps.Auth, s.deps.Registry, s.config.Auth.AllowDevTokens, s.logger)
	authenticate := middleware.Authenticate(s.deps.Auth, s.logger)

	r.Post("/session", sessH.Issue)
	r.Get("/meta/categories", metaH.Categories)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/session", sessH.Current)
		r.Delete("/session", sessH.End)

		r.Route("/meals", func(r chi.Router) {
			r.Get("/", mealH.ListMeals)
			r.Post("/", mealH.CreateMeal)
			r.Patch("/{id}", mealH.RenameMeal)
			r.Delete("/{id}", mealH.DeleteMeal)
		})

		r.Route("/shopping", func(r chi.Router) {
			r.Get("/", shopH.GetList)
			r.Post("/items", shopH.AddItem)
			r.Delete("/items", shopH.Clear)
			r.Patch("/items/{id}", shopH.UpdateItem)
			r.Delete("/items/{id}", shopH.RemoveItem)
		})
	})
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Health))
	for name, check := range s.deps.Health {
		if err := check(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	body := handlers.APIResponse{
		Success: status == http.StatusOK,
		Data: map[string]interface{}{
			"service":   s.config.App.Name,
			"version":   s.config.App.Version,
			"checks":    checks,
			"timestamp": time.Now().Unix(),
		},
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
