// Package server implements the PageKeep HTTP server and route registration.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagekeep/pagekeep/internal/blob"
	"github.com/pagekeep/pagekeep/internal/config"
	"github.com/pagekeep/pagekeep/internal/handlers"
	"github.com/pagekeep/pagekeep/internal/library"
	"github.com/pagekeep/pagekeep/internal/metrics"
)

// Server is the PageKeep HTTP server.
type Server struct {
	cfg        *config.Config
	router     chi.Router
	api        huma.API
	store      blob.Store
	books      *handlers.BookHandler
	httpServer *http.Server
}

// HealthBody is the JSON body returned by the health check endpoint.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthOutput is the Huma output struct for the health check endpoint.
type HealthOutput struct {
	Body HealthBody
}

// New creates a Server wired to the given blob store and registers all
// routes on the Chi router.
func New(cfg *config.Config, store blob.Store) *Server {
	router := chi.NewMux()
	// Middleware chain: metricsMiddleware -> commonHeaders -> handler.
	// Registered on the router so the metrics middleware can read the
	// matched route pattern.
	router.Use(metricsMiddleware, commonHeaders)

	humaConfig := huma.DefaultConfig("PageKeep API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.OpenAPIPath = "/openapi"
	api := humachi.New(router, humaConfig)

	mgr := library.NewManager(store)
	grantTTL := time.Duration(cfg.Uploads.GrantTTL) * time.Second

	s := &Server{
		cfg:    cfg,
		router: router,
		api:    api,
		store:  store,
		books:  handlers.NewBookHandler(mgr, store, cfg.Server.MaxUploadSize, grantTTL),
	}

	metrics.Register()
	s.registerRoutes()
	return s
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router for use in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes configures all routes on the Chi router.
func (s *Server) registerRoutes() {
	// Register /health via Huma for auto-OpenAPI documentation.
	huma.Register(s.api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the PageKeep server.",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		return &HealthOutput{Body: HealthBody{Status: "ok"}}, nil
	})

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/books", func(r chi.Router) {
		r.Get("/", s.books.ListBooks)
		r.Post("/", s.books.CreateBook)
		r.Post("/reserve", s.books.ReserveUpload)
		r.Post("/confirm", s.books.ConfirmUpload)
		r.Post("/grant", s.books.GrantUpload)
		r.Get("/{id}/file", s.books.GetFile)
		r.Get("/{id}/cover", s.books.GetCover)
		r.Delete("/{id}", s.books.DeleteBook)
	})
}
