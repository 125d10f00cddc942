package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/avlor/fraudgate/internal/adapter/http/handler"
	"github.com/avlor/fraudgate/internal/adapter/http/middleware"
	"github.com/avlor/fraudgate/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	WorkflowHandler    *handler.WorkflowHandler
	ReviewHandler      *handler.ReviewHandler
	AccountHandler     *handler.AccountHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	RateLimiter        *middleware.RateLimiter
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Submit)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Get("/{id}/decisions", cfg.TransactionHandler.ListDecisions)
			r.Get("/{id}/workflow", cfg.TransactionHandler.GetWorkflow)
		})

		// Workflows
		r.Route("/workflows", func(r chi.Router) {
			r.Get("/{id}", cfg.WorkflowHandler.Get)
			r.Post("/{id}/signals/review", cfg.WorkflowHandler.SignalReview)
			r.Post("/{id}/signals/manager-approval", cfg.WorkflowHandler.SignalManagerApproval)
			r.Post("/{id}/signals/override", cfg.WorkflowHandler.SignalOverride)
		})

		// Reviews
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", cfg.ReviewHandler.ListPending)
			r.Get("/{id}", cfg.ReviewHandler.Get)
		})

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/{number}", cfg.AccountHandler.Get)
		})
	})

	return r
}
