package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/avlor/fraudgate/internal/adapter/http/handler"
	apimiddleware "github.com/avlor/fraudgate/internal/adapter/http/middleware"
	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"owner_name":"Main"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_GetTransaction(t *testing.T) {
	router := NewRouter(newRouterConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/txn-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["id"] != "txn-1" {
		t.Fatalf("expected transaction id to round-trip, got %+v", resp)
	}
}

func TestNewRouter_ListPendingReviews(t *testing.T) {
	router := NewRouter(newRouterConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/transactions/",
		"GET /api/v1/transactions/{id}",
		"GET /api/v1/transactions/{id}/decisions",
		"GET /api/v1/transactions/{id}/workflow",
		"GET /api/v1/workflows/{id}",
		"POST /api/v1/workflows/{id}/signals/review",
		"POST /api/v1/workflows/{id}/signals/manager-approval",
		"POST /api/v1/workflows/{id}/signals/override",
		"GET /api/v1/reviews/",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/{number}",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(nil, &stubTransactionRepo{}, &stubDecisionRepo{}),
		WorkflowHandler:    handler.NewWorkflowHandler(nil),
		ReviewHandler:      handler.NewReviewHandler(&stubReviewRepo{}),
		AccountHandler:     handler.NewAccountHandler(nil),
		HealthHandler:      &handler.HealthHandler{},
		Logger:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubTransactionRepo struct{}

func (stubTransactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	return nil
}

func (stubTransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return &domain.Transaction{ID: id}, nil
}

func (stubTransactionRepo) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error {
	return nil
}

func (stubTransactionRepo) AppendStageEvent(ctx context.Context, id string, event domain.StageEvent) error {
	return nil
}

func (stubTransactionRepo) AddRiskFlags(ctx context.Context, id string, flags []string) error {
	return nil
}

func (stubTransactionRepo) ListByStatus(ctx context.Context, status domain.TransactionStatus, limit int) ([]*domain.Transaction, error) {
	return []*domain.Transaction{}, nil
}

type stubDecisionRepo struct{}

func (stubDecisionRepo) Create(ctx context.Context, tx usecase.Transaction, decision *domain.Decision) error {
	return nil
}

func (stubDecisionRepo) GetByID(ctx context.Context, id string) (*domain.Decision, error) {
	return &domain.Decision{ID: id}, nil
}

func (stubDecisionRepo) GetLatestByTransactionID(ctx context.Context, transactionID string) (*domain.Decision, error) {
	return nil, domain.ErrDecisionNotFound
}

func (stubDecisionRepo) ListByTransactionID(ctx context.Context, transactionID string) ([]*domain.Decision, error) {
	return []*domain.Decision{}, nil
}

type stubReviewRepo struct{}

func (stubReviewRepo) Create(ctx context.Context, tx usecase.Transaction, review *domain.HumanReview) error {
	return nil
}

func (stubReviewRepo) GetByID(ctx context.Context, id string) (*domain.HumanReview, error) {
	return &domain.HumanReview{ID: id}, nil
}

func (stubReviewRepo) Resolve(ctx context.Context, tx usecase.Transaction, id, resolvedBy string, resolvedAt time.Time) error {
	return nil
}

func (stubReviewRepo) ListPending(ctx context.Context, limit int) ([]*domain.HumanReview, error) {
	return []*domain.HumanReview{}, nil
}

func (stubReviewRepo) RecordSignal(ctx context.Context, tx usecase.Transaction, signal *domain.ReviewSignal) error {
	return nil
}

func (stubReviewRepo) SignalsForWorkflow(ctx context.Context, workflowID string) ([]*domain.ReviewSignal, error) {
	return []*domain.ReviewSignal{}, nil
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
