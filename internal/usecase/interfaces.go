package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetByNumberForUpdate(ctx context.Context, tx Transaction, accountNumber string) (*domain.Account, error)
	GetByNumbersForUpdate(ctx context.Context, tx Transaction, accountNumbers []string) ([]*domain.Account, error)
	UpdateBalances(ctx context.Context, tx Transaction, accountNumber string, balance, available decimal.Decimal, updatedAt time.Time) error
	RecordSettlement(ctx context.Context, tx Transaction, accountNumber string, op domain.BalanceOperation, amount decimal.Decimal, at time.Time) error
}

// HoldRepository defines data access for holds.
type HoldRepository interface {
	Create(ctx context.Context, tx Transaction, hold *domain.Hold) error
	GetByID(ctx context.Context, id string) (*domain.Hold, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Hold, error)
	// GetByTransactionID returns the hold placed for a transaction, or
	// domain.ErrHoldNotFound. It is the idempotency probe for PlaceHold.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Hold, error)
	MarkReleased(ctx context.Context, tx Transaction, id string, releasedAt time.Time) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Hold, error)
}

// JournalRepository defines data access for journal entries and the
// per-account balance audit trail.
type JournalRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	// GetByTransactionID returns the committed entry for a transaction,
	// or domain.ErrTransactionNotFound. It is the idempotency probe for
	// Settle.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.JournalEntry, error)
	CreateBalanceUpdate(ctx context.Context, tx Transaction, update *domain.BalanceUpdate) error
	// WindowStats aggregates an account's committed debits since the
	// cutoff: entry count, total amount, most recent entry time.
	WindowStats(ctx context.Context, accountNumber string, since time.Time) (count int, total decimal.Decimal, lastAt *time.Time, err error)
	// CountByAmountBand counts committed debits within [min,max] since
	// the cutoff, for structuring detection.
	CountByAmountBand(ctx context.Context, accountNumber string, min, max decimal.Decimal, since time.Time) (int, error)
	// Counterparties lists distinct accounts the given account has moved
	// funds with since the cutoff.
	Counterparties(ctx context.Context, accountNumber string, since time.Time, limit int) ([]string, error)
}

// TransactionRepository defines data access for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error
	AppendStageEvent(ctx context.Context, id string, event domain.StageEvent) error
	AddRiskFlags(ctx context.Context, id string, flags []string) error
	ListByStatus(ctx context.Context, status domain.TransactionStatus, limit int) ([]*domain.Transaction, error)
}

// DecisionRepository defines data access for decisions. Rows are
// append-only; amendments link back via AmendsDecisionID.
type DecisionRepository interface {
	Create(ctx context.Context, tx Transaction, decision *domain.Decision) error
	GetByID(ctx context.Context, id string) (*domain.Decision, error)
	// GetLatestByTransactionID returns the most recent decision row for
	// a transaction, or domain.ErrDecisionNotFound.
	GetLatestByTransactionID(ctx context.Context, transactionID string) (*domain.Decision, error)
	ListByTransactionID(ctx context.Context, transactionID string) ([]*domain.Decision, error)
}

// ReviewRepository defines data access for human reviews and the
// durable signal log.
type ReviewRepository interface {
	Create(ctx context.Context, tx Transaction, review *domain.HumanReview) error
	GetByID(ctx context.Context, id string) (*domain.HumanReview, error)
	Resolve(ctx context.Context, tx Transaction, id, resolvedBy string, resolvedAt time.Time) error
	ListPending(ctx context.Context, limit int) ([]*domain.HumanReview, error)
	RecordSignal(ctx context.Context, tx Transaction, signal *domain.ReviewSignal) error
	SignalsForWorkflow(ctx context.Context, workflowID string) ([]*domain.ReviewSignal, error)
}

// WorkflowRepository persists workflow checkpoints.
type WorkflowRepository interface {
	Create(ctx context.Context, state *domain.WorkflowExecutionState) error
	Get(ctx context.Context, id string) (*domain.WorkflowExecutionState, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.WorkflowExecutionState, error)
	// Save upserts the full checkpoint. Called after every stage.
	Save(ctx context.Context, state *domain.WorkflowExecutionState) error
	// ListInFlight returns workflows whose stage is non-terminal, for
	// the resume loader.
	ListInFlight(ctx context.Context, limit int) ([]*domain.WorkflowExecutionState, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
