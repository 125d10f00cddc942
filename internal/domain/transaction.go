package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeACH           TransactionType = "ach"
	TransactionTypeWire          TransactionType = "wire"
	TransactionTypeInternational TransactionType = "international"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusApproved   TransactionStatus = "approved"
	TransactionStatusRejected   TransactionStatus = "rejected"
	TransactionStatusEscalated  TransactionStatus = "escalated"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// IsTerminal reports whether no further status transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusApproved, TransactionStatusRejected,
		TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}

// Party identifies one side of a transaction.
type Party struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Country       string `json:"country"`
	CustomerID    string `json:"customer_id"`
}

// StageEvent is one entry of a transaction's append-only processing trail.
type StageEvent struct {
	Stage      string    `json:"stage"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Transaction is a requested movement of funds through the pipeline.
// Mutated only by the orchestrator; immutable once status is terminal,
// except for stage-trail appends.
type Transaction struct {
	ID         string
	Type       TransactionType
	Amount     decimal.Decimal
	Currency   string
	Sender     Party
	Recipient  Party
	Reference  string
	Status     TransactionStatus
	RiskFlags  []string
	StageTrail []StageEvent
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the submission invariants.
func (t *Transaction) Validate() error {
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if t.Sender.AccountNumber == t.Recipient.AccountNumber {
		return ErrSameAccount
	}
	switch t.Type {
	case TransactionTypeACH, TransactionTypeWire, TransactionTypeInternational:
	default:
		return ErrInvalidTransactionType
	}
	return nil
}

// AddRiskFlag appends a flag once; flags accumulate and are never removed.
func (t *Transaction) AddRiskFlag(flag string) {
	for _, f := range t.RiskFlags {
		if f == flag {
			return
		}
	}
	t.RiskFlags = append(t.RiskFlags, flag)
}
