package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hold is a temporary reservation against an account's available
// balance tied to one transaction. A hold reduces available balance
// exactly once; release restores it exactly once (idempotency key is
// the hold id).
type Hold struct {
	ID            string
	AccountNumber string
	TransactionID string
	Amount        decimal.Decimal
	Reason        string
	Released      bool
	ReleasedAt    *time.Time
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the hold invariants.
func (h *Hold) Validate() error {
	if h.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if h.TransactionID == "" {
		return ErrMissingTransactionID
	}
	return nil
}

// Expired reports whether the hold's TTL has lapsed at the given time.
func (h *Hold) Expired(now time.Time) bool {
	return !h.Released && now.After(h.ExpiresAt)
}
