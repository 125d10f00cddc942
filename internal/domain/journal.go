package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is the immutable double-entry record of one committed
// transfer. Its presence is the durable proof of settlement; there is
// exactly one per transaction id.
type JournalEntry struct {
	TransactionID string
	DebitAccount  string
	DebitAmount   decimal.Decimal
	CreditAccount string
	CreditAmount  decimal.Decimal
	Description   string
	SessionID     string
	Committed     bool
	CreatedAt     time.Time
}

type BalanceOperation string

const (
	BalanceOperationDebit  BalanceOperation = "debit"
	BalanceOperationCredit BalanceOperation = "credit"
)

// BalanceUpdate is the per-account audit record written alongside each
// side of a committed transfer.
type BalanceUpdate struct {
	ID              string
	AccountNumber   string
	TransactionID   string
	Operation       BalanceOperation
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	SessionID       string
	CreatedAt       time.Time
}
