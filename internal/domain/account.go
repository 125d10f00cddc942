package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

// Account is a ledger-held balance. All mutation goes through the
// ledger's atomic primitives; nothing outside the ledger may
// read-modify-write an account row.
//
// Invariant: AvailableBalance = Balance - sum(active holds) at every
// commit boundary.
type Account struct {
	AccountNumber     string
	OwnerID           string
	OwnerName         string
	Balance           decimal.Decimal
	AvailableBalance  decimal.Decimal
	OverdraftLimit    decimal.Decimal
	Currency          string
	Status            AccountStatus
	TransactionCount  int64
	TotalDebits       decimal.Decimal
	TotalCredits      decimal.Decimal
	Version           int64
	LastTransactionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanCover reports whether available balance plus overdraft covers amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.AvailableBalance.Add(a.OverdraftLimit).GreaterThanOrEqual(amount)
}

// ApplyDebit returns the balance pair after debiting amount.
func (a *Account) ApplyDebit(amount decimal.Decimal) (balance, available decimal.Decimal) {
	return a.Balance.Sub(amount), a.AvailableBalance.Sub(amount)
}

// ApplyCredit returns the balance pair after crediting amount.
func (a *Account) ApplyCredit(amount decimal.Decimal) (balance, available decimal.Decimal) {
	return a.Balance.Add(amount), a.AvailableBalance.Add(amount)
}
