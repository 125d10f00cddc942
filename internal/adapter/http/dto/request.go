package dto

import (
	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
)

// PartyRequest identifies one side of a submitted transaction.
type PartyRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Country       string `json:"country"`
	CustomerID    string `json:"customer_id"`
}

func (p PartyRequest) toDomain() domain.Party {
	return domain.Party{
		Name:          p.Name,
		AccountNumber: p.AccountNumber,
		Country:       p.Country,
		CustomerID:    p.CustomerID,
	}
}

// SubmitTransactionRequest represents a request to submit a transaction
// for processing.
type SubmitTransactionRequest struct {
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Sender    PartyRequest    `json:"sender"`
	Recipient PartyRequest    `json:"recipient"`
	Reference string          `json:"reference,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// ToDomain converts to the domain transaction.
func (r *SubmitTransactionRequest) ToDomain() *domain.Transaction {
	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	return &domain.Transaction{
		Type:      domain.TransactionType(r.Type),
		Amount:    r.Amount,
		Currency:  currency,
		Sender:    r.Sender.toDomain(),
		Recipient: r.Recipient.toDomain(),
		Reference: r.Reference,
		Metadata:  r.Metadata,
	}
}

// CreateAccountRequest represents a request to provision an account.
type CreateAccountRequest struct {
	AccountNumber  string          `json:"account_number"`
	OwnerName      string          `json:"owner_name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.GetOrCreateAccountInput {
	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	return usecase.GetOrCreateAccountInput{
		AccountNumber:  r.AccountNumber,
		OwnerName:      r.OwnerName,
		Currency:       currency,
		OpeningBalance: r.OpeningBalance,
		OverdraftLimit: r.OverdraftLimit,
	}
}

// ReviewSignalRequest carries a reviewer's verdict for a waiting workflow.
type ReviewSignalRequest struct {
	Decision string `json:"decision"`
	Actor    string `json:"actor"`
	Reason   string `json:"reason,omitempty"`
}

// ManagerSignalRequest carries a manager's approve/deny verdict.
type ManagerSignalRequest struct {
	Approved bool   `json:"approved"`
	Actor    string `json:"actor"`
	Reason   string `json:"reason,omitempty"`
}
