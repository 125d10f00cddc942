package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountClosed     = errors.New("account is closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCurrencyMismatch  = errors.New("cannot transfer between different currencies")

	// Hold errors
	ErrHoldNotFound         = errors.New("hold not found")
	ErrMissingTransactionID = errors.New("hold requires a transaction id")

	// Transaction errors
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrSameAccount            = errors.New("cannot transfer to same account")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidTransactionType = errors.New("unknown transaction type")
	ErrTerminalStatus         = errors.New("transaction status is terminal")

	// Decision errors
	ErrDecisionNotFound     = errors.New("decision not found")
	ErrComplianceViolation  = errors.New("compliance violation")
	ErrInvalidDecisionValue = errors.New("unknown decision value")

	// Workflow errors
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrReviewNotFound   = errors.New("human review not found")
)

// BusinessRejection reports whether err is an expected business outcome
// (surfaced as a reject decision) rather than an infrastructure fault.
func BusinessRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrComplianceViolation)
}
