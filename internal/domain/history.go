package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VelocityWindow summarizes a party's transactions inside one trailing
// time window. Figures are best effort: very recent sibling writes may
// not be visible yet, so a zero count is "no signal", not proof of
// absence.
type VelocityWindow struct {
	Window        time.Duration
	Count         int
	TotalAmount   decimal.Decimal
	TimeSinceLast *time.Duration
}

// CustomerHistory is rule/AI context derived from a customer's trailing
// 90 days of activity.
type CustomerHistory struct {
	CustomerID       string
	TotalTxns90d     int
	AverageAmount    decimal.Decimal
	RiskIncidents    int
	CommonRecipients []string
}

// KnowsRecipient reports whether name appears among the customer's
// common recipients.
func (h *CustomerHistory) KnowsRecipient(name string) bool {
	for _, r := range h.CommonRecipients {
		if r == name {
			return true
		}
	}
	return false
}
