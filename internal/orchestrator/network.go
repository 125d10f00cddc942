package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
)

const (
	networkWindow    = 30 * 24 * time.Hour
	networkFanLimit  = 100
	largeNetworkSize = 15
)

var highValueNetworkThreshold = decimal.NewFromInt(50000)

// analyzeNetwork scores the transaction's position in the recent
// counterparty graph. The score is additive and advisory: a quiet graph
// or missing history contributes nothing, it never clears a
// transaction.
func (e *Engine) analyzeNetwork(ctx context.Context, txn *domain.Transaction) (float64, []string, error) {
	since := time.Now().UTC().Add(-networkWindow)

	senderParties, err := e.journalRepo.Counterparties(ctx, txn.Sender.AccountNumber, since, networkFanLimit)
	if err != nil {
		return 0, nil, fmt.Errorf("sender counterparties: %w", err)
	}
	recipientParties, err := e.journalRepo.Counterparties(ctx, txn.Recipient.AccountNumber, since, networkFanLimit)
	if err != nil {
		return 0, nil, fmt.Errorf("recipient counterparties: %w", err)
	}

	var score float64
	var flags []string

	if len(senderParties) > largeNetworkSize {
		score += 20
		flags = append(flags, "large_counterparty_network")
	}
	if len(recipientParties) > largeNetworkSize {
		score += 15
		flags = append(flags, "recipient_large_network")
	}

	// Dense overlap between the two parties' networks suggests layering
	// rather than an arms-length payment.
	if sharedParties(senderParties, recipientParties, txn) > 5 {
		score += 30
		flags = append(flags, "dense_shared_network")
	}

	if txn.Amount.GreaterThan(highValueNetworkThreshold) && len(senderParties) > 10 {
		score += 25
		flags = append(flags, "high_value_in_active_network")
	}

	if score > 100 {
		score = 100
	}
	return score, flags, nil
}

func sharedParties(a, b []string, txn *domain.Transaction) int {
	seen := make(map[string]struct{}, len(a))
	for _, p := range a {
		seen[p] = struct{}{}
	}
	shared := 0
	for _, p := range b {
		if p == txn.Sender.AccountNumber || p == txn.Recipient.AccountNumber {
			continue
		}
		if _, ok := seen[p]; ok {
			shared++
		}
	}
	return shared
}
