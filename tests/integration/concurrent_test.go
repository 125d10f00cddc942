package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
	"github.com/avlor/fraudgate/tests/testutil"
)

// Concurrent hold placement must never reserve more than the account
// holds: the row lock in PlaceHold serializes the available-balance
// check.
func TestConcurrentHoldsNeverOverdraw(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	ledger := newLedger(testDB)
	testDB.CreateTestAccount(ctx, "ACC-4001", "sender", decimal.NewFromInt(500))

	const attempts = 10
	holdAmount := decimal.NewFromInt(100)

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := ledger.PlaceHold(ctx, usecase.PlaceHoldInput{
				AccountNumber: "ACC-4001",
				TransactionID: fmt.Sprintf("txn-concurrent-%d-%s", n, testutil.GenerateID()),
				Amount:        holdAmount,
				TTL:           time.Hour,
			})
			results <- err
		}(i)
	}

	wg.Wait()
	close(results)

	var placed, rejected int
	for err := range results {
		switch {
		case err == nil:
			placed++
		case errors.Is(err, domain.ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if placed != 5 {
		t.Errorf("expected exactly 5 holds to fit in balance 500, got %d placed / %d rejected", placed, rejected)
	}

	account, err := ledger.GetAccount(ctx, "ACC-4001")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if account.AvailableBalance.IsNegative() {
		t.Errorf("available balance went negative: %s", account.AvailableBalance)
	}
}

// Concurrent settlements of transfers between the same pair of accounts
// lock the accounts in sorted order, so opposing directions cannot
// deadlock and all settle.
func TestConcurrentSettlementsBothDirections(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	ledger := newLedger(testDB)
	testDB.CreateTestAccount(ctx, "ACC-5001", "left", decimal.NewFromInt(1000))
	testDB.CreateTestAccount(ctx, "ACC-5002", "right", decimal.NewFromInt(1000))

	const rounds = 5
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)

	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_, err := ledger.Settle(ctx, usecase.SettleInput{
				TransactionID: fmt.Sprintf("txn-fwd-%d-%s", n, testutil.GenerateID()),
				DebitAccount:  "ACC-5001",
				CreditAccount: "ACC-5002",
				Amount:        decimal.NewFromInt(10),
				Currency:      "USD",
			})
			errs <- err
		}(i)
		go func(n int) {
			defer wg.Done()
			_, err := ledger.Settle(ctx, usecase.SettleInput{
				TransactionID: fmt.Sprintf("txn-rev-%d-%s", n, testutil.GenerateID()),
				DebitAccount:  "ACC-5002",
				CreditAccount: "ACC-5001",
				Amount:        decimal.NewFromInt(10),
				Currency:      "USD",
			})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("settlement failed: %v", err)
		}
	}

	left, err := ledger.GetAccount(ctx, "ACC-5001")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	right, err := ledger.GetAccount(ctx, "ACC-5002")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}

	// Equal volume both ways nets to zero.
	if !left.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected left balance 1000, got %s", left.Balance)
	}
	if !right.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected right balance 1000, got %s", right.Balance)
	}
}
