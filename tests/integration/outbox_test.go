package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/adapter/repository/postgres"
	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
	"github.com/avlor/fraudgate/tests/testutil"
)

func TestOutboxCapturesLedgerEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	ledger := newLedger(testDB)
	outboxRepo := postgres.NewOutboxRepository(testDB.Pool)

	testDB.CreateTestAccount(ctx, "ACC-6001", "sender", decimal.NewFromInt(1000))
	testDB.CreateTestAccount(ctx, "ACC-6002", "recipient", decimal.Zero)

	txnID := testutil.GenerateID()
	hold, err := ledger.PlaceHold(ctx, usecase.PlaceHoldInput{
		AccountNumber: "ACC-6001",
		TransactionID: txnID,
		Amount:        decimal.NewFromInt(200),
		TTL:           time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to place hold: %v", err)
	}

	if _, err := ledger.Settle(ctx, usecase.SettleInput{
		TransactionID: txnID,
		DebitAccount:  "ACC-6001",
		CreditAccount: "ACC-6002",
		Amount:        decimal.NewFromInt(200),
		Currency:      "USD",
		HoldID:        hold.ID,
	}); err != nil {
		t.Fatalf("failed to settle: %v", err)
	}

	events, err := outboxRepo.GetUnpublished(ctx, 10)
	if err != nil {
		t.Fatalf("failed to fetch unpublished events: %v", err)
	}

	// Hold placement and settlement each leave an event.
	if len(events) != 2 {
		t.Fatalf("expected 2 unpublished events, got %d", len(events))
	}
	if events[0].EventType != domain.EventTypeHoldPlaced {
		t.Errorf("expected first event %s, got %s", domain.EventTypeHoldPlaced, events[0].EventType)
	}
	if events[1].EventType != domain.EventTypeTransferCommitted {
		t.Errorf("expected second event %s, got %s", domain.EventTypeTransferCommitted, events[1].EventType)
	}

	// Marking published removes the event from the relay's view.
	if err := outboxRepo.MarkPublished(ctx, events[0].ID, time.Now().UTC()); err != nil {
		t.Fatalf("failed to mark published: %v", err)
	}

	remaining, err := outboxRepo.GetUnpublished(ctx, 10)
	if err != nil {
		t.Fatalf("failed to fetch unpublished events: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining event, got %d", len(remaining))
	}
	if remaining[0].ID != events[1].ID {
		t.Errorf("expected remaining event %s, got %s", events[1].ID, remaining[0].ID)
	}
}
