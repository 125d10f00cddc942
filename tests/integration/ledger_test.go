package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/adapter/repository/postgres"
	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
	"github.com/avlor/fraudgate/tests/testutil"
)

func newLedger(db *testutil.TestDB) *usecase.LedgerUseCase {
	return usecase.NewLedgerUseCase(
		postgres.NewTxManager(db.Pool),
		postgres.NewAccountRepository(db.Pool),
		postgres.NewHoldRepository(db.Pool),
		postgres.NewJournalRepository(db.Pool),
		postgres.NewOutboxRepository(db.Pool),
		postgres.NewULIDGenerator(),
		nil,
	)
}

func TestLedgerHoldLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	ledger := newLedger(testDB)
	testDB.CreateTestAccount(ctx, "ACC-1001", "sender", decimal.NewFromInt(1000))

	t.Run("place hold reduces available balance", func(t *testing.T) {
		hold, err := ledger.PlaceHold(ctx, usecase.PlaceHoldInput{
			AccountNumber: "ACC-1001",
			TransactionID: testutil.GenerateID(),
			Amount:        decimal.NewFromInt(300),
			Reason:        "pending settlement",
			TTL:           time.Hour,
		})
		if err != nil {
			t.Fatalf("failed to place hold: %v", err)
		}

		account, err := ledger.GetAccount(ctx, "ACC-1001")
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if !account.AvailableBalance.Equal(decimal.NewFromInt(700)) {
			t.Errorf("expected available 700, got %s", account.AvailableBalance)
		}
		if !account.Balance.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("expected balance unchanged at 1000, got %s", account.Balance)
		}

		released, err := ledger.ReleaseHold(ctx, hold.ID)
		if err != nil {
			t.Fatalf("failed to release hold: %v", err)
		}
		if !released {
			t.Error("expected first release to report true")
		}

		released, err = ledger.ReleaseHold(ctx, hold.ID)
		if err != nil {
			t.Fatalf("second release errored: %v", err)
		}
		if released {
			t.Error("expected second release to be a no-op")
		}

		account, err = ledger.GetAccount(ctx, "ACC-1001")
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if !account.AvailableBalance.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("expected available restored to 1000, got %s", account.AvailableBalance)
		}
	})

	t.Run("place hold is idempotent by transaction id", func(t *testing.T) {
		txnID := testutil.GenerateID()
		input := usecase.PlaceHoldInput{
			AccountNumber: "ACC-1001",
			TransactionID: txnID,
			Amount:        decimal.NewFromInt(100),
			TTL:           time.Hour,
		}

		first, err := ledger.PlaceHold(ctx, input)
		if err != nil {
			t.Fatalf("failed to place hold: %v", err)
		}
		second, err := ledger.PlaceHold(ctx, input)
		if err != nil {
			t.Fatalf("retried place hold errored: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("expected retry to return the existing hold, got %s and %s", first.ID, second.ID)
		}

		account, err := ledger.GetAccount(ctx, "ACC-1001")
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if !account.AvailableBalance.Equal(decimal.NewFromInt(900)) {
			t.Errorf("expected a single reservation of 100, available %s", account.AvailableBalance)
		}
	})

	t.Run("insufficient funds rejects hold", func(t *testing.T) {
		_, err := ledger.PlaceHold(ctx, usecase.PlaceHoldInput{
			AccountNumber: "ACC-1001",
			TransactionID: testutil.GenerateID(),
			Amount:        decimal.NewFromInt(100000),
			TTL:           time.Hour,
		})
		if err != domain.ErrInsufficientFunds {
			t.Errorf("expected ErrInsufficientFunds, got %v", err)
		}
	})
}

func TestLedgerSettlement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	ledger := newLedger(testDB)
	testDB.CreateTestAccount(ctx, "ACC-2001", "sender", decimal.NewFromInt(1000))
	testDB.CreateTestAccount(ctx, "ACC-2002", "recipient", decimal.Zero)

	txnID := testutil.GenerateID()
	hold, err := ledger.PlaceHold(ctx, usecase.PlaceHoldInput{
		AccountNumber: "ACC-2001",
		TransactionID: txnID,
		Amount:        decimal.NewFromInt(400),
		TTL:           time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to place hold: %v", err)
	}

	input := usecase.SettleInput{
		TransactionID: txnID,
		DebitAccount:  "ACC-2001",
		CreditAccount: "ACC-2002",
		Amount:        decimal.NewFromInt(400),
		Currency:      "USD",
		Description:   "wire settlement",
		HoldID:        hold.ID,
	}

	entry, err := ledger.Settle(ctx, input)
	if err != nil {
		t.Fatalf("failed to settle: %v", err)
	}
	if !entry.DebitAmount.Equal(entry.CreditAmount) {
		t.Errorf("journal entry unbalanced: debit %s credit %s", entry.DebitAmount, entry.CreditAmount)
	}

	sender, err := ledger.GetAccount(ctx, "ACC-2001")
	if err != nil {
		t.Fatalf("failed to get sender: %v", err)
	}
	recipient, err := ledger.GetAccount(ctx, "ACC-2002")
	if err != nil {
		t.Fatalf("failed to get recipient: %v", err)
	}

	if !sender.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected sender balance 600, got %s", sender.Balance)
	}
	if !sender.AvailableBalance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected sender available 600, got %s", sender.AvailableBalance)
	}
	if !recipient.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected recipient balance 400, got %s", recipient.Balance)
	}

	// A retried settlement reads the existing journal entry instead of
	// moving funds again.
	again, err := ledger.Settle(ctx, input)
	if err != nil {
		t.Fatalf("retried settle errored: %v", err)
	}
	if again.TransactionID != entry.TransactionID {
		t.Errorf("expected same journal entry, got %s", again.TransactionID)
	}

	sender, err = ledger.GetAccount(ctx, "ACC-2001")
	if err != nil {
		t.Fatalf("failed to get sender: %v", err)
	}
	if !sender.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected balance unchanged after retry, got %s", sender.Balance)
	}
}

func TestLedgerSettlementInsufficientFunds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	ledger := newLedger(testDB)
	testDB.CreateTestAccount(ctx, "ACC-4001", "sender", decimal.NewFromInt(100))
	testDB.CreateTestAccount(ctx, "ACC-4002", "recipient", decimal.Zero)

	_, err := ledger.Settle(ctx, usecase.SettleInput{
		TransactionID: testutil.GenerateID(),
		DebitAccount:  "ACC-4001",
		CreditAccount: "ACC-4002",
		Amount:        decimal.NewFromInt(500),
		Currency:      "USD",
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	sender, err := ledger.GetAccount(ctx, "ACC-4001")
	if err != nil {
		t.Fatalf("failed to get sender: %v", err)
	}
	if !sender.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected sender untouched at 100, got %s", sender.Balance)
	}
	recipient, err := ledger.GetAccount(ctx, "ACC-4002")
	if err != nil {
		t.Fatalf("failed to get recipient: %v", err)
	}
	if !recipient.Balance.Equal(decimal.Zero) {
		t.Errorf("expected recipient untouched at 0, got %s", recipient.Balance)
	}
}

// faultingAccountRepo fails balance writes for one account, leaving the
// rest of the repository untouched.
type faultingAccountRepo struct {
	usecase.AccountRepository
	failAccount string
	failErr     error
}

func (r *faultingAccountRepo) UpdateBalances(ctx context.Context, tx usecase.Transaction, accountNumber string, balance, available decimal.Decimal, updatedAt time.Time) error {
	if accountNumber == r.failAccount {
		return r.failErr
	}
	return r.AccountRepository.UpdateBalances(ctx, tx, accountNumber, balance, available, updatedAt)
}

func TestLedgerSettlementAtomicUnderFault(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	// The debit write succeeds inside the transaction, then the credit
	// write faults. Nothing from the sequence may remain visible.
	injected := errors.New("injected storage fault")
	accountRepo := &faultingAccountRepo{
		AccountRepository: postgres.NewAccountRepository(testDB.Pool),
		failAccount:       "ACC-5002",
		failErr:           injected,
	}
	journalRepo := postgres.NewJournalRepository(testDB.Pool)
	ledger := usecase.NewLedgerUseCase(
		postgres.NewTxManager(testDB.Pool),
		accountRepo,
		postgres.NewHoldRepository(testDB.Pool),
		journalRepo,
		postgres.NewOutboxRepository(testDB.Pool),
		postgres.NewULIDGenerator(),
		nil,
	)

	testDB.CreateTestAccount(ctx, "ACC-5001", "sender", decimal.NewFromInt(1000))
	testDB.CreateTestAccount(ctx, "ACC-5002", "recipient", decimal.Zero)

	txnID := testutil.GenerateID()
	_, err := ledger.Settle(ctx, usecase.SettleInput{
		TransactionID: txnID,
		DebitAccount:  "ACC-5001",
		CreditAccount: "ACC-5002",
		Amount:        decimal.NewFromInt(400),
		Currency:      "USD",
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected fault, got %v", err)
	}

	if _, err := journalRepo.GetByTransactionID(ctx, txnID); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("expected no committed journal entry, got %v", err)
	}

	sender, err := ledger.GetAccount(ctx, "ACC-5001")
	if err != nil {
		t.Fatalf("failed to get sender: %v", err)
	}
	if !sender.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected sender balance rolled back to 1000, got %s", sender.Balance)
	}
	if !sender.AvailableBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected sender available rolled back to 1000, got %s", sender.AvailableBalance)
	}

	// The same settlement succeeds once the fault clears.
	accountRepo.failAccount = ""
	entry, err := ledger.Settle(ctx, usecase.SettleInput{
		TransactionID: txnID,
		DebitAccount:  "ACC-5001",
		CreditAccount: "ACC-5002",
		Amount:        decimal.NewFromInt(400),
		Currency:      "USD",
	})
	if err != nil {
		t.Fatalf("retry after fault errored: %v", err)
	}
	if !entry.Committed {
		t.Error("expected retried settlement to commit")
	}
	sender, _ = ledger.GetAccount(ctx, "ACC-5001")
	if !sender.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected sender balance 600 after retry, got %s", sender.Balance)
	}
}

func TestLedgerReapExpiredHolds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	ledger := newLedger(testDB)
	testDB.CreateTestAccount(ctx, "ACC-3001", "sender", decimal.NewFromInt(1000))

	// TTL short enough to expire immediately.
	_, err := ledger.PlaceHold(ctx, usecase.PlaceHoldInput{
		AccountNumber: "ACC-3001",
		TransactionID: testutil.GenerateID(),
		Amount:        decimal.NewFromInt(250),
		TTL:           time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to place hold: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	released, err := ledger.ReapExpiredHolds(ctx, 10)
	if err != nil {
		t.Fatalf("failed to reap holds: %v", err)
	}
	if released != 1 {
		t.Errorf("expected 1 hold reaped, got %d", released)
	}

	account, err := ledger.GetAccount(ctx, "ACC-3001")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if !account.AvailableBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected available restored to 1000, got %s", account.AvailableBalance)
	}
}
