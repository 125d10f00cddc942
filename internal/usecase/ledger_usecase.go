package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/infrastructure/metrics"
)

// LedgerUseCase owns all account, hold and settlement mutations. Every
// operation is idempotent keyed by transaction id, so the orchestrator
// can retry any step after a crash without double-moving funds.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	holdRepo    HoldRepository
	journalRepo JournalRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	holdRepo HoldRepository,
	journalRepo JournalRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		holdRepo:    holdRepo,
		journalRepo: journalRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// GetOrCreateAccountInput represents input for account provisioning.
type GetOrCreateAccountInput struct {
	AccountNumber  string
	OwnerName      string
	Currency       string
	OpeningBalance decimal.Decimal
	OverdraftLimit decimal.Decimal
}

// GetOrCreateAccount returns the existing account or provisions it with
// the opening balance. Safe to call concurrently for the same number;
// the loser of the insert race reads the winner's row.
func (uc *LedgerUseCase) GetOrCreateAccount(ctx context.Context, input GetOrCreateAccountInput) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByNumber(ctx, input.AccountNumber)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	account = &domain.Account{
		AccountNumber:    input.AccountNumber,
		OwnerName:        input.OwnerName,
		Balance:          input.OpeningBalance,
		AvailableBalance: input.OpeningBalance,
		OverdraftLimit:   input.OverdraftLimit,
		Currency:         input.Currency,
		Status:           domain.AccountStatusActive,
		TotalDebits:      decimal.Zero,
		TotalCredits:     decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
		// Lost the race: another writer provisioned the same number.
		existing, getErr := uc.accountRepo.GetByNumber(ctx, input.AccountNumber)
		if getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return account, nil
}

// CheckFunds reports whether the account's available balance plus
// overdraft covers the amount. Read-only; the authoritative check
// happens again under lock in PlaceHold.
func (uc *LedgerUseCase) CheckFunds(ctx context.Context, accountNumber string, amount decimal.Decimal) (bool, error) {
	account, err := uc.accountRepo.GetByNumber(ctx, accountNumber)
	if err != nil {
		return false, err
	}
	if account.Status != domain.AccountStatusActive {
		return false, domain.ErrAccountClosed
	}
	return account.CanCover(amount), nil
}

// PlaceHoldInput represents input for placing a hold.
type PlaceHoldInput struct {
	AccountNumber string
	TransactionID string
	Amount        decimal.Decimal
	Reason        string
	TTL           time.Duration
}

// PlaceHold reserves funds against the account. Idempotent by
// transaction id: a retry after a crash returns the existing hold
// instead of reserving twice.
func (uc *LedgerUseCase) PlaceHold(ctx context.Context, input PlaceHoldInput) (*domain.Hold, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if input.TransactionID == "" {
		return nil, domain.ErrMissingTransactionID
	}

	if existing, err := uc.holdRepo.GetByTransactionID(ctx, input.TransactionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrHoldNotFound) {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByNumberForUpdate(txCtx, tx, input.AccountNumber)
	if err != nil {
		return nil, err
	}
	if account.Status != domain.AccountStatusActive {
		return nil, domain.ErrAccountClosed
	}
	if !account.CanCover(input.Amount) {
		if uc.metrics != nil {
			uc.metrics.LedgerErrors.WithLabelValues("insufficient_funds").Inc()
		}
		return nil, domain.ErrInsufficientFunds
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}

	now := time.Now().UTC()
	hold := &domain.Hold{
		ID:            uc.idGen.Generate(),
		AccountNumber: input.AccountNumber,
		TransactionID: input.TransactionID,
		Amount:        input.Amount,
		Reason:        input.Reason,
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := hold.Validate(); err != nil {
		return nil, err
	}

	if err := uc.holdRepo.Create(txCtx, tx, hold); err != nil {
		return nil, err
	}

	newAvailable := account.AvailableBalance.Sub(input.Amount)
	if err := uc.accountRepo.UpdateBalances(txCtx, tx, input.AccountNumber, account.Balance, newAvailable, now); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   hold.ID,
		AggregateType: domain.AggregateTypeHold,
		EventType:     domain.EventTypeHoldPlaced,
		Payload: map[string]any{
			"hold_id":        hold.ID,
			"transaction_id": hold.TransactionID,
			"account_number": hold.AccountNumber,
			"amount":         hold.Amount.String(),
			"expires_at":     hold.ExpiresAt.Format(time.RFC3339),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.HoldsPlaced.Inc()
	}

	return hold, nil
}

// ReleaseHold restores the hold's amount to available balance. Returns
// false when the hold was already released; releasing twice is a no-op,
// never a double restore.
func (uc *LedgerUseCase) ReleaseHold(ctx context.Context, holdID string) (bool, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	hold, err := uc.holdRepo.GetByIDForUpdate(txCtx, tx, holdID)
	if err != nil {
		return false, err
	}
	if hold.Released {
		return false, nil
	}

	account, err := uc.accountRepo.GetByNumberForUpdate(txCtx, tx, hold.AccountNumber)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	if err := uc.holdRepo.MarkReleased(txCtx, tx, holdID, now); err != nil {
		return false, err
	}

	newAvailable := account.AvailableBalance.Add(hold.Amount)
	if err := uc.accountRepo.UpdateBalances(txCtx, tx, hold.AccountNumber, account.Balance, newAvailable, now); err != nil {
		return false, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   hold.ID,
		AggregateType: domain.AggregateTypeHold,
		EventType:     domain.EventTypeHoldReleased,
		Payload: map[string]any{
			"hold_id":        hold.ID,
			"transaction_id": hold.TransactionID,
			"account_number": hold.AccountNumber,
			"amount":         hold.Amount.String(),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return false, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return false, err
	}

	if uc.metrics != nil {
		uc.metrics.HoldsReleased.Inc()
	}

	return true, nil
}

// SettleInput represents input for committing a transfer.
type SettleInput struct {
	TransactionID string
	DebitAccount  string
	CreditAccount string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	SessionID     string
	HoldID        string
}

// Settle commits the transfer in one database transaction: journal
// entry, both balance updates, hold consumption and the outbox event
// land together or not at all. The journal entry's primary key is the
// transaction id, which makes a retried settlement a read, not a second
// movement.
func (uc *LedgerUseCase) Settle(ctx context.Context, input SettleInput) (*domain.JournalEntry, error) {
	if input.DebitAccount == input.CreditAccount {
		return nil, domain.ErrSameAccount
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	if existing, err := uc.journalRepo.GetByTransactionID(ctx, input.TransactionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	start := time.Now()
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock accounts in sorted order (deadlock prevention).
	numbers := []string{input.DebitAccount, input.CreditAccount}
	sort.Strings(numbers)

	accounts, err := uc.accountRepo.GetByNumbersForUpdate(txCtx, tx, numbers)
	if err != nil {
		return nil, err
	}
	if len(accounts) != len(numbers) {
		return nil, domain.ErrAccountNotFound
	}

	accountMap := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		accountMap[a.AccountNumber] = a
	}
	debit := accountMap[input.DebitAccount]
	credit := accountMap[input.CreditAccount]

	if debit.Currency != credit.Currency {
		return nil, domain.ErrCurrencyMismatch
	}

	now := time.Now().UTC()

	// Consume the hold inside the same transaction. Its reservation
	// already reduced available balance, so the release and the debit
	// cancel on the available side.
	debitAvailable := debit.AvailableBalance
	if input.HoldID != "" {
		hold, err := uc.holdRepo.GetByIDForUpdate(txCtx, tx, input.HoldID)
		if err != nil {
			return nil, err
		}
		if !hold.Released {
			if err := uc.holdRepo.MarkReleased(txCtx, tx, input.HoldID, now); err != nil {
				return nil, err
			}
			debitAvailable = debitAvailable.Add(hold.Amount)
		}
	}

	// Authoritative funds check under lock. The hold reservation is no
	// guarantee at this point: it may have expired and been reaped, the
	// balance may have moved since screening, or the transfer may have
	// been approved without a hold at all.
	if debitAvailable.Add(debit.OverdraftLimit).LessThan(input.Amount) {
		if uc.metrics != nil {
			uc.metrics.LedgerErrors.WithLabelValues("insufficient_funds").Inc()
		}
		return nil, domain.ErrInsufficientFunds
	}

	entry := &domain.JournalEntry{
		TransactionID: input.TransactionID,
		DebitAccount:  input.DebitAccount,
		DebitAmount:   input.Amount,
		CreditAccount: input.CreditAccount,
		CreditAmount:  input.Amount,
		Description:   input.Description,
		SessionID:     input.SessionID,
		Committed:     true,
		CreatedAt:     now,
	}
	if err := uc.journalRepo.Create(txCtx, tx, entry); err != nil {
		return nil, err
	}

	// Debit side.
	debitNewBalance := debit.Balance.Sub(input.Amount)
	debitNewAvailable := debitAvailable.Sub(input.Amount)
	if err := uc.accountRepo.UpdateBalances(txCtx, tx, debit.AccountNumber, debitNewBalance, debitNewAvailable, now); err != nil {
		return nil, err
	}
	if err := uc.accountRepo.RecordSettlement(txCtx, tx, debit.AccountNumber, domain.BalanceOperationDebit, input.Amount, now); err != nil {
		return nil, err
	}
	if err := uc.journalRepo.CreateBalanceUpdate(txCtx, tx, &domain.BalanceUpdate{
		ID:              uc.idGen.Generate(),
		AccountNumber:   debit.AccountNumber,
		TransactionID:   input.TransactionID,
		Operation:       domain.BalanceOperationDebit,
		Amount:          input.Amount,
		PreviousBalance: debit.Balance,
		NewBalance:      debitNewBalance,
		SessionID:       input.SessionID,
		CreatedAt:       now,
	}); err != nil {
		return nil, err
	}

	// Credit side.
	creditNewBalance, creditNewAvailable := credit.ApplyCredit(input.Amount)
	if err := uc.accountRepo.UpdateBalances(txCtx, tx, credit.AccountNumber, creditNewBalance, creditNewAvailable, now); err != nil {
		return nil, err
	}
	if err := uc.accountRepo.RecordSettlement(txCtx, tx, credit.AccountNumber, domain.BalanceOperationCredit, input.Amount, now); err != nil {
		return nil, err
	}
	if err := uc.journalRepo.CreateBalanceUpdate(txCtx, tx, &domain.BalanceUpdate{
		ID:              uc.idGen.Generate(),
		AccountNumber:   credit.AccountNumber,
		TransactionID:   input.TransactionID,
		Operation:       domain.BalanceOperationCredit,
		Amount:          input.Amount,
		PreviousBalance: credit.Balance,
		NewBalance:      creditNewBalance,
		SessionID:       input.SessionID,
		CreatedAt:       now,
	}); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   input.TransactionID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransferCommitted,
		Payload: map[string]any{
			"transaction_id": input.TransactionID,
			"debit_account":  input.DebitAccount,
			"credit_account": input.CreditAccount,
			"amount":         input.Amount.String(),
			"currency":       input.Currency,
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransfersSettled.Inc()
		uc.metrics.TransferDuration.Observe(time.Since(start).Seconds())
		amount, _ := input.Amount.Float64()
		uc.metrics.TransferAmount.Observe(amount)
	}

	return entry, nil
}

// ReapExpiredHolds releases active holds past their TTL. Returns the
// number released.
func (uc *LedgerUseCase) ReapExpiredHolds(ctx context.Context, limit int) (int, error) {
	expired, err := uc.holdRepo.ListExpired(ctx, time.Now().UTC(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, hold := range expired {
		ok, err := uc.ReleaseHold(ctx, hold.ID)
		if err != nil {
			return released, err
		}
		if ok {
			released++
			if uc.metrics != nil {
				uc.metrics.HoldsExpired.Inc()
			}
		}
	}
	return released, nil
}

// GetAccount returns the account by number.
func (uc *LedgerUseCase) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return uc.accountRepo.GetByNumber(ctx, accountNumber)
}

// GetHold returns the hold by id.
func (uc *LedgerUseCase) GetHold(ctx context.Context, holdID string) (*domain.Hold, error) {
	return uc.holdRepo.GetByID(ctx, holdID)
}
