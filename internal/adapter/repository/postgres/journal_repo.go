package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
)

// JournalRepository implements usecase.JournalRepository. Journal rows
// are append-only; the transaction id primary key is what makes
// settlement idempotent at the storage layer.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Create inserts the double-entry record for a committed transfer.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO journal_entries (transaction_id, debit_account, debit_amount,
			credit_account, credit_amount, description, session_id, committed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.TransactionID,
		entry.DebitAccount,
		decimalToNumeric(entry.DebitAmount),
		entry.CreditAccount,
		decimalToNumeric(entry.CreditAmount),
		entry.Description,
		entry.SessionID,
		entry.Committed,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// GetByTransactionID returns the committed entry for a transaction, or
// domain.ErrTransactionNotFound.
func (r *JournalRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.JournalEntry, error) {
	var (
		entry        domain.JournalEntry
		debitAmount  pgtype.Numeric
		creditAmount pgtype.Numeric
		createdAt    pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT transaction_id, debit_account, debit_amount, credit_account,
			credit_amount, description, session_id, committed, created_at
		FROM journal_entries
		WHERE transaction_id = $1`, transactionID).Scan(
		&entry.TransactionID,
		&entry.DebitAccount,
		&debitAmount,
		&entry.CreditAccount,
		&creditAmount,
		&entry.Description,
		&entry.SessionID,
		&entry.Committed,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	entry.DebitAmount = numericToDecimal(debitAmount)
	entry.CreditAmount = numericToDecimal(creditAmount)
	entry.CreatedAt = createdAt.Time

	return &entry, nil
}

// CreateBalanceUpdate appends one side's audit record.
func (r *JournalRepository) CreateBalanceUpdate(ctx context.Context, tx usecase.Transaction, update *domain.BalanceUpdate) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO balance_updates (id, account_number, transaction_id, operation,
			amount, previous_balance, new_balance, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		update.ID,
		update.AccountNumber,
		update.TransactionID,
		string(update.Operation),
		decimalToNumeric(update.Amount),
		decimalToNumeric(update.PreviousBalance),
		decimalToNumeric(update.NewBalance),
		update.SessionID,
		timeToPgTimestamptz(update.CreatedAt),
	)

	return err
}

// WindowStats aggregates an account's committed debits since the cutoff.
func (r *JournalRepository) WindowStats(ctx context.Context, accountNumber string, since time.Time) (int, decimal.Decimal, *time.Time, error) {
	var (
		count  int
		total  pgtype.Numeric
		lastAt pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(debit_amount), 0), MAX(created_at)
		FROM journal_entries
		WHERE debit_account = $1 AND committed = TRUE AND created_at >= $2`,
		accountNumber,
		timeToPgTimestamptz(since),
	).Scan(&count, &total, &lastAt)
	if err != nil {
		return 0, decimal.Zero, nil, err
	}

	return count, numericToDecimal(total), pgTimestamptzToTimePtr(lastAt), nil
}

// CountByAmountBand counts committed debits within [min,max] since the
// cutoff, for structuring detection.
func (r *JournalRepository) CountByAmountBand(ctx context.Context, accountNumber string, min, max decimal.Decimal, since time.Time) (int, error) {
	var count int

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM journal_entries
		WHERE debit_account = $1
		  AND committed = TRUE
		  AND debit_amount BETWEEN $2 AND $3
		  AND created_at >= $4`,
		accountNumber,
		decimalToNumeric(min),
		decimalToNumeric(max),
		timeToPgTimestamptz(since),
	).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Counterparties lists distinct accounts the given account moved funds
// with since the cutoff, either direction.
func (r *JournalRepository) Counterparties(ctx context.Context, accountNumber string, since time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT counterparty FROM (
			SELECT credit_account AS counterparty
			FROM journal_entries
			WHERE debit_account = $1 AND committed = TRUE AND created_at >= $2
			UNION
			SELECT debit_account AS counterparty
			FROM journal_entries
			WHERE credit_account = $1 AND committed = TRUE AND created_at >= $2
		) parties
		LIMIT $3`,
		accountNumber,
		timeToPgTimestamptz(since),
		int32(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parties := make([]string, 0, limit)
	for rows.Next() {
		var party string
		if err := rows.Scan(&party); err != nil {
			return nil, err
		}
		parties = append(parties, party)
	}

	return parties, rows.Err()
}
