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

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `account_number, owner_id, owner_name, balance, available_balance,
	overdraft_limit, currency, status, transaction_count, total_debits, total_credits,
	version, last_transaction_at, created_at, updated_at`

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		account.AccountNumber,
		account.OwnerID,
		account.OwnerName,
		decimalToNumeric(account.Balance),
		decimalToNumeric(account.AvailableBalance),
		decimalToNumeric(account.OverdraftLimit),
		account.Currency,
		string(account.Status),
		account.TransactionCount,
		decimalToNumeric(account.TotalDebits),
		decimalToNumeric(account.TotalCredits),
		account.Version,
		timePtrToPgTimestamptz(account.LastTransactionAt),
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return err
}

// GetByNumber retrieves an account by its number.
func (r *AccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE account_number = $1`, accountNumber)

	return scanAccount(row)
}

// GetByNumberForUpdate retrieves an account with a FOR UPDATE lock.
func (r *AccountRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Account, error) {
	row := txQuerier(tx).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE account_number = $1
		FOR UPDATE`, accountNumber)

	return scanAccount(row)
}

// GetByNumbersForUpdate locks multiple accounts in a deterministic
// order. Callers pass numbers pre-sorted to avoid lock inversion; the
// ORDER BY matches so the row locks are taken in the same sequence.
func (r *AccountRepository) GetByNumbersForUpdate(ctx context.Context, tx usecase.Transaction, accountNumbers []string) ([]*domain.Account, error) {
	rows, err := txQuerier(tx).Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE account_number = ANY($1)
		ORDER BY account_number
		FOR UPDATE`, accountNumbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, len(accountNumbers))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// UpdateBalances writes the balance pair and bumps the version.
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, accountNumber string, balance, available decimal.Decimal, updatedAt time.Time) error {
	_, err := txQuerier(tx).Exec(ctx, `
		UPDATE accounts
		SET balance = $2,
		    available_balance = $3,
		    version = version + 1,
		    updated_at = $4
		WHERE account_number = $1`,
		accountNumber,
		decimalToNumeric(balance),
		decimalToNumeric(available),
		timeToPgTimestamptz(updatedAt),
	)

	return err
}

// RecordSettlement bumps the account's settlement counters for one side
// of a committed transfer.
func (r *AccountRepository) RecordSettlement(ctx context.Context, tx usecase.Transaction, accountNumber string, op domain.BalanceOperation, amount decimal.Decimal, at time.Time) error {
	column := "total_credits"
	if op == domain.BalanceOperationDebit {
		column = "total_debits"
	}

	_, err := txQuerier(tx).Exec(ctx, `
		UPDATE accounts
		SET transaction_count = transaction_count + 1,
		    `+column+` = `+column+` + $2,
		    last_transaction_at = $3,
		    updated_at = $3
		WHERE account_number = $1`,
		accountNumber,
		decimalToNumeric(amount),
		timeToPgTimestamptz(at),
	)

	return err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account           domain.Account
		balance           pgtype.Numeric
		available         pgtype.Numeric
		overdraft         pgtype.Numeric
		totalDebits       pgtype.Numeric
		totalCredits      pgtype.Numeric
		status            string
		lastTransactionAt pgtype.Timestamptz
		createdAt         pgtype.Timestamptz
		updatedAt         pgtype.Timestamptz
	)

	err := row.Scan(
		&account.AccountNumber,
		&account.OwnerID,
		&account.OwnerName,
		&balance,
		&available,
		&overdraft,
		&account.Currency,
		&status,
		&account.TransactionCount,
		&totalDebits,
		&totalCredits,
		&account.Version,
		&lastTransactionAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	account.Balance = numericToDecimal(balance)
	account.AvailableBalance = numericToDecimal(available)
	account.OverdraftLimit = numericToDecimal(overdraft)
	account.TotalDebits = numericToDecimal(totalDebits)
	account.TotalCredits = numericToDecimal(totalCredits)
	account.Status = domain.AccountStatus(status)
	account.LastTransactionAt = pgTimestamptzToTimePtr(lastTransactionAt)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time

	return &account, nil
}
