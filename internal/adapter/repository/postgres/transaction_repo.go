package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository. The
// parties, risk flags, stage trail and metadata live in jsonb columns;
// everything the pipeline filters on is a plain column.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, type, amount, currency, sender, recipient, reference,
	status, risk_flags, stage_trail, metadata, created_at, updated_at`

// Create inserts a submitted transaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	sender, err := marshalJSON(txn.Sender)
	if err != nil {
		return err
	}
	recipient, err := marshalJSON(txn.Recipient)
	if err != nil {
		return err
	}
	riskFlags, err := marshalJSON(txn.RiskFlags)
	if err != nil {
		return err
	}
	stageTrail, err := marshalJSON(txn.StageTrail)
	if err != nil {
		return err
	}
	metadata, err := marshalJSON(txn.Metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		txn.ID,
		string(txn.Type),
		decimalToNumeric(txn.Amount),
		txn.Currency,
		sender,
		recipient,
		txn.Reference,
		string(txn.Status),
		riskFlags,
		stageTrail,
		metadata,
		timeToPgTimestamptz(txn.CreatedAt),
		timeToPgTimestamptz(txn.UpdatedAt),
	)

	return err
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1`, id)

	return scanTransaction(row)
}

// UpdateStatus moves the transaction to a new status inside the
// caller's database transaction.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error {
	_, err := txQuerier(tx).Exec(ctx, `
		UPDATE transactions
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		id,
		string(status),
		timeToPgTimestamptz(updatedAt),
	)

	return err
}

// AppendStageEvent adds one entry to the processing trail.
func (r *TransactionRepository) AppendStageEvent(ctx context.Context, id string, event domain.StageEvent) error {
	payload, err := marshalJSON(event)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE transactions
		SET stage_trail = COALESCE(stage_trail, '[]'::jsonb) || $2::jsonb
		WHERE id = $1`,
		id,
		payload,
	)

	return err
}

// AddRiskFlags merges flags into the transaction's flag set.
// Deduplication happens in SQL so concurrent appenders cannot clobber
// each other.
func (r *TransactionRepository) AddRiskFlags(ctx context.Context, id string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}

	payload, err := marshalJSON(flags)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE transactions
		SET risk_flags = (
			SELECT jsonb_agg(DISTINCT flag)
			FROM jsonb_array_elements(COALESCE(risk_flags, '[]'::jsonb) || $2::jsonb) AS flag
		)
		WHERE id = $1`,
		id,
		payload,
	)

	return err
}

// ListByStatus returns transactions in a given status, oldest first.
func (r *TransactionRepository) ListByStatus(ctx context.Context, status domain.TransactionStatus, limit int) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2`,
		string(status),
		int32(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*domain.Transaction, 0, limit)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn        domain.Transaction
		txnType    string
		amount     pgtype.Numeric
		sender     []byte
		recipient  []byte
		status     string
		riskFlags  []byte
		stageTrail []byte
		metadata   []byte
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID,
		&txnType,
		&amount,
		&txn.Currency,
		&sender,
		&recipient,
		&txn.Reference,
		&status,
		&riskFlags,
		&stageTrail,
		&metadata,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	txn.Type = domain.TransactionType(txnType)
	txn.Amount = numericToDecimal(amount)
	txn.Status = domain.TransactionStatus(status)
	unmarshalJSON(sender, &txn.Sender)
	unmarshalJSON(recipient, &txn.Recipient)
	unmarshalJSON(riskFlags, &txn.RiskFlags)
	unmarshalJSON(stageTrail, &txn.StageTrail)
	unmarshalJSON(metadata, &txn.Metadata)
	txn.CreatedAt = createdAt.Time
	txn.UpdatedAt = updatedAt.Time

	return &txn, nil
}
