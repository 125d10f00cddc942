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

// HoldRepository implements usecase.HoldRepository.
type HoldRepository struct {
	pool *pgxpool.Pool
}

// NewHoldRepository creates a new HoldRepository.
func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

const holdColumns = `id, account_number, transaction_id, amount, reason,
	released, released_at, expires_at, created_at, updated_at`

// Create creates a new hold.
func (r *HoldRepository) Create(ctx context.Context, tx usecase.Transaction, hold *domain.Hold) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO holds (`+holdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		hold.ID,
		hold.AccountNumber,
		hold.TransactionID,
		decimalToNumeric(hold.Amount),
		hold.Reason,
		hold.Released,
		timePtrToPgTimestamptz(hold.ReleasedAt),
		timeToPgTimestamptz(hold.ExpiresAt),
		timeToPgTimestamptz(hold.CreatedAt),
		timeToPgTimestamptz(hold.UpdatedAt),
	)

	return err
}

// GetByID retrieves a hold by ID.
func (r *HoldRepository) GetByID(ctx context.Context, id string) (*domain.Hold, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE id = $1`, id)

	return scanHold(row)
}

// GetByIDForUpdate retrieves a hold with a FOR UPDATE lock.
func (r *HoldRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Hold, error) {
	row := txQuerier(tx).QueryRow(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE id = $1
		FOR UPDATE`, id)

	return scanHold(row)
}

// GetByTransactionID returns the hold placed for a transaction. One
// hold per transaction is enforced by a unique index, which is what
// makes this the idempotency probe for hold placement.
func (r *HoldRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Hold, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE transaction_id = $1`, transactionID)

	return scanHold(row)
}

// MarkReleased flips the hold to released exactly once.
func (r *HoldRepository) MarkReleased(ctx context.Context, tx usecase.Transaction, id string, releasedAt time.Time) error {
	_, err := txQuerier(tx).Exec(ctx, `
		UPDATE holds
		SET released = TRUE,
		    released_at = $2,
		    updated_at = $2
		WHERE id = $1 AND released = FALSE`,
		id,
		timeToPgTimestamptz(releasedAt),
	)

	return err
}

// ListExpired returns unreleased holds whose TTL lapsed before now.
func (r *HoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Hold, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE released = FALSE AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`,
		timeToPgTimestamptz(now),
		int32(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make([]*domain.Hold, 0, limit)
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}

	return holds, rows.Err()
}

func scanHold(row pgx.Row) (*domain.Hold, error) {
	var (
		hold       domain.Hold
		amount     pgtype.Numeric
		releasedAt pgtype.Timestamptz
		expiresAt  pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&hold.ID,
		&hold.AccountNumber,
		&hold.TransactionID,
		&amount,
		&hold.Reason,
		&hold.Released,
		&releasedAt,
		&expiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}

		return nil, err
	}

	hold.Amount = numericToDecimal(amount)
	hold.ReleasedAt = pgTimestamptzToTimePtr(releasedAt)
	hold.ExpiresAt = expiresAt.Time
	hold.CreatedAt = createdAt.Time
	hold.UpdatedAt = updatedAt.Time

	return &hold, nil
}
