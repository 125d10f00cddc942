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

// ReviewRepository implements usecase.ReviewRepository: the human
// review queue plus the durable signal log the orchestrator replays on
// resume.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, transaction_id, workflow_id, priority, sla_deadline,
	ai_decision, ai_confidence, ai_reasoning, risk_factors, rules_triggered,
	status, resolved_by, resolved_at, created_at`

// Create inserts a pending review.
func (r *ReviewRepository) Create(ctx context.Context, tx usecase.Transaction, review *domain.HumanReview) error {
	riskFactors, err := marshalJSON(review.RiskFactors)
	if err != nil {
		return err
	}
	rulesTriggered, err := marshalJSON(review.RulesTriggered)
	if err != nil {
		return err
	}

	_, err = txQuerier(tx).Exec(ctx, `
		INSERT INTO human_reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		review.ID,
		review.TransactionID,
		review.WorkflowID,
		string(review.Priority),
		timeToPgTimestamptz(review.SLADeadline),
		string(review.AIDecision),
		review.AIConfidence,
		review.AIReasoning,
		riskFactors,
		rulesTriggered,
		string(review.Status),
		review.ResolvedBy,
		timePtrToPgTimestamptz(review.ResolvedAt),
		timeToPgTimestamptz(review.CreatedAt),
	)

	return err
}

// GetByID retrieves a review by ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.HumanReview, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reviewColumns+`
		FROM human_reviews
		WHERE id = $1`, id)

	return scanReview(row)
}

// Resolve closes a pending review exactly once.
func (r *ReviewRepository) Resolve(ctx context.Context, tx usecase.Transaction, id, resolvedBy string, resolvedAt time.Time) error {
	_, err := txQuerier(tx).Exec(ctx, `
		UPDATE human_reviews
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1 AND status = $5`,
		id,
		string(domain.ReviewStatusResolved),
		resolvedBy,
		timeToPgTimestamptz(resolvedAt),
		string(domain.ReviewStatusPending),
	)

	return err
}

// ListPending returns open reviews, most urgent and oldest first.
func (r *ReviewRepository) ListPending(ctx context.Context, limit int) ([]*domain.HumanReview, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM human_reviews
		WHERE status = $1
		ORDER BY CASE priority
			WHEN 'urgent' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, created_at
		LIMIT $2`,
		string(domain.ReviewStatusPending),
		int32(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]*domain.HumanReview, 0, limit)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}

	return reviews, rows.Err()
}

// RecordSignal appends to the durable signal log.
func (r *ReviewRepository) RecordSignal(ctx context.Context, tx usecase.Transaction, signal *domain.ReviewSignal) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO review_signals (id, workflow_id, transaction_id, kind, decision,
			actor, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		signal.ID,
		signal.WorkflowID,
		signal.TransactionID,
		string(signal.Kind),
		string(signal.Decision),
		signal.Actor,
		signal.Reason,
		timeToPgTimestamptz(signal.CreatedAt),
	)

	return err
}

// SignalsForWorkflow returns a workflow's signal log, oldest first.
func (r *ReviewRepository) SignalsForWorkflow(ctx context.Context, workflowID string) ([]*domain.ReviewSignal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workflow_id, transaction_id, kind, decision, actor, reason, created_at
		FROM review_signals
		WHERE workflow_id = $1
		ORDER BY created_at, id`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*domain.ReviewSignal
	for rows.Next() {
		var (
			signal    domain.ReviewSignal
			kind      string
			decision  string
			createdAt pgtype.Timestamptz
		)
		err := rows.Scan(
			&signal.ID,
			&signal.WorkflowID,
			&signal.TransactionID,
			&kind,
			&decision,
			&signal.Actor,
			&signal.Reason,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		signal.Kind = domain.SignalKind(kind)
		signal.Decision = domain.DecisionType(decision)
		signal.CreatedAt = createdAt.Time
		signals = append(signals, &signal)
	}

	return signals, rows.Err()
}

func scanReview(row pgx.Row) (*domain.HumanReview, error) {
	var (
		review         domain.HumanReview
		priority       string
		slaDeadline    pgtype.Timestamptz
		aiDecision     string
		riskFactors    []byte
		rulesTriggered []byte
		status         string
		resolvedAt     pgtype.Timestamptz
		createdAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&review.ID,
		&review.TransactionID,
		&review.WorkflowID,
		&priority,
		&slaDeadline,
		&aiDecision,
		&review.AIConfidence,
		&review.AIReasoning,
		&riskFactors,
		&rulesTriggered,
		&status,
		&review.ResolvedBy,
		&resolvedAt,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReviewNotFound
		}

		return nil, err
	}

	review.Priority = domain.ReviewPriority(priority)
	review.SLADeadline = slaDeadline.Time
	review.AIDecision = domain.DecisionType(aiDecision)
	unmarshalJSON(riskFactors, &review.RiskFactors)
	unmarshalJSON(rulesTriggered, &review.RulesTriggered)
	review.Status = domain.ReviewStatus(status)
	review.ResolvedAt = pgTimestamptzToTimePtr(resolvedAt)
	review.CreatedAt = createdAt.Time

	return &review, nil
}
