package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
)

// DecisionRepository implements usecase.DecisionRepository. Rows are
// append-only; there is no UPDATE statement in this file on purpose.
type DecisionRepository struct {
	pool *pgxpool.Pool
}

// NewDecisionRepository creates a new DecisionRepository.
func NewDecisionRepository(pool *pgxpool.Pool) *DecisionRepository {
	return &DecisionRepository{pool: pool}
}

const decisionColumns = `id, transaction_id, decision, confidence, risk_score, risk_level,
	reasoning, risk_factors, rules_triggered, similar_cases, compliance_notes,
	model_version, processing_time_ms, workflow_id, amends_decision_id, decided_by, created_at`

// Create inserts a decision row.
func (r *DecisionRepository) Create(ctx context.Context, tx usecase.Transaction, decision *domain.Decision) error {
	riskFactors, err := marshalJSON(decision.RiskFactors)
	if err != nil {
		return err
	}
	rulesTriggered, err := marshalJSON(decision.RulesTriggered)
	if err != nil {
		return err
	}
	similarCases, err := marshalJSON(decision.SimilarCases)
	if err != nil {
		return err
	}

	_, err = txQuerier(tx).Exec(ctx, `
		INSERT INTO decisions (`+decisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		decision.ID,
		decision.TransactionID,
		string(decision.Decision),
		decision.Confidence,
		decision.RiskScore,
		decision.RiskLevel,
		decision.Reasoning,
		riskFactors,
		rulesTriggered,
		similarCases,
		decision.ComplianceNotes,
		decision.ModelVersion,
		decision.ProcessingTimeMS,
		decision.WorkflowID,
		decision.AmendsDecisionID,
		decision.DecidedBy,
		timeToPgTimestamptz(decision.CreatedAt),
	)

	return err
}

// GetByID retrieves a decision by ID.
func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*domain.Decision, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE id = $1`, id)

	return scanDecision(row)
}

// GetLatestByTransactionID returns the most recent decision row for a
// transaction, or domain.ErrDecisionNotFound. Amendments sort after the
// rows they amend, so the latest row is the effective verdict.
func (r *DecisionRepository) GetLatestByTransactionID(ctx context.Context, transactionID string) (*domain.Decision, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE transaction_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, transactionID)

	return scanDecision(row)
}

// ListByTransactionID returns all decision rows for a transaction,
// oldest first.
func (r *DecisionRepository) ListByTransactionID(ctx context.Context, transactionID string) ([]*domain.Decision, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE transaction_id = $1
		ORDER BY created_at, id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	decisions := make([]*domain.Decision, 0, 2)
	for rows.Next() {
		decision, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, decision)
	}

	return decisions, rows.Err()
}

func scanDecision(row pgx.Row) (*domain.Decision, error) {
	var (
		decision       domain.Decision
		decisionType   string
		riskFactors    []byte
		rulesTriggered []byte
		similarCases   []byte
		createdAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&decision.ID,
		&decision.TransactionID,
		&decisionType,
		&decision.Confidence,
		&decision.RiskScore,
		&decision.RiskLevel,
		&decision.Reasoning,
		&riskFactors,
		&rulesTriggered,
		&similarCases,
		&decision.ComplianceNotes,
		&decision.ModelVersion,
		&decision.ProcessingTimeMS,
		&decision.WorkflowID,
		&decision.AmendsDecisionID,
		&decision.DecidedBy,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDecisionNotFound
		}

		return nil, err
	}

	decision.Decision = domain.DecisionType(decisionType)
	unmarshalJSON(riskFactors, &decision.RiskFactors)
	unmarshalJSON(rulesTriggered, &decision.RulesTriggered)
	unmarshalJSON(similarCases, &decision.SimilarCases)
	decision.CreatedAt = createdAt.Time

	return &decision, nil
}
