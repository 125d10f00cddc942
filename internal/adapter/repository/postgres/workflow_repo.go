package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avlor/fraudgate/internal/domain"
)

// WorkflowRepository implements usecase.WorkflowRepository. The
// checkpoint is written as one row per workflow; Save upserts the whole
// thing so a checkpoint is always internally consistent.
type WorkflowRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository creates a new WorkflowRepository.
func NewWorkflowRepository(pool *pgxpool.Pool) *WorkflowRepository {
	return &WorkflowRepository{pool: pool}
}

const workflowColumns = `id, transaction_id, stage, hold_id, embedding, similar_cases,
	risk_score, risk_level, risk_factors, rules_triggered, rule_action, network_score,
	draft, decision_id, review_id, stages_completed, retry_count, last_error,
	started_at, updated_at`

// Create inserts the initial checkpoint.
func (r *WorkflowRepository) Create(ctx context.Context, state *domain.WorkflowExecutionState) error {
	return r.write(ctx, state, `
		INSERT INTO workflow_states (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`)
}

// Save upserts the full checkpoint. Called after every stage.
func (r *WorkflowRepository) Save(ctx context.Context, state *domain.WorkflowExecutionState) error {
	return r.write(ctx, state, `
		INSERT INTO workflow_states (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			stage = EXCLUDED.stage,
			hold_id = EXCLUDED.hold_id,
			embedding = EXCLUDED.embedding,
			similar_cases = EXCLUDED.similar_cases,
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			risk_factors = EXCLUDED.risk_factors,
			rules_triggered = EXCLUDED.rules_triggered,
			rule_action = EXCLUDED.rule_action,
			network_score = EXCLUDED.network_score,
			draft = EXCLUDED.draft,
			decision_id = EXCLUDED.decision_id,
			review_id = EXCLUDED.review_id,
			stages_completed = EXCLUDED.stages_completed,
			retry_count = EXCLUDED.retry_count,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at`)
}

func (r *WorkflowRepository) write(ctx context.Context, state *domain.WorkflowExecutionState, sql string) error {
	embedding, err := marshalJSON(state.Embedding)
	if err != nil {
		return err
	}
	similarCases, err := marshalJSON(state.SimilarCases)
	if err != nil {
		return err
	}
	riskFactors, err := marshalJSON(state.RiskFactors)
	if err != nil {
		return err
	}
	rulesTriggered, err := marshalJSON(state.RulesTriggered)
	if err != nil {
		return err
	}
	draft, err := marshalJSON(state.Draft)
	if err != nil {
		return err
	}
	stagesCompleted, err := marshalJSON(state.StagesCompleted)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, sql,
		state.ID,
		state.TransactionID,
		string(state.Stage),
		state.HoldID,
		embedding,
		similarCases,
		state.RiskScore,
		state.RiskLevel,
		riskFactors,
		rulesTriggered,
		state.RuleAction,
		state.NetworkScore,
		draft,
		state.DecisionID,
		state.ReviewID,
		stagesCompleted,
		state.RetryCount,
		state.LastError,
		timeToPgTimestamptz(state.StartedAt),
		timeToPgTimestamptz(state.UpdatedAt),
	)

	return err
}

// Get retrieves a checkpoint by workflow ID.
func (r *WorkflowRepository) Get(ctx context.Context, id string) (*domain.WorkflowExecutionState, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+workflowColumns+`
		FROM workflow_states
		WHERE id = $1`, id)

	return scanWorkflow(row)
}

// GetByTransactionID retrieves the checkpoint for a transaction.
func (r *WorkflowRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.WorkflowExecutionState, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+workflowColumns+`
		FROM workflow_states
		WHERE transaction_id = $1`, transactionID)

	return scanWorkflow(row)
}

// ListInFlight returns workflows whose stage is non-terminal, for the
// resume loader. Oldest first so stuck work drains in order.
func (r *WorkflowRepository) ListInFlight(ctx context.Context, limit int) ([]*domain.WorkflowExecutionState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workflowColumns+`
		FROM workflow_states
		WHERE stage NOT IN ($1, $2)
		ORDER BY started_at
		LIMIT $3`,
		string(domain.StageCompleted),
		string(domain.StageFailed),
		int32(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make([]*domain.WorkflowExecutionState, 0, limit)
	for rows.Next() {
		state, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}

	return states, rows.Err()
}

func scanWorkflow(row pgx.Row) (*domain.WorkflowExecutionState, error) {
	var (
		state           domain.WorkflowExecutionState
		stage           string
		embedding       []byte
		similarCases    []byte
		riskFactors     []byte
		rulesTriggered  []byte
		draft           []byte
		stagesCompleted []byte
		startedAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&state.ID,
		&state.TransactionID,
		&stage,
		&state.HoldID,
		&embedding,
		&similarCases,
		&state.RiskScore,
		&state.RiskLevel,
		&riskFactors,
		&rulesTriggered,
		&state.RuleAction,
		&state.NetworkScore,
		&draft,
		&state.DecisionID,
		&state.ReviewID,
		&stagesCompleted,
		&state.RetryCount,
		&state.LastError,
		&startedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}

		return nil, err
	}

	state.Stage = domain.Stage(stage)
	unmarshalJSON(embedding, &state.Embedding)
	unmarshalJSON(similarCases, &state.SimilarCases)
	unmarshalJSON(riskFactors, &state.RiskFactors)
	unmarshalJSON(rulesTriggered, &state.RulesTriggered)
	unmarshalJSON(draft, &state.Draft)
	unmarshalJSON(stagesCompleted, &state.StagesCompleted)
	state.StartedAt = startedAt.Time
	state.UpdatedAt = updatedAt.Time

	return &state, nil
}
