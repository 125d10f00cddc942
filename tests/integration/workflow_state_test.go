package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/adapter/repository/postgres"
	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/tests/testutil"
)

func TestWorkflowCheckpointRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	repo := postgres.NewWorkflowRepository(testDB.Pool)
	txn := testDB.CreateTestTransaction(ctx, "ACC-7001", "ACC-7002", decimal.NewFromInt(100))

	now := time.Now().UTC().Truncate(time.Millisecond)
	state := &domain.WorkflowExecutionState{
		ID:            testutil.GenerateID(),
		TransactionID: txn.ID,
		Stage:         domain.StageInitialized,
		StartedAt:     now,
		UpdatedAt:     now,
	}

	if err := repo.Create(ctx, state); err != nil {
		t.Fatalf("failed to create workflow state: %v", err)
	}

	// Advance a few stages and save the checkpoint.
	state.CompleteStage("validate_funds", domain.StageFundsValidated)
	state.HoldID = testutil.GenerateID()
	state.CompleteStage("enrich", domain.StageEnriched)
	state.RiskScore = 42.5
	state.RiskLevel = "medium"
	state.RiskFactors = []string{"velocity_breach"}
	state.RulesTriggered = []string{"amount_threshold"}
	state.UpdatedAt = time.Now().UTC()

	if err := repo.Save(ctx, state); err != nil {
		t.Fatalf("failed to save workflow state: %v", err)
	}

	got, err := repo.Get(ctx, state.ID)
	if err != nil {
		t.Fatalf("failed to get workflow state: %v", err)
	}

	if got.Stage != domain.StageEnriched {
		t.Errorf("expected stage %s, got %s", domain.StageEnriched, got.Stage)
	}
	if got.HoldID != state.HoldID {
		t.Errorf("expected hold id %s, got %s", state.HoldID, got.HoldID)
	}
	if got.RiskScore != 42.5 {
		t.Errorf("expected risk score 42.5, got %v", got.RiskScore)
	}
	if len(got.StagesCompleted) != 2 {
		t.Errorf("expected 2 completed stages, got %v", got.StagesCompleted)
	}
	if len(got.RiskFactors) != 1 || got.RiskFactors[0] != "velocity_breach" {
		t.Errorf("expected risk factors to round-trip, got %v", got.RiskFactors)
	}

	byTxn, err := repo.GetByTransactionID(ctx, txn.ID)
	if err != nil {
		t.Fatalf("failed to get workflow by transaction: %v", err)
	}
	if byTxn.ID != state.ID {
		t.Errorf("expected workflow %s, got %s", state.ID, byTxn.ID)
	}
}

func TestWorkflowListInFlightExcludesTerminal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	repo := postgres.NewWorkflowRepository(testDB.Pool)

	mkState := func(stage domain.Stage) *domain.WorkflowExecutionState {
		txn := testDB.CreateTestTransaction(ctx, "ACC-"+testutil.GenerateID()[:8], "ACC-"+testutil.GenerateID()[:8], decimal.NewFromInt(50))
		now := time.Now().UTC()
		state := &domain.WorkflowExecutionState{
			ID:            testutil.GenerateID(),
			TransactionID: txn.ID,
			Stage:         stage,
			StartedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.Create(ctx, state); err != nil {
			t.Fatalf("failed to create workflow state: %v", err)
		}
		return state
	}

	waiting := mkState(domain.StageEscalated)
	running := mkState(domain.StageRiskAssessed)
	mkState(domain.StageCompleted)
	mkState(domain.StageFailed)

	inFlight, err := repo.ListInFlight(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list in-flight workflows: %v", err)
	}

	if len(inFlight) != 2 {
		t.Fatalf("expected 2 in-flight workflows, got %d", len(inFlight))
	}

	seen := map[string]bool{}
	for _, s := range inFlight {
		seen[s.ID] = true
	}
	if !seen[waiting.ID] || !seen[running.ID] {
		t.Errorf("expected waiting and running workflows in the resume set, got %v", seen)
	}
}
