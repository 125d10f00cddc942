package domain

import "time"

// Stage is one checkpointed step of the transaction workflow. Stages
// advance linearly with a single branch at escalation; Failed is
// reachable from any stage.
type Stage string

const (
	StageInitialized       Stage = "initialized"
	StageFundsValidated    Stage = "funds_validated"
	StageEnriched          Stage = "enriched"
	StageRiskAssessed      Stage = "risk_assessed"
	StageSimilarCasesFound Stage = "similar_cases_found"
	StageNetworkAnalyzed   Stage = "network_analyzed"
	StageDecided           Stage = "decided"
	StageEscalated         Stage = "escalated"
	StageAwaitingManager   Stage = "awaiting_manager"
	StageSettled           Stage = "settled"
	StageDecisionStored    Stage = "decision_stored"
	StageStatusUpdated     Stage = "status_updated"
	StageCompleted         Stage = "completed"
	StageFailed            Stage = "failed"
)

// Terminal reports whether the stage ends the workflow.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// WorkflowExecutionState is the orchestrator's durable record. It is
// persisted after every stage transition so a crash between any two
// stages resumes exactly where it left off without re-executing
// committed side effects.
type WorkflowExecutionState struct {
	ID              string
	TransactionID   string
	Stage           Stage
	HoldID          string
	Embedding       []float64
	SimilarCases    []SimilarCase
	RiskScore       float64
	RiskLevel       string
	RiskFactors     []string
	RulesTriggered  []string
	RuleAction      string
	NetworkScore    float64
	Draft           *Decision
	DecisionID      string
	ReviewID        string
	StagesCompleted []string
	RetryCount      int
	LastError       string
	StartedAt       time.Time
	UpdatedAt       time.Time
}

// CompleteStage records a finished stage and moves to next.
func (w *WorkflowExecutionState) CompleteStage(name string, next Stage) {
	w.Stage = next
	w.StagesCompleted = append(w.StagesCompleted, name)
	w.RetryCount = 0
}
