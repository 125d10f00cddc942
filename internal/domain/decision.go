package domain

import "time"

type DecisionType string

const (
	DecisionApprove  DecisionType = "approve"
	DecisionReject   DecisionType = "reject"
	DecisionEscalate DecisionType = "escalate"
)

// NormalizeDecision maps free-form decision values onto the canonical
// taxonomy. Legacy values ("flag", "hold") and anything unrecognized
// resolve to escalate, never approve.
func NormalizeDecision(raw string) DecisionType {
	switch DecisionType(raw) {
	case DecisionApprove:
		return DecisionApprove
	case DecisionReject:
		return DecisionReject
	default:
		return DecisionEscalate
	}
}

// SimilarCase links a decision to a historical transaction it was
// compared against.
type SimilarCase struct {
	TransactionID string       `json:"transaction_id"`
	Score         float64      `json:"score"`
	PriorDecision DecisionType `json:"prior_decision"`
}

// Decision is the append-only output of the decision engine for one
// transaction. A human override never mutates the original row; it
// inserts an amendment pointing back via AmendsDecisionID.
type Decision struct {
	ID               string
	TransactionID    string
	Decision         DecisionType
	Confidence       float64
	RiskScore        float64
	RiskLevel        string
	Reasoning        string
	RiskFactors      []string
	RulesTriggered   []string
	SimilarCases     []SimilarCase
	ComplianceNotes  string
	ModelVersion     string
	ProcessingTimeMS int64
	WorkflowID       string
	AmendsDecisionID *string
	DecidedBy        string
	CreatedAt        time.Time
}
