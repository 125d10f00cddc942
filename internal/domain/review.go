package domain

import "time"

type ReviewPriority string

const (
	ReviewPriorityUrgent ReviewPriority = "urgent"
	ReviewPriorityHigh   ReviewPriority = "high"
	ReviewPriorityMedium ReviewPriority = "medium"
	ReviewPriorityLow    ReviewPriority = "low"
)

// PriorityForRiskScore buckets a risk score into a review priority.
func PriorityForRiskScore(score float64) ReviewPriority {
	switch {
	case score > 80:
		return ReviewPriorityUrgent
	case score > 60:
		return ReviewPriorityHigh
	case score > 40:
		return ReviewPriorityMedium
	default:
		return ReviewPriorityLow
	}
}

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusResolved ReviewStatus = "resolved"
	ReviewStatusExpired  ReviewStatus = "expired"
)

// HumanReview is the durable mailbox entry the orchestrator blocks on
// when a decision is escalated.
type HumanReview struct {
	ID             string
	TransactionID  string
	WorkflowID     string
	Priority       ReviewPriority
	SLADeadline    time.Time
	AIDecision     DecisionType
	AIConfidence   float64
	AIReasoning    string
	RiskFactors    []string
	RulesTriggered []string
	Status         ReviewStatus
	ResolvedBy     string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
}

type SignalKind string

const (
	SignalHumanReview     SignalKind = "human_review"
	SignalManagerApproval SignalKind = "manager_approval"
	SignalManualOverride  SignalKind = "manual_override"
)

// ReviewSignal is the durably recorded payload of an out-of-band signal.
// It is written before the waiting workflow is released, so a crash
// between signal receipt and resume cannot lose the reviewer's verdict.
type ReviewSignal struct {
	ID            string
	WorkflowID    string
	TransactionID string
	Kind          SignalKind
	Decision      DecisionType
	Actor         string
	Reason        string
	CreatedAt     time.Time
}
