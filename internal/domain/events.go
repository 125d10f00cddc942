package domain

import "time"

// Event types
const (
	EventTypeDecisionMade      = "decision.made"
	EventTypeDecisionAmended   = "decision.amended"
	EventTypeStatusChanged     = "transaction.status_changed"
	EventTypeTransferCommitted = "transfer.committed"
	EventTypeHoldPlaced        = "hold.placed"
	EventTypeHoldReleased      = "hold.released"
	EventTypeReviewOpened      = "review.opened"
	EventTypeReviewResolved    = "review.resolved"
	EventTypeWorkflowFailed    = "workflow.failed"
	EventTypeNotification      = "notification.requested"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeDecision    = "decision"
	AggregateTypeHold        = "hold"
	AggregateTypeReview      = "review"
	AggregateTypeWorkflow    = "workflow"
)

// OutboxEvent is a notification/audit record written in the same
// database transaction as the state change it describes, then drained
// to the broker by the relay. This preserves the decision -> status ->
// notify ordering without making notification delivery a workflow step
// that can fail the workflow.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// DecisionMadeEvent payload
type DecisionMadeEvent struct {
	DecisionID    string  `json:"decision_id"`
	TransactionID string  `json:"transaction_id"`
	Decision      string  `json:"decision"`
	Confidence    float64 `json:"confidence"`
	RiskScore     float64 `json:"risk_score"`
}

// StatusChangedEvent payload
type StatusChangedEvent struct {
	TransactionID string `json:"transaction_id"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
}

// TransferCommittedEvent payload
type TransferCommittedEvent struct {
	TransactionID string `json:"transaction_id"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// ReviewOpenedEvent payload
type ReviewOpenedEvent struct {
	ReviewID      string `json:"review_id"`
	TransactionID string `json:"transaction_id"`
	Priority      string `json:"priority"`
	SLADeadline   string `json:"sla_deadline"`
}
