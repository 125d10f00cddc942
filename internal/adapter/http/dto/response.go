package dto

import (
	"time"

	"github.com/avlor/fraudgate/internal/domain"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PartyResponse mirrors PartyRequest on the way out.
type PartyResponse struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Country       string `json:"country"`
	CustomerID    string `json:"customer_id,omitempty"`
}

func partyFromDomain(p domain.Party) PartyResponse {
	return PartyResponse{
		Name:          p.Name,
		AccountNumber: p.AccountNumber,
		Country:       p.Country,
		CustomerID:    p.CustomerID,
	}
}

// TransactionResponse represents a transaction.
type TransactionResponse struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Amount     string              `json:"amount"`
	Currency   string              `json:"currency"`
	Sender     PartyResponse       `json:"sender"`
	Recipient  PartyResponse       `json:"recipient"`
	Reference  string              `json:"reference,omitempty"`
	Status     string              `json:"status"`
	RiskFlags  []string            `json:"risk_flags,omitempty"`
	StageTrail []StageEventResponse `json:"stage_trail,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// StageEventResponse is one entry of the processing trail.
type StageEventResponse struct {
	Stage      string    `json:"stage"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TransactionFromDomain converts a domain transaction.
func TransactionFromDomain(t *domain.Transaction) TransactionResponse {
	trail := make([]StageEventResponse, 0, len(t.StageTrail))
	for _, e := range t.StageTrail {
		trail = append(trail, StageEventResponse{Stage: e.Stage, OccurredAt: e.OccurredAt})
	}
	return TransactionResponse{
		ID:         t.ID,
		Type:       string(t.Type),
		Amount:     t.Amount.String(),
		Currency:   t.Currency,
		Sender:     partyFromDomain(t.Sender),
		Recipient:  partyFromDomain(t.Recipient),
		Reference:  t.Reference,
		Status:     string(t.Status),
		RiskFlags:  t.RiskFlags,
		StageTrail: trail,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// WorkflowResponse represents a workflow checkpoint.
type WorkflowResponse struct {
	ID              string    `json:"id"`
	TransactionID   string    `json:"transaction_id"`
	Stage           string    `json:"stage"`
	RiskScore       float64   `json:"risk_score"`
	RiskLevel       string    `json:"risk_level,omitempty"`
	RiskFactors     []string  `json:"risk_factors,omitempty"`
	RulesTriggered  []string  `json:"rules_triggered,omitempty"`
	NetworkScore    float64   `json:"network_score"`
	DecisionID      string    `json:"decision_id,omitempty"`
	ReviewID        string    `json:"review_id,omitempty"`
	StagesCompleted []string  `json:"stages_completed,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// WorkflowFromDomain converts a workflow checkpoint.
func WorkflowFromDomain(w *domain.WorkflowExecutionState) WorkflowResponse {
	return WorkflowResponse{
		ID:              w.ID,
		TransactionID:   w.TransactionID,
		Stage:           string(w.Stage),
		RiskScore:       w.RiskScore,
		RiskLevel:       w.RiskLevel,
		RiskFactors:     w.RiskFactors,
		RulesTriggered:  w.RulesTriggered,
		NetworkScore:    w.NetworkScore,
		DecisionID:      w.DecisionID,
		ReviewID:        w.ReviewID,
		StagesCompleted: w.StagesCompleted,
		LastError:       w.LastError,
		StartedAt:       w.StartedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// SimilarCaseResponse links a decision to a compared transaction.
type SimilarCaseResponse struct {
	TransactionID string  `json:"transaction_id"`
	Score         float64 `json:"score"`
	PriorDecision string  `json:"prior_decision,omitempty"`
}

// DecisionResponse represents a decision row.
type DecisionResponse struct {
	ID               string                `json:"id"`
	TransactionID    string                `json:"transaction_id"`
	Decision         string                `json:"decision"`
	Confidence       float64               `json:"confidence"`
	RiskScore        float64               `json:"risk_score"`
	RiskLevel        string                `json:"risk_level,omitempty"`
	Reasoning        string                `json:"reasoning,omitempty"`
	RiskFactors      []string              `json:"risk_factors,omitempty"`
	RulesTriggered   []string              `json:"rules_triggered,omitempty"`
	SimilarCases     []SimilarCaseResponse `json:"similar_cases,omitempty"`
	ComplianceNotes  string                `json:"compliance_notes,omitempty"`
	ModelVersion     string                `json:"model_version,omitempty"`
	AmendsDecisionID *string               `json:"amends_decision_id,omitempty"`
	DecidedBy        string                `json:"decided_by"`
	CreatedAt        time.Time             `json:"created_at"`
}

// DecisionFromDomain converts a domain decision.
func DecisionFromDomain(d *domain.Decision) DecisionResponse {
	cases := make([]SimilarCaseResponse, 0, len(d.SimilarCases))
	for _, c := range d.SimilarCases {
		cases = append(cases, SimilarCaseResponse{
			TransactionID: c.TransactionID,
			Score:         c.Score,
			PriorDecision: string(c.PriorDecision),
		})
	}
	return DecisionResponse{
		ID:               d.ID,
		TransactionID:    d.TransactionID,
		Decision:         string(d.Decision),
		Confidence:       d.Confidence,
		RiskScore:        d.RiskScore,
		RiskLevel:        d.RiskLevel,
		Reasoning:        d.Reasoning,
		RiskFactors:      d.RiskFactors,
		RulesTriggered:   d.RulesTriggered,
		SimilarCases:     cases,
		ComplianceNotes:  d.ComplianceNotes,
		ModelVersion:     d.ModelVersion,
		AmendsDecisionID: d.AmendsDecisionID,
		DecidedBy:        d.DecidedBy,
		CreatedAt:        d.CreatedAt,
	}
}

// DecisionsFromDomain converts a slice of decisions.
func DecisionsFromDomain(decisions []*domain.Decision) []DecisionResponse {
	out := make([]DecisionResponse, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, DecisionFromDomain(d))
	}
	return out
}

// ReviewResponse represents a human review queue entry.
type ReviewResponse struct {
	ID             string     `json:"id"`
	TransactionID  string     `json:"transaction_id"`
	WorkflowID     string     `json:"workflow_id"`
	Priority       string     `json:"priority"`
	SLADeadline    time.Time  `json:"sla_deadline"`
	AIDecision     string     `json:"ai_decision,omitempty"`
	AIConfidence   float64    `json:"ai_confidence"`
	AIReasoning    string     `json:"ai_reasoning,omitempty"`
	RiskFactors    []string   `json:"risk_factors,omitempty"`
	RulesTriggered []string   `json:"rules_triggered,omitempty"`
	Status         string     `json:"status"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ReviewFromDomain converts a domain review.
func ReviewFromDomain(r *domain.HumanReview) ReviewResponse {
	return ReviewResponse{
		ID:             r.ID,
		TransactionID:  r.TransactionID,
		WorkflowID:     r.WorkflowID,
		Priority:       string(r.Priority),
		SLADeadline:    r.SLADeadline,
		AIDecision:     string(r.AIDecision),
		AIConfidence:   r.AIConfidence,
		AIReasoning:    r.AIReasoning,
		RiskFactors:    r.RiskFactors,
		RulesTriggered: r.RulesTriggered,
		Status:         string(r.Status),
		ResolvedBy:     r.ResolvedBy,
		ResolvedAt:     r.ResolvedAt,
		CreatedAt:      r.CreatedAt,
	}
}

// ReviewsFromDomain converts a slice of reviews.
func ReviewsFromDomain(reviews []*domain.HumanReview) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, ReviewFromDomain(r))
	}
	return out
}

// AccountResponse represents an account.
type AccountResponse struct {
	AccountNumber    string     `json:"account_number"`
	OwnerName        string     `json:"owner_name,omitempty"`
	Balance          string     `json:"balance"`
	AvailableBalance string     `json:"available_balance"`
	OverdraftLimit   string     `json:"overdraft_limit"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	TransactionCount int64      `json:"transaction_count"`
	LastTransaction  *time.Time `json:"last_transaction_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AccountFromDomain converts a domain account.
func AccountFromDomain(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountNumber:    a.AccountNumber,
		OwnerName:        a.OwnerName,
		Balance:          a.Balance.String(),
		AvailableBalance: a.AvailableBalance.String(),
		OverdraftLimit:   a.OverdraftLimit.String(),
		Currency:         a.Currency,
		Status:           string(a.Status),
		TransactionCount: a.TransactionCount,
		LastTransaction:  a.LastTransactionAt,
		CreatedAt:        a.CreatedAt,
	}
}

// SubmitResponse is returned when a transaction enters the pipeline.
type SubmitResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	WorkflowID  string              `json:"workflow_id"`
}
