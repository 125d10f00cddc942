// Package rules evaluates boolean condition trees over transaction
// fields and maps triggered rules to recommended actions. Evaluation is
// pure and deterministic: no I/O, no clock reads.
package rules

import (
	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
)

type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpContains       Operator = "contains"
	OpRegex          Operator = "regex"
	OpExists         Operator = "exists"
	OpNotExists      Operator = "not_exists"
)

type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Condition is a discriminated union: a composite node carries Logic
// and Children, a leaf carries Field/Operator/Value.
type Condition struct {
	Logic    Logic       `json:"logic,omitempty"`
	Children []Condition `json:"conditions,omitempty"`
	Field    string      `json:"field,omitempty"`
	Operator Operator    `json:"operator,omitempty"`
	Value    any         `json:"value,omitempty"`
}

func (c Condition) leaf() bool { return len(c.Children) == 0 }

// Rule maps a condition tree to a recommended action with a priority.
type Rule struct {
	ID          string
	Name        string
	Description string
	Category    string
	Condition   Condition
	Action      domain.DecisionType
	Priority    int
}

// Result is the outcome of applying a rule set to one transaction.
type Result struct {
	TriggeredRules    []string
	RiskFlags         []string
	RecommendedAction domain.DecisionType
	HasRecommendation bool
	RuleCount         int
}

// Subject is the typed field view a condition tree is evaluated
// against. Field paths resolve through an explicit switch rather than
// reflection; unknown paths resolve to absent.
type Subject struct {
	Transaction *domain.Transaction
	Metadata    map[string]any
}

// NewSubject builds the evaluation view for a transaction. Extra holds
// enrichment-derived fields (velocity counts, unusual_time and so on)
// addressable under "metadata.".
func NewSubject(txn *domain.Transaction, extra map[string]any) Subject {
	md := make(map[string]any, len(txn.Metadata)+len(extra))
	for k, v := range txn.Metadata {
		md[k] = v
	}
	for k, v := range extra {
		md[k] = v
	}
	return Subject{Transaction: txn, Metadata: md}
}

// Resolve returns the value at a field path and whether it exists.
func (s Subject) Resolve(field string) (any, bool) {
	t := s.Transaction
	switch field {
	case "transaction_id":
		return t.ID, true
	case "transaction_type":
		return string(t.Type), true
	case "amount":
		return t.Amount, true
	case "currency":
		return t.Currency, true
	case "reference":
		return t.Reference, true
	case "sender.name":
		return t.Sender.Name, true
	case "sender.country":
		return t.Sender.Country, true
	case "sender.account_number":
		return t.Sender.AccountNumber, true
	case "sender.customer_id":
		return t.Sender.CustomerID, true
	case "recipient.name":
		return t.Recipient.Name, true
	case "recipient.country":
		return t.Recipient.Country, true
	case "recipient.account_number":
		return t.Recipient.AccountNumber, true
	case "recipient.customer_id":
		return t.Recipient.CustomerID, true
	}

	const metaPrefix = "metadata."
	if len(field) > len(metaPrefix) && field[:len(metaPrefix)] == metaPrefix {
		v, ok := s.Metadata[field[len(metaPrefix):]]
		return v, ok
	}

	return nil, false
}

func amountValue(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
