package rules

import "github.com/avlor/fraudgate/internal/domain"

// highRiskCountries is the sanctioned/high-risk country list shared by
// the geography rule and the compliance checks.
var highRiskCountries = []string{"RU", "IR", "KP", "SY", "AF", "YE"}

// HighRiskCountry reports whether a country code is on the list.
func HighRiskCountry(code string) bool {
	for _, c := range highRiskCountries {
		if c == code {
			return true
		}
	}
	return false
}

// DefaultRules is the built-in rule set. The structuring window
// (amount strictly between 4900 and 5000 on a wire) mirrors the $5000
// regulatory reporting threshold and must not be widened or narrowed.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "high_amount_wire",
			Name:        "High Amount Wire Transfer",
			Description: "Escalate wire transfers above $50,000",
			Category:    "amount",
			Condition: Condition{Logic: LogicAnd, Children: []Condition{
				{Field: "transaction_type", Operator: OpEquals, Value: "wire"},
				{Field: "amount", Operator: OpGreaterThan, Value: 50000},
			}},
			Action:   domain.DecisionEscalate,
			Priority: 50,
		},
		{
			ID:          "high_risk_country",
			Name:        "International High Risk Country",
			Description: "Escalate transactions to or from high risk countries",
			Category:    "geography",
			Condition: Condition{Logic: LogicOr, Children: []Condition{
				{Field: "recipient.country", Operator: OpIn, Value: highRiskCountries},
				{Field: "sender.country", Operator: OpIn, Value: highRiskCountries},
			}},
			Action:   domain.DecisionEscalate,
			Priority: 80,
		},
		{
			ID:          "round_amount_below_threshold",
			Name:        "Suspicious Round Amount",
			Description: "Flag amounts just below reporting thresholds",
			Category:    "pattern",
			Condition: Condition{Logic: LogicOr, Children: []Condition{
				{Field: "amount", Operator: OpEquals, Value: 9999},
				{Field: "amount", Operator: OpEquals, Value: 99999},
			}},
			Action:   domain.DecisionEscalate,
			Priority: 60,
		},
		{
			ID:          "after_hours_large",
			Name:        "After Hours Large Transaction",
			Description: "Flag large transactions outside business hours",
			Category:    "pattern",
			Condition: Condition{Logic: LogicAnd, Children: []Condition{
				{Field: "amount", Operator: OpGreaterThan, Value: 25000},
				{Field: "metadata.unusual_time", Operator: OpEquals, Value: true},
			}},
			Action:   domain.DecisionEscalate,
			Priority: 70,
		},
		{
			ID:          "rapid_movement",
			Name:        "Rapid Movement Pattern",
			Description: "Detect rapid fund movement patterns",
			Category:    "velocity",
			Condition: Condition{Logic: LogicOr, Children: []Condition{
				{Logic: LogicAnd, Children: []Condition{
					{Field: "metadata.velocity_1h", Operator: OpGreaterThan, Value: 2},
					{Field: "amount", Operator: OpGreaterThan, Value: 20000},
				}},
				{Field: "metadata.total_amount_1h", Operator: OpGreaterThan, Value: 75000},
			}},
			Action:   domain.DecisionEscalate,
			Priority: 90,
		},
		{
			ID:          "structuring_pattern",
			Name:        "Structuring Pattern Detection",
			Description: "Detect potential structuring to avoid the $5000 reporting threshold",
			Category:    "pattern",
			Condition: Condition{Logic: LogicAnd, Children: []Condition{
				{Field: "amount", Operator: OpGreaterThan, Value: 4900},
				{Field: "amount", Operator: OpLessThan, Value: 5000},
				{Field: "transaction_type", Operator: OpEquals, Value: "wire"},
			}},
			Action:   domain.DecisionEscalate,
			Priority: 95,
		},
		{
			ID:          "offshore_structuring",
			Name:        "Multiple Structuring Pattern",
			Description: "Repeated near-threshold transfers to offshore entities",
			Category:    "pattern",
			Condition: Condition{Logic: LogicAnd, Children: []Condition{
				{Field: "amount", Operator: OpGreaterThan, Value: 4800},
				{Field: "amount", Operator: OpLessThan, Value: 5000},
				{Field: "recipient.name", Operator: OpRegex, Value: "Offshore.*"},
			}},
			Action:   domain.DecisionEscalate,
			Priority: 96,
		},
	}
}
