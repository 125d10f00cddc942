// Package risk computes deterministic risk scores for transactions.
// Everything here is a pure function of its inputs.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
)

type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

var (
	tier10k  = decimal.NewFromInt(10000)
	tier50k  = decimal.NewFromInt(50000)
	tier100k = decimal.NewFromInt(100000)
)

// factorSurcharges are additive adjustments for named risk flags.
var factorSurcharges = map[string]float64{
	"high_risk_country":            25,
	"structuring":                  30,
	"structuring_pattern":          30,
	"rapid_movement":               20,
	"new_recipient":                15,
	"round_amount_below_threshold": 15,
	"unusual_time":                 10,
}

// BaseScore returns the score keyed by transaction type plus
// amount-tier surcharges, before risk-factor adjustments.
func BaseScore(txnType domain.TransactionType, amount decimal.Decimal) float64 {
	var score float64
	switch txnType {
	case domain.TransactionTypeACH:
		score = 10
	case domain.TransactionTypeWire:
		score = 30
	case domain.TransactionTypeInternational:
		score = 50
	default:
		score = 25
	}

	switch {
	case amount.GreaterThan(tier100k):
		score += 30
	case amount.GreaterThan(tier50k):
		score += 20
	case amount.GreaterThan(tier10k):
		score += 10
	}

	return clamp(score)
}

// ApplyFactors adds surcharges for each recognized flag, clamped to
// [0,100]. Unknown flags contribute nothing; an empty flag list is a
// missing signal, never a discount.
func ApplyFactors(base float64, flags []string) float64 {
	score := base
	for _, f := range flags {
		score += factorSurcharges[f]
	}
	return clamp(score)
}

// LevelFor buckets a score: low <=25, medium <=50, high <=75,
// very_high above.
func LevelFor(score float64) Level {
	switch {
	case score <= 25:
		return LevelLow
	case score <= 50:
		return LevelMedium
	case score <= 75:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

// Assessment is the combined risk view handed to the decision engine.
type Assessment struct {
	Score               float64
	Level               Level
	Factors             []string
	RequiresEnhancedDD  bool
	ComplianceChecks    map[string]bool
	NetworkScore        float64
	NetworkRiskFactors  []string
	VelocityUnavailable bool
}

// CriticalFailures returns the failed checks that force rejection
// regardless of any model output.
func (a Assessment) CriticalFailures() []string {
	var failed []string
	for _, check := range []string{"ofac_check", "sanctions_check"} {
		if passed, present := a.ComplianceChecks[check]; present && !passed {
			failed = append(failed, check)
		}
	}
	return failed
}

// Score composes base score, rule recommendation floor and factor
// surcharges into the final assessment.
func Score(txn *domain.Transaction, flags []string, ruleAction domain.DecisionType, hasRuleAction bool) Assessment {
	score := ApplyFactors(BaseScore(txn.Type, txn.Amount), flags)

	// A rule recommendation floors the score: reject >= 90, escalate >= 70.
	if hasRuleAction {
		switch ruleAction {
		case domain.DecisionReject:
			if score < 90 {
				score = 90
			}
		case domain.DecisionEscalate:
			if score < 70 {
				score = 70
			}
		}
	}

	requiresEDD := score > 70 ||
		txn.Amount.GreaterThan(tier100k) ||
		hasFlag(flags, "high_risk_country") ||
		(hasRuleAction && ruleAction != domain.DecisionApprove)

	return Assessment{
		Score:              score,
		Level:              LevelFor(score),
		Factors:            flags,
		RequiresEnhancedDD: requiresEDD,
	}
}

// CheckPatterns inspects trailing history for velocity and splitting
// patterns, returning flags to merge into the assessment.
func CheckPatterns(recentCount, similarAmountCount int) []string {
	var patterns []string
	if recentCount > 5 {
		patterns = append(patterns, "high_velocity")
	}
	if similarAmountCount > 3 {
		patterns = append(patterns, "potential_splitting")
	}
	return patterns
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
