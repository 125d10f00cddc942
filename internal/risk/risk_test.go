package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
)

func TestBaseScore(t *testing.T) {
	tests := []struct {
		name    string
		txnType domain.TransactionType
		amount  int64
		want    float64
	}{
		{"ach small", domain.TransactionTypeACH, 2500, 10},
		{"ach over 10k", domain.TransactionTypeACH, 10001, 20},
		{"wire over 50k", domain.TransactionTypeWire, 75000, 50},
		{"international over 100k", domain.TransactionTypeInternational, 150000, 80},
		{"tier boundary exclusive", domain.TransactionTypeACH, 10000, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BaseScore(tt.txnType, decimal.NewFromInt(tt.amount))
			if got != tt.want {
				t.Fatalf("BaseScore(%s, %d) = %v, want %v", tt.txnType, tt.amount, got, tt.want)
			}
		})
	}
}

func TestApplyFactors(t *testing.T) {
	got := ApplyFactors(30, []string{"high_risk_country", "rapid_movement"})
	if got != 75 {
		t.Fatalf("ApplyFactors = %v, want 75", got)
	}

	// Clamp at 100.
	got = ApplyFactors(90, []string{"structuring_pattern", "high_risk_country"})
	if got != 100 {
		t.Fatalf("ApplyFactors clamp = %v, want 100", got)
	}

	// Unknown flags and empty lists are no-ops, never discounts.
	if got := ApplyFactors(40, []string{"made_up_flag"}); got != 40 {
		t.Fatalf("unknown flag changed score to %v", got)
	}
	if got := ApplyFactors(40, nil); got != 40 {
		t.Fatalf("empty flags changed score to %v", got)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0, LevelLow},
		{25, LevelLow},
		{26, LevelMedium},
		{50, LevelMedium},
		{75, LevelHigh},
		{76, LevelVeryHigh},
		{100, LevelVeryHigh},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Fatalf("LevelFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestScore_RuleRecommendationFloors(t *testing.T) {
	txn := &domain.Transaction{
		Type:   domain.TransactionTypeACH,
		Amount: decimal.NewFromInt(2500),
	}

	a := Score(txn, nil, domain.DecisionReject, true)
	if a.Score != 90 {
		t.Fatalf("reject floor: score = %v, want 90", a.Score)
	}
	if a.Level != LevelVeryHigh {
		t.Fatalf("reject floor: level = %q", a.Level)
	}

	a = Score(txn, nil, domain.DecisionEscalate, true)
	if a.Score != 70 {
		t.Fatalf("escalate floor: score = %v, want 70", a.Score)
	}
	if !a.RequiresEnhancedDD {
		t.Fatal("escalate recommendation must require EDD")
	}

	a = Score(txn, nil, "", false)
	if a.Score != 10 || a.RequiresEnhancedDD {
		t.Fatalf("no recommendation: got %+v", a)
	}
}

func TestAssessment_CriticalFailures(t *testing.T) {
	a := Assessment{ComplianceChecks: map[string]bool{
		"ofac_check":      false,
		"sanctions_check": true,
		"kyc_verified":    false,
	}}

	failed := a.CriticalFailures()
	if len(failed) != 1 || failed[0] != "ofac_check" {
		t.Fatalf("CriticalFailures = %v, want [ofac_check]", failed)
	}

	// kyc is non-critical: it must never appear.
	a.ComplianceChecks["ofac_check"] = true
	if got := a.CriticalFailures(); len(got) != 0 {
		t.Fatalf("expected no critical failures, got %v", got)
	}
}

func TestCheckPatterns(t *testing.T) {
	if got := CheckPatterns(6, 0); len(got) != 1 || got[0] != "high_velocity" {
		t.Fatalf("CheckPatterns(6,0) = %v", got)
	}
	if got := CheckPatterns(0, 4); len(got) != 1 || got[0] != "potential_splitting" {
		t.Fatalf("CheckPatterns(0,4) = %v", got)
	}
	if got := CheckPatterns(1, 1); len(got) != 0 {
		t.Fatalf("CheckPatterns(1,1) = %v", got)
	}
}
