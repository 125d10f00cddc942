package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/risk"
	"github.com/avlor/fraudgate/internal/rules"
)

// Engine normalizes rule output and AI analysis into one Decision.
type Engine struct {
	analyzer            Analyzer
	modelVersion        string
	confidenceThreshold float64
	log                 zerolog.Logger
}

// NewEngine wires the engine. confidenceThreshold is the bar below
// which a rule recommendation overrides the AI decision.
func NewEngine(analyzer Analyzer, modelVersion string, confidenceThreshold float64, log zerolog.Logger) *Engine {
	return &Engine{
		analyzer:            analyzer,
		modelVersion:        modelVersion,
		confidenceThreshold: confidenceThreshold,
		log:                 log,
	}
}

// Input carries everything the engine needs for one transaction.
type Input struct {
	Transaction *domain.Transaction
	Assessment  risk.Assessment
	Similar     []domain.SimilarCase
	RuleResult  rules.Result
	History     *domain.CustomerHistory
}

// Decide produces the decision draft. Order is load-bearing:
//
//  1. Critical compliance failure rejects at confidence 100 without
//     ever invoking the analyzer.
//  2. A rule-engine reject bypasses the analyzer at confidence 95.
//  3. Otherwise the analyzer runs; a failed or unparseable call
//     escalates at confidence 50, never approves.
//  4. Below the confidence threshold, the rule recommendation
//     overrides the AI decision.
func (e *Engine) Decide(ctx context.Context, in Input) *domain.Decision {
	started := time.Now()
	txn := in.Transaction

	if failed := in.Assessment.CriticalFailures(); len(failed) > 0 {
		e.log.Error().Str("transaction_id", txn.ID).Strs("checks", failed).
			Msg("critical compliance checks failed")
		return e.draft(in, started, &Analysis{
			Decision:        domain.DecisionReject,
			Confidence:      100,
			Reasoning:       fmt.Sprintf("Transaction rejected due to compliance violation: %s", strings.Join(failed, ", ")),
			RiskFactors:     append([]string{"compliance_violation", "sanctions_risk"}, in.Assessment.Factors...),
			ComplianceNotes: fmt.Sprintf("Failed compliance checks: %s. Transaction blocked for regulatory compliance.", strings.Join(failed, ", ")),
		})
	}

	if in.RuleResult.HasRecommendation && in.RuleResult.RecommendedAction == domain.DecisionReject {
		return e.draft(in, started, &Analysis{
			Decision:        domain.DecisionReject,
			Confidence:      95,
			Reasoning:       fmt.Sprintf("Transaction rejected by rules: %s", strings.Join(in.RuleResult.TriggeredRules, ", ")),
			RiskFactors:     in.Assessment.Factors,
			ComplianceNotes: "Automatic rejection based on rule engine",
		})
	}

	prompt := BuildPrompt(txn, in.Similar, in.History, in.RuleResult.TriggeredRules, string(in.RuleResult.RecommendedAction))

	analysis, err := e.analyzer.Analyze(ctx, prompt)
	if err != nil {
		e.log.Error().Err(err).Str("transaction_id", txn.ID).Msg("ai analysis failed")
		return e.draft(in, started, &Analysis{
			Decision:        domain.DecisionEscalate,
			Confidence:      50,
			Reasoning:       fmt.Sprintf("Unable to complete AI analysis: %v", err),
			RiskFactors:     []string{"system_error"},
			ComplianceNotes: "Manual review required due to system error",
		})
	}

	analysis.Decision = domain.NormalizeDecision(string(analysis.Decision))

	if analysis.Confidence < e.confidenceThreshold && in.RuleResult.HasRecommendation {
		overridden := domain.NormalizeDecision(string(in.RuleResult.RecommendedAction))
		analysis.Reasoning += fmt.Sprintf(" | Overridden by rule engine: %s", overridden)
		analysis.Decision = overridden
	}

	return e.draft(in, started, analysis)
}

func (e *Engine) draft(in Input, started time.Time, a *Analysis) *domain.Decision {
	similar := in.Similar
	if len(similar) > 3 {
		similar = similar[:3]
	}

	return &domain.Decision{
		TransactionID:    in.Transaction.ID,
		Decision:         a.Decision,
		Confidence:       a.Confidence,
		RiskScore:        in.Assessment.Score,
		RiskLevel:        string(in.Assessment.Level),
		Reasoning:        a.Reasoning,
		RiskFactors:      a.RiskFactors,
		RulesTriggered:   in.RuleResult.TriggeredRules,
		SimilarCases:     similar,
		ComplianceNotes:  a.ComplianceNotes,
		ModelVersion:     e.modelVersion,
		ProcessingTimeMS: time.Since(started).Milliseconds(),
	}
}
