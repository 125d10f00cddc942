package decision

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/avlor/fraudgate/internal/domain"
)

type rawAnalysis struct {
	Decision        string          `json:"decision"`
	Confidence      json.RawMessage `json:"confidence"`
	Reasoning       string          `json:"reasoning"`
	RiskFactors     []string        `json:"risk_factors"`
	ComplianceNotes string          `json:"compliance_notes"`
}

// ParseResponse turns model output into an Analysis. The chain:
// fenced JSON block, then raw JSON, then KEY: value line scanning, then
// keyword sniffing. Nothing here ever returns approve as a fallback;
// the unparseable default is escalate at confidence 50 with the raw
// text preserved for audit.
func ParseResponse(text string) *Analysis {
	if a, ok := parseJSON(extractFencedJSON(text)); ok {
		return a
	}
	if a, ok := parseJSON(text); ok {
		return a
	}
	return parseLines(text)
}

func extractFencedJSON(text string) string {
	start := strings.Index(text, "```json")
	if start < 0 {
		return ""
	}
	rest := text[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

func parseJSON(text string) (*Analysis, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text), &raw); err != nil || raw.Decision == "" {
		return nil, false
	}

	return &Analysis{
		Decision:        domain.NormalizeDecision(strings.ToLower(strings.TrimSpace(raw.Decision))),
		Confidence:      parseConfidence(raw.Confidence),
		Reasoning:       raw.Reasoning,
		RiskFactors:     raw.RiskFactors,
		ComplianceNotes: raw.ComplianceNotes,
	}, true
}

// parseConfidence accepts both numeric and string forms ("72", "72%").
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 50
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return clampConfidence(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
		if err == nil {
			return clampConfidence(n)
		}
	}

	return 50
}

func parseLines(text string) *Analysis {
	a := &Analysis{
		Decision:   domain.DecisionEscalate,
		Confidence: 50,
		Reasoning:  text,
	}

	sawDecisionLine := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "DECISION:"):
			sawDecisionLine = true
			value := strings.ToLower(afterColon(line))
			switch {
			case strings.Contains(value, "approve"):
				a.Decision = domain.DecisionApprove
			case strings.Contains(value, "reject"):
				a.Decision = domain.DecisionReject
			default:
				a.Decision = domain.DecisionEscalate
			}
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			value := strings.TrimSuffix(afterColon(line), "%")
			if n, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				a.Confidence = clampConfidence(n)
			}
		case strings.HasPrefix(upper, "REASONING:"):
			a.Reasoning = afterColon(line)
		case strings.HasPrefix(upper, "RISK_FACTORS:"):
			for _, f := range strings.Split(afterColon(line), ",") {
				if f = strings.TrimSpace(f); f != "" {
					a.RiskFactors = append(a.RiskFactors, f)
				}
			}
		}
	}

	if !sawDecisionLine {
		sniffKeywords(text, a)
	}

	return a
}

// sniffKeywords is the last-resort heuristic over free text.
func sniffKeywords(text string, a *Analysis) {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "fraud", "suspicious", "high risk", "reject"):
		a.Decision = domain.DecisionReject
		if a.Confidence < 70 {
			a.Confidence = 70
		}
	case containsAny(lower, "low risk", "legitimate", "approve", "safe"):
		a.Decision = domain.DecisionApprove
		if a.Confidence < 80 {
			a.Confidence = 80
		}
	}
}

func afterColon(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func clampConfidence(n float64) float64 {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
