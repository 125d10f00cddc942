package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avlor/fraudgate/internal/domain"
)

func TestParseResponse_FencedJSON(t *testing.T) {
	text := "Here is my analysis:\n```json\n" +
		`{"decision": "approve", "confidence": 92, "reasoning": "routine payroll", "risk_factors": ["none"]}` +
		"\n```\nLet me know if you need more detail."

	a := ParseResponse(text)
	require.NotNil(t, a)
	assert.Equal(t, domain.DecisionApprove, a.Decision)
	assert.Equal(t, 92.0, a.Confidence)
	assert.Equal(t, "routine payroll", a.Reasoning)
}

func TestParseResponse_RawJSON(t *testing.T) {
	a := ParseResponse(`{"decision": "REJECT", "confidence": "88%", "reasoning": "sanctioned counterparty"}`)
	assert.Equal(t, domain.DecisionReject, a.Decision)
	assert.Equal(t, 88.0, a.Confidence)
}

func TestParseResponse_LegacyFlagDecision(t *testing.T) {
	// "flag" is not in the taxonomy; it must resolve to escalate.
	a := ParseResponse(`{"decision": "flag", "confidence": 60, "reasoning": "unusual pattern"}`)
	assert.Equal(t, domain.DecisionEscalate, a.Decision)
}

func TestParseResponse_KeyValueLines(t *testing.T) {
	text := "DECISION: approve\nCONFIDENCE: 72%\nREASONING: matches customer profile\nRISK_FACTORS: new_recipient, unusual_time"

	a := ParseResponse(text)
	assert.Equal(t, domain.DecisionApprove, a.Decision)
	assert.Equal(t, 72.0, a.Confidence)
	assert.Equal(t, "matches customer profile", a.Reasoning)
	assert.Equal(t, []string{"new_recipient", "unusual_time"}, a.RiskFactors)
}

func TestParseResponse_KeywordSniffing(t *testing.T) {
	a := ParseResponse("This transaction looks highly suspicious and consistent with known fraud typologies.")
	assert.Equal(t, domain.DecisionReject, a.Decision)
	assert.GreaterOrEqual(t, a.Confidence, 70.0)

	a = ParseResponse("This appears to be a legitimate recurring vendor payment, low risk.")
	assert.Equal(t, domain.DecisionApprove, a.Decision)
	assert.GreaterOrEqual(t, a.Confidence, 80.0)
}

func TestParseResponse_UnparseableDefaultsToEscalate(t *testing.T) {
	text := "I cannot make a determination from the information given."

	a := ParseResponse(text)
	assert.Equal(t, domain.DecisionEscalate, a.Decision)
	assert.Equal(t, 50.0, a.Confidence)
	// Raw text is preserved for audit.
	assert.Equal(t, text, a.Reasoning)
}

func TestParseResponse_ConfidenceClamped(t *testing.T) {
	a := ParseResponse(`{"decision": "approve", "confidence": 250}`)
	assert.Equal(t, 100.0, a.Confidence)

	a = ParseResponse("DECISION: reject\nCONFIDENCE: -10")
	assert.Equal(t, 0.0, a.Confidence)
}

func TestParseResponse_MalformedFencedFallsThrough(t *testing.T) {
	// Broken JSON inside the fence; the KEY: lines after it still win.
	text := "```json\n{\"decision\": approve,}\n```\nDECISION: reject\nCONFIDENCE: 81"

	a := ParseResponse(text)
	assert.Equal(t, domain.DecisionReject, a.Decision)
	assert.Equal(t, 81.0, a.Confidence)
}
