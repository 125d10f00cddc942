// Package decision merges rule-engine output with AI analysis into the
// canonical decision taxonomy.
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avlor/fraudgate/internal/domain"
)

// Analysis is the structured result of one AI analysis call.
type Analysis struct {
	Decision        domain.DecisionType
	Confidence      float64
	Reasoning       string
	RiskFactors     []string
	ComplianceNotes string
}

// Analyzer is the external AI analysis activity. Implementations are
// treated as at-least-once idempotent; the orchestrator retries
// transient failures.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (*Analysis, error)
}

// HTTPAnalyzer calls a chat-completion style endpoint and parses
// whatever text comes back through the fallback chain.
type HTTPAnalyzer struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPAnalyzer(endpoint, apiKey, model string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are a financial fraud detection expert. Analyze transactions " +
	"for potential fraud, money laundering, or compliance violations. " +
	"Provide clear reasoning for your decisions."

func (a *HTTPAnalyzer) Analyze(ctx context.Context, prompt string) (*Analysis, error) {
	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("analysis response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("analysis response: no choices")
	}

	return ParseResponse(parsed.Choices[0].Message.Content), nil
}
