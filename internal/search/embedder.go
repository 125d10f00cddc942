// Package search finds historical transactions similar to a new one by
// blending vector similarity with structural features.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avlor/fraudgate/internal/domain"
)

// Dimensions is the fixed embedding width. Every stored and generated
// vector must match it; mixed widths make cosine meaningless.
const Dimensions = 1024

// Embedder turns text into a fixed-width vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HTTPEmbedder calls an embedding endpoint.
type HTTPEmbedder struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPEmbedder(endpoint, apiKey, model string, timeout time.Duration) *HTTPEmbedder {
	return &HTTPEmbedder{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Texts: []string{text}, InputType: "document"})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request: status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedding response: %w", err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, fmt.Errorf("embedding response: no embeddings")
	}
	vec := parsed.Embeddings[0]
	if len(vec) != Dimensions {
		return nil, fmt.Errorf("embedding response: got %d dimensions, want %d", len(vec), Dimensions)
	}
	return vec, nil
}

// FallbackEmbedder degrades to a deterministic vector when the primary
// fails, so similarity search slows the workflow down instead of
// blocking it. The same text always yields the same vector.
type FallbackEmbedder struct {
	primary Embedder
	log     zerolog.Logger
}

func NewFallbackEmbedder(primary Embedder, log zerolog.Logger) *FallbackEmbedder {
	return &FallbackEmbedder{primary: primary, log: log}
}

func (f *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.primary != nil {
		vec, err := f.primary.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		f.log.Warn().Err(err).Msg("embedding provider failed, using deterministic fallback")
	}
	return DeterministicVector(text), nil
}

// DeterministicVector hashes the text into a seed and expands it to a
// unit vector. Not semantically meaningful, but stable across calls and
// processes, which is what the degraded path needs.
func DeterministicVector(text string) []float64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float64, Dimensions)
	var norm float64
	for i := range vec {
		vec[i] = rng.Float64()*2 - 1
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// PrepareText renders a transaction into the text form used for
// embedding generation.
func PrepareText(txn *domain.Transaction, velocity1h int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction Type: %s\n", txn.Type)
	fmt.Fprintf(&b, "Amount: %s %s\n", txn.Amount.StringFixed(2), txn.Currency)
	fmt.Fprintf(&b, "Time Pattern: %s\n", classifyTimePattern(txn.CreatedAt))
	fmt.Fprintf(&b, "Geographic Risk: %s to %s\n", txn.Sender.Country, txn.Recipient.Country)
	fmt.Fprintf(&b, "Business Context: %s", txn.Reference)

	if len(txn.RiskFlags) > 0 {
		fmt.Fprintf(&b, "\nRisk Flags: %s", strings.Join(txn.RiskFlags, ", "))
	}
	if velocity1h > 0 {
		fmt.Fprintf(&b, "\nVelocity Context: %d transactions in 1 hour", velocity1h)
	}
	return b.String()
}

func classifyTimePattern(ts time.Time) string {
	if ts.IsZero() {
		return "unknown"
	}
	hour := ts.Hour()
	weekday := ts.Weekday()

	switch {
	case weekday == time.Saturday || weekday == time.Sunday:
		return "weekend"
	case hour >= 9 && hour <= 17:
		return "business_hours"
	case hour < 6 || hour > 22:
		return "unusual_hours"
	default:
		return "off_hours"
	}
}
