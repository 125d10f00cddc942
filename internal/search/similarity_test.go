package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avlor/fraudgate/internal/domain"
)

type fakeStore struct {
	candidates []Candidate
	err        error
}

func (f *fakeStore) Candidates(_ context.Context, _ domain.TransactionType, _, _ decimal.Decimal, _, _ string, _ int) ([]Candidate, error) {
	return f.candidates, f.err
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("provider down")
}

func wireTxn(amount int64) *domain.Transaction {
	return &domain.Transaction{
		ID:        "txn-new",
		Type:      domain.TransactionTypeWire,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "USD",
		Sender:    domain.Party{Country: "US"},
		Recipient: domain.Party{Country: "GB"},
		CreatedAt: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	}
}

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("same text")
	b := DeterministicVector("same text")
	c := DeterministicVector("different text")

	require.Len(t, a, Dimensions)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Unit norm, so cosine against itself is 1.
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
	assert.Less(t, Cosine(a, c), 0.99)
}

func TestFallbackEmbedder_DegradesToDeterministic(t *testing.T) {
	f := NewFallbackEmbedder(failingEmbedder{}, zerolog.Nop())

	vec, err := f.Embed(context.Background(), "wire 5000 USD")
	require.NoError(t, err)
	assert.Equal(t, DeterministicVector("wire 5000 USD"), vec)
}

func TestCosine_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float64{1, 0}, []float64{1}))
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 1}))
}

func TestFindSimilar_RanksAndFilters(t *testing.T) {
	txn := wireTxn(10000)
	vec := DeterministicVector(PrepareText(txn, 0))

	store := &fakeStore{candidates: []Candidate{
		// Identical structure and embedding: best match.
		{TransactionID: "txn-a", Type: domain.TransactionTypeWire,
			Amount: decimal.NewFromInt(10000), SenderCountry: "US", RecipientCountry: "GB", Embedding: vec},
		// Different type, far amount, different corridor: below threshold.
		{TransactionID: "txn-b", Type: domain.TransactionTypeACH,
			Amount: decimal.NewFromInt(500), SenderCountry: "DE", RecipientCountry: "FR",
			Embedding: DeterministicVector("something else entirely")},
		// Same corridor and type, close amount: mid score.
		{TransactionID: "txn-c", Type: domain.TransactionTypeWire,
			Amount: decimal.NewFromInt(11000), SenderCountry: "US", RecipientCountry: "GB",
			Embedding:     DeterministicVector("another wire"),
			PriorDecision: domain.DecisionApprove},
		// The transaction itself must never match.
		{TransactionID: "txn-new", Type: domain.TransactionTypeWire,
			Amount: decimal.NewFromInt(10000), SenderCountry: "US", RecipientCountry: "GB", Embedding: vec},
	}}

	s := NewSearcher(store, NewFallbackEmbedder(nil, zerolog.Nop()), 0.5, 5)
	cases, gotVec, err := s.FindSimilar(context.Background(), txn, 0)
	require.NoError(t, err)
	assert.Equal(t, vec, gotVec)

	require.Len(t, cases, 2)
	assert.Equal(t, "txn-a", cases[0].TransactionID)
	assert.Equal(t, "txn-c", cases[1].TransactionID)
	assert.Greater(t, cases[0].Score, cases[1].Score)
	assert.Equal(t, domain.DecisionApprove, cases[1].PriorDecision)
}

func TestFindSimilar_LimitApplied(t *testing.T) {
	txn := wireTxn(10000)
	vec := DeterministicVector(PrepareText(txn, 0))

	var cands []Candidate
	for _, id := range []string{"a", "b", "c", "d"} {
		cands = append(cands, Candidate{
			TransactionID: id, Type: domain.TransactionTypeWire,
			Amount: decimal.NewFromInt(10000), SenderCountry: "US", RecipientCountry: "GB",
			Embedding: vec,
		})
	}

	s := NewSearcher(&fakeStore{candidates: cands}, NewFallbackEmbedder(nil, zerolog.Nop()), 0.5, 2)
	cases, _, err := s.FindSimilar(context.Background(), txn, 0)
	require.NoError(t, err)
	assert.Len(t, cases, 2)
}

func TestFindSimilar_StoreError(t *testing.T) {
	s := NewSearcher(&fakeStore{err: errors.New("index offline")},
		NewFallbackEmbedder(nil, zerolog.Nop()), 0.5, 5)

	_, vec, err := s.FindSimilar(context.Background(), wireTxn(10000), 0)
	require.Error(t, err)
	// Vector still comes back so the caller can checkpoint it.
	assert.Len(t, vec, Dimensions)
}

func TestPrepareText(t *testing.T) {
	txn := wireTxn(10000)
	txn.RiskFlags = []string{"high_risk_country"}

	text := PrepareText(txn, 3)
	assert.Contains(t, text, "Transaction Type: wire")
	assert.Contains(t, text, "Amount: 10000.00 USD")
	assert.Contains(t, text, "Time Pattern: business_hours")
	assert.Contains(t, text, "Geographic Risk: US to GB")
	assert.Contains(t, text, "Risk Flags: high_risk_country")
	assert.Contains(t, text, "Velocity Context: 3 transactions in 1 hour")
}
