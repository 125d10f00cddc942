package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
)

// Candidate is a historical transaction pulled by the structural
// pre-filter, with its stored embedding and prior decision when known.
type Candidate struct {
	TransactionID    string
	Type             domain.TransactionType
	Amount           decimal.Decimal
	SenderCountry    string
	RecipientCountry string
	Embedding        []float64
	PriorDecision    domain.DecisionType
}

// CandidateStore narrows history to plausible matches before scoring.
// Amount band and country pair mirror the pre-filter the scoring
// weights assume.
type CandidateStore interface {
	Candidates(ctx context.Context, txnType domain.TransactionType, amountMin, amountMax decimal.Decimal, senderCountry, recipientCountry string, limit int) ([]Candidate, error)
}

// Weights of the blended score. Vector similarity dominates; the
// structural features keep the degraded (mock-vector) path useful.
const (
	weightVector = 0.4
	weightAmount = 0.3
	weightGeo    = 0.15
	weightType   = 0.15
)

// Searcher ranks candidates by blended similarity.
type Searcher struct {
	store     CandidateStore
	embedder  Embedder
	threshold float64
	limit     int
}

func NewSearcher(store CandidateStore, embedder Embedder, threshold float64, limit int) *Searcher {
	return &Searcher{store: store, embedder: embedder, threshold: threshold, limit: limit}
}

// FindSimilar returns up to limit cases scoring at or above the
// threshold, best first. A store failure is an error; an embedding
// failure is not, because the embedder degrades internally.
func (s *Searcher) FindSimilar(ctx context.Context, txn *domain.Transaction, velocity1h int) ([]domain.SimilarCase, []float64, error) {
	vec, err := s.embedder.Embed(ctx, PrepareText(txn, velocity1h))
	if err != nil {
		return nil, nil, fmt.Errorf("embed transaction: %w", err)
	}

	// 20% amount band either side, matching the candidate index.
	amountMin := txn.Amount.Mul(decimal.NewFromFloat(0.8))
	amountMax := txn.Amount.Mul(decimal.NewFromFloat(1.2))

	candidates, err := s.store.Candidates(ctx, txn.Type, amountMin, amountMax,
		txn.Sender.Country, txn.Recipient.Country, s.limit*5)
	if err != nil {
		return nil, vec, fmt.Errorf("query candidates: %w", err)
	}

	scored := make([]domain.SimilarCase, 0, len(candidates))
	for _, c := range candidates {
		if c.TransactionID == txn.ID {
			continue
		}
		score := blendScore(txn, vec, c)
		if score < s.threshold {
			continue
		}
		scored = append(scored, domain.SimilarCase{
			TransactionID: c.TransactionID,
			Score:         score,
			PriorDecision: c.PriorDecision,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > s.limit {
		scored = scored[:s.limit]
	}
	return scored, vec, nil
}

func blendScore(txn *domain.Transaction, vec []float64, c Candidate) float64 {
	vectorScore := Cosine(vec, c.Embedding)

	amountScore := 0.0
	if txn.Amount.IsPositive() {
		diff, _ := c.Amount.Sub(txn.Amount).Abs().Div(txn.Amount).Float64()
		amountScore = math.Max(0, 1-math.Min(1, diff))
	}

	geoScore := 0.5
	if c.SenderCountry == txn.Sender.Country && c.RecipientCountry == txn.Recipient.Country {
		geoScore = 1.0
	}

	typeScore := 0.3
	if c.Type == txn.Type {
		typeScore = 1.0
	}

	return weightVector*vectorScore +
		weightAmount*amountScore +
		weightGeo*geoScore +
		weightType*typeScore
}

// Cosine similarity, zero for mismatched or degenerate vectors.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
