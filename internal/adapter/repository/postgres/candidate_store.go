package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/search"
)

// CandidateStore implements search.CandidateStore against the
// transaction history. The structural pre-filter (type, amount band,
// country pair) runs in SQL; the blended scoring runs in the searcher.
type CandidateStore struct {
	pool *pgxpool.Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *pgxpool.Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Candidates returns historical transactions matching the pre-filter,
// newest first, with the stored embedding and the latest decision when
// one exists. Country matching is a ranking signal, not a filter, so a
// first-time corridor still gets amount/type matches.
func (s *CandidateStore) Candidates(ctx context.Context, txnType domain.TransactionType, amountMin, amountMax decimal.Decimal, senderCountry, recipientCountry string, limit int) ([]search.Candidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.type, t.amount,
			COALESCE(t.sender->>'country', ''),
			COALESCE(t.recipient->>'country', ''),
			COALESCE(w.embedding, 'null'::jsonb),
			COALESCE(d.decision, '')
		FROM transactions t
		LEFT JOIN workflow_states w ON w.transaction_id = t.id
		LEFT JOIN LATERAL (
			SELECT decision
			FROM decisions
			WHERE transaction_id = t.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) d ON TRUE
		WHERE t.type = $1
		  AND t.amount BETWEEN $2 AND $3
		ORDER BY (t.sender->>'country' = $4 AND t.recipient->>'country' = $5) DESC,
			t.created_at DESC
		LIMIT $6`,
		string(txnType),
		decimalToNumeric(amountMin),
		decimalToNumeric(amountMax),
		senderCountry,
		recipientCountry,
		int32(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]search.Candidate, 0, limit)
	for rows.Next() {
		var (
			c         search.Candidate
			cType     string
			amount    pgtype.Numeric
			embedding []byte
			decision  string
		)
		err := rows.Scan(&c.TransactionID, &cType, &amount,
			&c.SenderCountry, &c.RecipientCountry, &embedding, &decision)
		if err != nil {
			return nil, err
		}
		c.Type = domain.TransactionType(cType)
		c.Amount = numericToDecimal(amount)
		unmarshalJSON(embedding, &c.Embedding)
		c.PriorDecision = domain.DecisionType(decision)
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
