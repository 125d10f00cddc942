package usecase_test

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
	"github.com/avlor/fraudgate/internal/usecase"
	"github.com/avlor/fraudgate/internal/usecase/mocks"
)

func seedEntry(t *testing.T, journal *mocks.MockJournalRepository, txnID, from, to string, amount int64, age time.Duration) {
	t.Helper()
	err := journal.Create(context.Background(), nil, &domain.JournalEntry{
		TransactionID: txnID,
		DebitAccount:  from,
		DebitAmount:   decimal.NewFromInt(amount),
		CreditAccount: to,
		CreditAmount:  decimal.NewFromInt(amount),
		Committed:     true,
		CreatedAt:     time.Now().UTC().Add(-age),
	})
	require.NoError(t, err)
}

func TestGetVelocity_Windows(t *testing.T) {
	journal := mocks.NewMockJournalRepository()
	seedEntry(t, journal, "t1", "acc-1", "acc-2", 1000, 10*time.Minute)
	seedEntry(t, journal, "t2", "acc-1", "acc-3", 2000, 30*time.Minute)
	seedEntry(t, journal, "t3", "acc-1", "acc-4", 5000, 6*time.Hour)
	seedEntry(t, journal, "t4", "acc-1", "acc-5", 9000, 48*time.Hour) // outside both
	seedEntry(t, journal, "t5", "acc-9", "acc-1", 100, time.Minute)   // credit, not a debit

	uc := usecase.NewHistoryUseCase(journal, nil, zerolog.Nop())
	v := uc.GetVelocity(context.Background(), "acc-1")

	assert.False(t, v.Unavailable)
	assert.Equal(t, 2, v.OneHour.Count)
	assert.True(t, v.OneHour.TotalAmount.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, 3, v.TwentyFour.Count)
	assert.True(t, v.TwentyFour.TotalAmount.Equal(decimal.NewFromInt(8000)))

	require.NotNil(t, v.OneHour.TimeSinceLast)
	assert.InDelta(t, (10 * time.Minute).Seconds(), v.OneHour.TimeSinceLast.Seconds(), 60)
}

func TestGetVelocity_DegradesOnReadFailure(t *testing.T) {
	journal := mocks.NewMockJournalRepository()
	journal.WindowStatsFunc = func(context.Context, string, time.Time) (int, decimal.Decimal, *time.Time, error) {
		return 0, decimal.Zero, nil, errors.New("replica lagging")
	}

	uc := usecase.NewHistoryUseCase(journal, nil, zerolog.Nop())
	v := uc.GetVelocity(context.Background(), "acc-1")

	// Zero counts are a missing signal, not proof of absence.
	assert.True(t, v.Unavailable)
	assert.Equal(t, 0, v.OneHour.Count)
	assert.Equal(t, 0, v.TwentyFour.Count)
}

func TestGetVelocity_CachesResult(t *testing.T) {
	journal := mocks.NewMockJournalRepository()
	seedEntry(t, journal, "t1", "acc-1", "acc-2", 1000, 10*time.Minute)

	cache := mocks.NewMockCache()
	uc := usecase.NewHistoryUseCase(journal, cache, zerolog.Nop())

	first := uc.GetVelocity(context.Background(), "acc-1")
	require.Equal(t, 1, first.OneHour.Count)

	// New activity is invisible until the cache entry ages out.
	seedEntry(t, journal, "t2", "acc-1", "acc-3", 2000, time.Minute)
	second := uc.GetVelocity(context.Background(), "acc-1")
	assert.Equal(t, 1, second.OneHour.Count)
}

func TestCountSimilarAmounts(t *testing.T) {
	journal := mocks.NewMockJournalRepository()
	seedEntry(t, journal, "t1", "acc-1", "acc-2", 4950, time.Hour)
	seedEntry(t, journal, "t2", "acc-1", "acc-3", 4980, 2*time.Hour)
	seedEntry(t, journal, "t3", "acc-1", "acc-4", 9000, time.Hour)

	uc := usecase.NewHistoryUseCase(journal, nil, zerolog.Nop())
	n, err := uc.CountSimilarAmounts(context.Background(), "acc-1", decimal.NewFromInt(4950))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGetCustomerHistory(t *testing.T) {
	journal := mocks.NewMockJournalRepository()
	seedEntry(t, journal, "t1", "acc-1", "acc-2", 1000, 24*time.Hour)
	seedEntry(t, journal, "t2", "acc-1", "acc-2", 3000, 48*time.Hour)
	seedEntry(t, journal, "t3", "acc-1", "acc-7", 2000, 72*time.Hour)

	uc := usecase.NewHistoryUseCase(journal, nil, zerolog.Nop())
	h := uc.GetCustomerHistory(context.Background(), "acc-1")

	assert.Equal(t, 3, h.TotalTxns90d)
	assert.True(t, h.AverageAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, h.KnowsRecipient("acc-2"))
	assert.False(t, h.KnowsRecipient("acc-99"))
}

func TestGetCustomerHistory_EmptyProfileOnFailure(t *testing.T) {
	journal := mocks.NewMockJournalRepository()
	journal.WindowStatsFunc = func(context.Context, string, time.Time) (int, decimal.Decimal, *time.Time, error) {
		return 0, decimal.Zero, nil, errors.New("timeout")
	}

	uc := usecase.NewHistoryUseCase(journal, nil, zerolog.Nop())
	h := uc.GetCustomerHistory(context.Background(), "acc-1")

	require.NotNil(t, h)
	assert.Equal(t, 0, h.TotalTxns90d)
}
