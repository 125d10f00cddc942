package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/avlor/fraudgate/internal/orchestrator"
	"github.com/avlor/fraudgate/internal/usecase"
)

func TestReaper_ReleasesExpiredHolds(t *testing.T) {
	f := newEngineFixture(orchestrator.Config{})
	f.seedAccount("acc-sender", 10000)

	hold, err := f.ledger.PlaceHold(context.Background(), usecase.PlaceHoldInput{
		AccountNumber: "acc-sender",
		TransactionID: "txn-orphan",
		Amount:        decimal.NewFromInt(500),
		TTL:           time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reaper := orchestrator.NewReaper(f.ledger, 10*time.Millisecond, 50, zerolog.Nop())
	go reaper.Run(ctx)

	require.Eventually(t, func() bool {
		got, getErr := f.ledger.GetHold(context.Background(), hold.ID)
		return getErr == nil && got.Released
	}, 2*time.Second, 10*time.Millisecond)

	acc, err := f.ledger.GetAccount(context.Background(), "acc-sender")
	require.NoError(t, err)
	require.True(t, acc.AvailableBalance.Equal(decimal.NewFromInt(10000)))
}
