package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/avlor/fraudgate/internal/usecase"
)

// Reaper periodically releases holds whose TTL lapsed without the
// workflow consuming or releasing them, the backstop for a workflow
// that died before its compensation ran.
type Reaper struct {
	ledger    *usecase.LedgerUseCase
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

func NewReaper(ledger *usecase.LedgerUseCase, interval time.Duration, batchSize int, log zerolog.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reaper{
		ledger:    ledger,
		interval:  interval,
		batchSize: batchSize,
		log:       log.With().Str("component", "hold_reaper").Logger(),
	}
}

// Run loops until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("hold reaper started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("hold reaper stopped")
			return
		case <-ticker.C:
			released, err := r.ledger.ReapExpiredHolds(ctx, r.batchSize)
			if err != nil {
				r.log.Error().Err(err).Msg("expired hold sweep failed")
				continue
			}
			if released > 0 {
				r.log.Info().Int("released", released).Msg("expired holds released")
			}
		}
	}
}
