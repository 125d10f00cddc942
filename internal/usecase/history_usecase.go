package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
)

// Velocity holds both trailing windows for one account.
type Velocity struct {
	OneHour     domain.VelocityWindow
	TwentyFour  domain.VelocityWindow
	Unavailable bool
}

// HistoryUseCase reads trailing activity for enrichment. Figures are
// best effort: a read failure degrades to zero counts with Unavailable
// set, because enrichment must never block the pipeline.
type HistoryUseCase struct {
	journalRepo JournalRepository
	cache       Cache
	log         zerolog.Logger
}

func NewHistoryUseCase(journalRepo JournalRepository, cache Cache, log zerolog.Logger) *HistoryUseCase {
	return &HistoryUseCase{journalRepo: journalRepo, cache: cache, log: log}
}

// GetVelocity returns the 1h and 24h windows for an account. The two
// windows are queried concurrently and the result is cached briefly.
func (uc *HistoryUseCase) GetVelocity(ctx context.Context, accountNumber string) Velocity {
	cacheKey := "velocity:" + accountNumber
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var v Velocity
			if json.Unmarshal(data, &v) == nil {
				return v
			}
		}
	}

	now := time.Now().UTC()

	var wg sync.WaitGroup
	var oneHour, twentyFour domain.VelocityWindow
	var errOne, errTwentyFour error

	wg.Add(2)
	go func() {
		defer wg.Done()
		oneHour, errOne = uc.window(ctx, accountNumber, now, time.Hour)
	}()
	go func() {
		defer wg.Done()
		twentyFour, errTwentyFour = uc.window(ctx, accountNumber, now, 24*time.Hour)
	}()
	wg.Wait()

	if errOne != nil || errTwentyFour != nil {
		uc.log.Warn().
			AnErr("window_1h", errOne).
			AnErr("window_24h", errTwentyFour).
			Str("account_number", accountNumber).
			Msg("velocity read degraded")
		return Velocity{
			OneHour:     domain.VelocityWindow{Window: time.Hour, TotalAmount: decimal.Zero},
			TwentyFour:  domain.VelocityWindow{Window: 24 * time.Hour, TotalAmount: decimal.Zero},
			Unavailable: true,
		}
	}

	v := Velocity{OneHour: oneHour, TwentyFour: twentyFour}
	if uc.cache != nil {
		if data, err := json.Marshal(v); err == nil {
			_ = uc.cache.Set(ctx, cacheKey, data, VelocityCacheTTL)
		}
	}
	return v
}

func (uc *HistoryUseCase) window(ctx context.Context, accountNumber string, now time.Time, span time.Duration) (domain.VelocityWindow, error) {
	count, total, lastAt, err := uc.journalRepo.WindowStats(ctx, accountNumber, now.Add(-span))
	if err != nil {
		return domain.VelocityWindow{}, fmt.Errorf("window stats %s: %w", span, err)
	}

	w := domain.VelocityWindow{Window: span, Count: count, TotalAmount: total}
	if lastAt != nil {
		since := now.Sub(*lastAt)
		w.TimeSinceLast = &since
	}
	return w, nil
}

// CountSimilarAmounts counts committed debits within 10% of amount over
// the trailing 24 hours, feeding structuring detection.
func (uc *HistoryUseCase) CountSimilarAmounts(ctx context.Context, accountNumber string, amount decimal.Decimal) (int, error) {
	band := amount.Mul(decimal.NewFromFloat(0.1))
	since := time.Now().UTC().Add(-24 * time.Hour)
	return uc.journalRepo.CountByAmountBand(ctx, accountNumber, amount.Sub(band), amount.Add(band), since)
}

// GetCustomerHistory builds the 90-day profile used by rules and the
// AI prompt. Missing history yields an empty profile, not an error.
func (uc *HistoryUseCase) GetCustomerHistory(ctx context.Context, accountNumber string) *domain.CustomerHistory {
	since := time.Now().UTC().Add(-90 * 24 * time.Hour)

	count, total, _, err := uc.journalRepo.WindowStats(ctx, accountNumber, since)
	if err != nil {
		uc.log.Warn().Err(err).Str("account_number", accountNumber).Msg("customer history unavailable")
		return &domain.CustomerHistory{CustomerID: accountNumber, AverageAmount: decimal.Zero}
	}

	avg := decimal.Zero
	if count > 0 {
		avg = total.Div(decimal.NewFromInt(int64(count)))
	}

	recipients, err := uc.journalRepo.Counterparties(ctx, accountNumber, since, 20)
	if err != nil {
		uc.log.Warn().Err(err).Str("account_number", accountNumber).Msg("counterparty read failed")
	}

	return &domain.CustomerHistory{
		CustomerID:       accountNumber,
		TotalTxns90d:     count,
		AverageAmount:    avg,
		CommonRecipients: recipients,
	}
}
