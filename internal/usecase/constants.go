package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultHoldTTL is how long a hold reserves funds before the reaper
	// may release it
	DefaultHoldTTL = 24 * time.Hour

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// VelocityCacheTTL bounds staleness of cached velocity windows
	VelocityCacheTTL = 30 * time.Second
)
