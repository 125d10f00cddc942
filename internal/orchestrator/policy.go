// Package orchestrator is the durable workflow engine. Each transaction
// gets one workflow instance whose state is checkpointed after every
// stage, so a crash between any two stages resumes from the last
// recorded stage without re-running committed side effects.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/avlor/fraudgate/internal/domain"
)

// stepPolicy bounds one activity: how many attempts, how long each may
// run, and which failures are business outcomes rather than faults.
type stepPolicy struct {
	maxAttempts  uint64
	timeout      time.Duration
	initialWait  time.Duration
	nonRetryable func(error) bool
}

var businessFailure = domain.BusinessRejection

var (
	policyPlaceHold = stepPolicy{
		maxAttempts:  3,
		timeout:      60 * time.Second,
		initialWait:  time.Second,
		nonRetryable: businessFailure,
	}
	policyEnrich = stepPolicy{
		maxAttempts: 3,
		timeout:     120 * time.Second,
		initialWait: time.Second,
	}
	policyRiskAssess = stepPolicy{
		maxAttempts: 3,
		timeout:     120 * time.Second,
		initialWait: time.Second,
	}
	policySimilarSearch = stepPolicy{
		maxAttempts: 2,
		timeout:     30 * time.Second,
		initialWait: time.Second,
	}
	policyNetworkAnalysis = stepPolicy{
		maxAttempts: 2,
		timeout:     120 * time.Second,
		initialWait: time.Second,
	}
	policyDecide = stepPolicy{
		maxAttempts: 3,
		timeout:     120 * time.Second,
		initialWait: 2 * time.Second,
	}
	// Critical writes get more attempts.
	policyStoreDecision = stepPolicy{
		maxAttempts: 5,
		timeout:     60 * time.Second,
		initialWait: time.Second,
	}
	policyQueueReview = stepPolicy{
		maxAttempts: 5,
		timeout:     60 * time.Second,
		initialWait: time.Second,
	}
	policyTransfer = stepPolicy{
		maxAttempts:  3,
		timeout:      120 * time.Second,
		initialWait:  time.Second,
		nonRetryable: businessFailure,
	}
	policyUpdateStatus = stepPolicy{
		maxAttempts: 5,
		timeout:     30 * time.Second,
		initialWait: time.Second,
	}
	// Compensation path: short, best-effort.
	policyReleaseHold = stepPolicy{
		maxAttempts: 3,
		timeout:     30 * time.Second,
		initialWait: 500 * time.Millisecond,
	}
)

// runStep executes fn under the policy's timeout and bounded
// exponential backoff, calling notify before each retry wait. A
// non-retryable error aborts immediately and is returned as-is for the
// caller to classify.
func runStep(ctx context.Context, p stepPolicy, notify backoff.Notify, fn func(ctx context.Context) error) error {
	operation := func() error {
		stepCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		err := fn(stepCtx)
		if err == nil {
			return nil
		}
		if p.nonRetryable != nil && p.nonRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialWait
	bo.MaxElapsedTime = 0

	err := backoff.RetryNotify(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, p.maxAttempts-1), ctx), notify)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
