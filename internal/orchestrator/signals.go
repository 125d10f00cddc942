package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/avlor/fraudgate/internal/domain"
)

// mailbox routes signals to in-process waiting workflows. Delivery is
// durable-first: the signal row is committed before the channel fires,
// so a crash between receipt and resume can never lose a verdict — the
// resume loader re-reads the signal log instead of the channel.
type mailbox struct {
	mu    sync.Mutex
	waits map[string]chan *domain.ReviewSignal
}

func newMailbox() *mailbox {
	return &mailbox{waits: make(map[string]chan *domain.ReviewSignal)}
}

func (m *mailbox) register(workflowID string) chan *domain.ReviewSignal {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *domain.ReviewSignal, 1)
	m.waits[workflowID] = ch
	return ch
}

func (m *mailbox) unregister(workflowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.waits, workflowID)
}

// deliver fires the waiting channel if one exists. A false return means
// no workflow is currently blocked in this process; the durable row
// will be picked up on resume.
func (m *mailbox) deliver(workflowID string, signal *domain.ReviewSignal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.waits[workflowID]
	if !ok {
		return false
	}
	select {
	case ch <- signal:
		return true
	default:
		return false
	}
}

// SignalHumanReview records a reviewer's verdict and releases the
// waiting workflow. The decision is normalized into the canonical
// taxonomy before anything is written.
func (e *Engine) SignalHumanReview(ctx context.Context, workflowID string, decision, actor, reason string) error {
	return e.signal(ctx, workflowID, &domain.ReviewSignal{
		Kind:     domain.SignalHumanReview,
		Decision: domain.NormalizeDecision(decision),
		Actor:    actor,
		Reason:   reason,
	})
}

// SignalManagerApproval records a manager's approve/deny for an
// above-ceiling amount.
func (e *Engine) SignalManagerApproval(ctx context.Context, workflowID string, approved bool, actor, reason string) error {
	decision := domain.DecisionReject
	if approved {
		decision = domain.DecisionApprove
	}
	return e.signal(ctx, workflowID, &domain.ReviewSignal{
		Kind:     domain.SignalManagerApproval,
		Decision: decision,
		Actor:    actor,
		Reason:   reason,
	})
}

// SignalManualOverride records an out-of-band override. If the workflow
// is still waiting it is released; if it already completed, the
// override becomes an amendment decision row linked to the original.
func (e *Engine) SignalManualOverride(ctx context.Context, workflowID string, decision, actor, reason string) error {
	state, err := e.workflowRepo.Get(ctx, workflowID)
	if err != nil {
		return err
	}

	sig := &domain.ReviewSignal{
		Kind:     domain.SignalManualOverride,
		Decision: domain.NormalizeDecision(decision),
		Actor:    actor,
		Reason:   reason,
	}

	if !state.Stage.Terminal() {
		return e.signal(ctx, workflowID, sig)
	}

	// Completed workflow: append an amendment, never rewrite history.
	return e.amendDecision(ctx, state, sig)
}

func (e *Engine) signal(ctx context.Context, workflowID string, sig *domain.ReviewSignal) error {
	state, err := e.workflowRepo.Get(ctx, workflowID)
	if err != nil {
		return err
	}

	sig.ID = e.idGen.Generate()
	sig.WorkflowID = workflowID
	sig.TransactionID = state.TransactionID
	sig.CreatedAt = time.Now().UTC()

	tx, err := e.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := e.reviewRepo.RecordSignal(ctx, tx, sig); err != nil {
		return err
	}

	// A reviewer verdict closes the pending review in the same
	// transaction as the signal row.
	resolvedReview := false
	if state.ReviewID != "" && sig.Kind != domain.SignalManagerApproval {
		review, err := e.reviewRepo.GetByID(ctx, state.ReviewID)
		if err == nil && review.Status == domain.ReviewStatusPending {
			if err := e.reviewRepo.Resolve(ctx, tx, review.ID, sig.Actor, sig.CreatedAt); err != nil {
				return err
			}
			event := &domain.OutboxEvent{
				ID:            e.idGen.Generate(),
				AggregateID:   review.ID,
				AggregateType: domain.AggregateTypeReview,
				EventType:     domain.EventTypeReviewResolved,
				Payload: map[string]any{
					"review_id":      review.ID,
					"transaction_id": review.TransactionID,
					"decision":       string(sig.Decision),
					"resolved_by":    sig.Actor,
				},
				CreatedAt: sig.CreatedAt,
			}
			if err := e.outboxRepo.Create(ctx, tx, event); err != nil {
				return err
			}
			resolvedReview = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.SignalsReceived.WithLabelValues(string(sig.Kind)).Inc()
		if resolvedReview {
			e.metrics.ReviewsResolved.Inc()
		}
	}

	delivered := e.mailbox.deliver(workflowID, sig)
	e.log.Info().
		Str("workflow_id", workflowID).
		Str("kind", string(sig.Kind)).
		Str("decision", string(sig.Decision)).
		Bool("delivered_in_process", delivered).
		Msg("signal recorded")
	return nil
}

// awaitSignal blocks until a signal of the wanted kind arrives or the
// timeout lapses. The durable signal log is consulted first so a
// resumed workflow sees verdicts delivered while it was down. Signals
// older than anchor belong to a previous wait and are skipped, which
// matters when a manager timeout re-escalates the same workflow.
//
// A context error is a process shutdown, not a verdict: the caller must
// leave the checkpoint untouched so the wait resumes on restart.
func (e *Engine) awaitSignal(ctx context.Context, state *domain.WorkflowExecutionState, kind domain.SignalKind, anchor time.Time, timeout time.Duration) (*domain.ReviewSignal, bool, error) {
	if sig := e.recordedSignal(ctx, state.ID, kind, anchor); sig != nil {
		return sig, true, nil
	}

	ch := e.mailbox.register(state.ID)
	defer e.mailbox.unregister(state.ID)

	// Second look after registering: closes the window where a signal
	// lands between the read above and the register.
	if sig := e.recordedSignal(ctx, state.ID, kind, anchor); sig != nil {
		return sig, true, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case sig := <-ch:
			if sig.Kind == kind || sig.Kind == domain.SignalManualOverride {
				return sig, true, nil
			}
			// Wrong kind: keep waiting.
		case <-timer.C:
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

func (e *Engine) recordedSignal(ctx context.Context, workflowID string, kind domain.SignalKind, anchor time.Time) *domain.ReviewSignal {
	signals, err := e.reviewRepo.SignalsForWorkflow(ctx, workflowID)
	if err != nil {
		e.log.Warn().Err(err).Str("workflow_id", workflowID).Msg("signal log read failed")
		return nil
	}
	for _, s := range signals {
		if s.CreatedAt.Before(anchor) {
			continue
		}
		if s.Kind == kind || s.Kind == domain.SignalManualOverride {
			return s
		}
	}
	return nil
}
