package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avlor/fraudgate/internal/decision"
	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/risk"
	"github.com/avlor/fraudgate/internal/rules"
	"github.com/avlor/fraudgate/internal/usecase"
)

// runContext carries the per-run working set. Everything that must
// survive a crash lives in state; the rest is recomputed from reads
// that are cheap and idempotent.
type runContext struct {
	state *domain.WorkflowExecutionState
	txn   *domain.Transaction

	enriched       bool
	velocity       usecase.Velocity
	custHistory    *domain.CustomerHistory
	similarAmounts int
}

// Run drives one workflow from its checkpointed stage to a terminal
// stage. Safe to call again after a crash: every stage either completed
// and was checkpointed, or re-runs against idempotent operations.
func (e *Engine) Run(ctx context.Context, workflowID string) error {
	state, err := e.workflowRepo.Get(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("load workflow %s: %w", workflowID, err)
	}
	if state.Stage.Terminal() {
		return nil
	}

	txn, err := e.txnRepo.GetByID(ctx, state.TransactionID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", state.TransactionID, err)
	}

	rc := &runContext{state: state, txn: txn}

	// Pollers see the pickup: pending flips to processing before the
	// first stage runs and stays until the terminal status lands. The
	// guard keeps a resumed workflow from regressing a later status.
	if txn.Status == domain.TransactionStatusPending {
		if err := e.markProcessing(ctx, rc); err != nil {
			return e.failWorkflow(ctx, rc, err)
		}
	}

	for !state.Stage.Terminal() {
		var stageErr error
		switch state.Stage {
		case domain.StageInitialized:
			stageErr = e.stagePlaceHold(ctx, rc)
		case domain.StageFundsValidated:
			stageErr = e.stageEnrich(ctx, rc)
		case domain.StageEnriched:
			stageErr = e.stageRiskAssess(ctx, rc)
		case domain.StageRiskAssessed:
			stageErr = e.stageSimilarSearch(ctx, rc)
		case domain.StageSimilarCasesFound:
			stageErr = e.stageNetworkAnalysis(ctx, rc)
		case domain.StageNetworkAnalyzed:
			stageErr = e.stageDecide(ctx, rc)
		case domain.StageDecided:
			stageErr = e.stageRoute(ctx, rc)
		case domain.StageEscalated:
			stageErr = e.stageAwaitReview(ctx, rc)
		case domain.StageAwaitingManager:
			stageErr = e.stageAwaitManager(ctx, rc)
		case domain.StageSettled:
			stageErr = e.stageStoreDecision(ctx, rc)
		case domain.StageDecisionStored:
			stageErr = e.stageUpdateStatus(ctx, rc)
		case domain.StageStatusUpdated:
			stageErr = e.stageNotify(ctx, rc)
		default:
			stageErr = fmt.Errorf("unknown workflow stage %q", state.Stage)
		}
		if stageErr != nil {
			// Shutdown is not failure: the checkpoint stands and the
			// workflow resumes where it left off.
			if ctx.Err() != nil {
				e.log.Warn().
					Str("workflow_id", state.ID).
					Str("stage", string(state.Stage)).
					Msg("workflow interrupted, will resume")
				return stageErr
			}
			return e.failWorkflow(ctx, rc, stageErr)
		}
	}

	if state.Stage == domain.StageCompleted && e.metrics != nil {
		e.metrics.WorkflowsCompleted.Inc()
		e.metrics.WorkflowDuration.Observe(time.Since(state.StartedAt).Seconds())
	}
	return nil
}

// markProcessing moves a picked-up transaction out of pending, with the
// status-changed event in the same database transaction.
func (e *Engine) markProcessing(ctx context.Context, rc *runContext) error {
	return e.step(ctx, rc, "mark_processing", policyUpdateStatus, func(ctx context.Context) error {
		now := time.Now().UTC()
		tx, err := e.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := e.txnRepo.UpdateStatus(ctx, tx, rc.txn.ID, domain.TransactionStatusProcessing, now); err != nil {
			return err
		}
		event := &domain.OutboxEvent{
			ID:            e.idGen.Generate(),
			AggregateID:   rc.txn.ID,
			AggregateType: domain.AggregateTypeTransaction,
			EventType:     domain.EventTypeStatusChanged,
			Payload: map[string]any{
				"transaction_id": rc.txn.ID,
				"old_status":     string(domain.TransactionStatusPending),
				"new_status":     string(domain.TransactionStatusProcessing),
			},
			CreatedAt: now,
		}
		if err := e.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		rc.txn.Status = domain.TransactionStatusProcessing
		return nil
	})
}

// step runs fn under the policy, counting retries against the stage.
func (e *Engine) step(ctx context.Context, rc *runContext, name string, p stepPolicy, fn func(context.Context) error) error {
	start := time.Now()
	err := runStep(ctx, p, func(attemptErr error, wait time.Duration) {
		rc.state.RetryCount++
		if e.metrics != nil {
			e.metrics.StageRetries.WithLabelValues(name).Inc()
		}
		e.log.Warn().Err(attemptErr).
			Str("workflow_id", rc.state.ID).
			Str("step", name).
			Dur("next_attempt_in", wait).
			Msg("step failed, retrying")
	}, fn)
	if e.metrics != nil {
		e.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	return err
}

// checkpoint persists the completed stage and appends it to the
// transaction's trail. The trail append is best effort; the workflow
// row is the source of truth.
func (e *Engine) checkpoint(ctx context.Context, rc *runContext, stageName string, next domain.Stage) error {
	rc.state.CompleteStage(stageName, next)
	rc.state.UpdatedAt = time.Now().UTC()
	if err := e.workflowRepo.Save(ctx, rc.state); err != nil {
		return fmt.Errorf("checkpoint %s: %w", stageName, err)
	}
	if err := e.txnRepo.AppendStageEvent(ctx, rc.txn.ID, domain.StageEvent{
		Stage:      stageName,
		OccurredAt: rc.state.UpdatedAt,
	}); err != nil {
		e.log.Warn().Err(err).Str("transaction_id", rc.txn.ID).Msg("stage trail append failed")
	}
	e.log.Info().
		Str("workflow_id", rc.state.ID).
		Str("stage", stageName).
		Str("next", string(next)).
		Msg("stage completed")
	return nil
}

// stagePlaceHold reserves the funds. Insufficient funds or a missing
// account is a business outcome: the transaction is rejected through
// the normal decision path, not failed.
func (e *Engine) stagePlaceHold(ctx context.Context, rc *runContext) error {
	var hold *domain.Hold
	err := e.step(ctx, rc, "place_hold", policyPlaceHold, func(ctx context.Context) error {
		var stepErr error
		hold, stepErr = e.ledger.PlaceHold(ctx, usecase.PlaceHoldInput{
			AccountNumber: rc.txn.Sender.AccountNumber,
			TransactionID: rc.txn.ID,
			Amount:        rc.txn.Amount,
			Reason:        "transaction screening",
			TTL:           e.cfg.HoldTTL,
		})
		return stepErr
	})
	if err != nil {
		if businessFailure(err) {
			rc.state.Draft = &domain.Decision{
				TransactionID: rc.txn.ID,
				Decision:      domain.DecisionReject,
				Confidence:    100,
				Reasoning:     fmt.Sprintf("Funds validation failed: %v", err),
				RiskFactors:   []string{"insufficient_funds"},
				DecidedBy:     "ledger",
			}
			return e.checkpoint(ctx, rc, "funds_validation_failed", domain.StageSettled)
		}
		return err
	}

	rc.state.HoldID = hold.ID
	return e.checkpoint(ctx, rc, "place_hold", domain.StageFundsValidated)
}

// ensureEnrichment loads velocity, similar-amount and customer history
// context. All reads degrade internally, so this never blocks the
// pipeline on history availability.
func (e *Engine) ensureEnrichment(ctx context.Context, rc *runContext) {
	if rc.enriched {
		return
	}
	sender := rc.txn.Sender.AccountNumber
	rc.velocity = e.history.GetVelocity(ctx, sender)
	rc.custHistory = e.history.GetCustomerHistory(ctx, sender)

	n, err := e.history.CountSimilarAmounts(ctx, sender, rc.txn.Amount)
	if err != nil {
		e.log.Warn().Err(err).Str("transaction_id", rc.txn.ID).Msg("similar amount count unavailable")
		n = 0
	}
	rc.similarAmounts = n
	rc.enriched = true
}

func (e *Engine) stageEnrich(ctx context.Context, rc *runContext) error {
	err := e.step(ctx, rc, "enrich", policyEnrich, func(ctx context.Context) error {
		e.ensureEnrichment(ctx, rc)
		return nil
	})
	if err != nil {
		return err
	}
	return e.checkpoint(ctx, rc, "enrich", domain.StageEnriched)
}

func unusualTime(t time.Time) bool {
	hour := t.UTC().Hour()
	return hour < 6 || hour >= 22
}

// complianceChecks derives the regulatory screen for a transaction.
// Sanctions, AML and KYC screens are delegated upstream and assumed
// passing here; the OFAC destination check is computed locally for
// wire and international transfers.
func complianceChecks(txn *domain.Transaction) map[string]bool {
	checks := map[string]bool{
		"sanctions_check": true,
		"aml_check":       true,
		"kyc_verified":    true,
		"ofac_check":      true,
	}
	switch txn.Type {
	case domain.TransactionTypeWire, domain.TransactionTypeInternational:
		checks["ofac_check"] = !rules.HighRiskCountry(txn.Recipient.Country)
	}
	return checks
}

func (e *Engine) stageRiskAssess(ctx context.Context, rc *runContext) error {
	err := e.step(ctx, rc, "risk_assessment", policyRiskAssess, func(ctx context.Context) error {
		e.ensureEnrichment(ctx, rc)
		txn := rc.txn

		extra := map[string]any{
			"velocity_1h":          rc.velocity.OneHour.Count,
			"velocity_24h":         rc.velocity.TwentyFour.Count,
			"total_amount_1h":      rc.velocity.OneHour.TotalAmount,
			"similar_amount_count": rc.similarAmounts,
			"unusual_time":         unusualTime(txn.CreatedAt),
		}
		res := e.rules.Apply(rules.NewSubject(txn, extra))

		flags := append([]string{}, res.RiskFlags...)
		if rules.HighRiskCountry(txn.Sender.Country) || rules.HighRiskCountry(txn.Recipient.Country) {
			flags = appendFlag(flags, "high_risk_country")
		}
		if unusualTime(txn.CreatedAt) {
			flags = appendFlag(flags, "unusual_time")
		}
		if rc.custHistory.TotalTxns90d > 0 && !rc.custHistory.KnowsRecipient(txn.Recipient.AccountNumber) {
			flags = appendFlag(flags, "new_recipient")
		}
		for _, p := range risk.CheckPatterns(rc.velocity.TwentyFour.Count, rc.similarAmounts) {
			flags = appendFlag(flags, p)
		}
		if rc.velocity.Unavailable {
			flags = appendFlag(flags, "velocity_data_unavailable")
		}

		assessment := risk.Score(txn, flags, res.RecommendedAction, res.HasRecommendation)

		rc.state.RiskScore = assessment.Score
		rc.state.RiskLevel = string(assessment.Level)
		rc.state.RiskFactors = assessment.Factors
		rc.state.RulesTriggered = res.TriggeredRules
		if res.HasRecommendation {
			rc.state.RuleAction = string(res.RecommendedAction)
		}

		if err := e.txnRepo.AddRiskFlags(ctx, txn.ID, flags); err != nil {
			e.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("risk flag persist failed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RiskScore.Observe(rc.state.RiskScore)
	}
	return e.checkpoint(ctx, rc, "risk_assessment", domain.StageRiskAssessed)
}

// stageSimilarSearch is advisory: a persistent failure degrades to an
// empty case list instead of failing the workflow. The embedding is
// checkpointed even when the candidate query fails, so a retry does not
// re-embed.
func (e *Engine) stageSimilarSearch(ctx context.Context, rc *runContext) error {
	err := e.step(ctx, rc, "similar_search", policySimilarSearch, func(ctx context.Context) error {
		e.ensureEnrichment(ctx, rc)
		cases, vec, searchErr := e.searcher.FindSimilar(ctx, rc.txn, rc.velocity.OneHour.Count)
		if vec != nil {
			rc.state.Embedding = vec
		}
		if searchErr != nil {
			return searchErr
		}
		rc.state.SimilarCases = cases
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("transaction_id", rc.txn.ID).Msg("similar case search degraded")
		rc.state.SimilarCases = nil
	}
	return e.checkpoint(ctx, rc, "similar_search", domain.StageSimilarCasesFound)
}

// stageNetworkAnalysis is advisory in the same way: missing graph data
// contributes nothing to the score.
func (e *Engine) stageNetworkAnalysis(ctx context.Context, rc *runContext) error {
	err := e.step(ctx, rc, "network_analysis", policyNetworkAnalysis, func(ctx context.Context) error {
		score, flags, netErr := e.analyzeNetwork(ctx, rc.txn)
		if netErr != nil {
			return netErr
		}
		rc.state.NetworkScore = score
		for _, f := range flags {
			rc.state.RiskFactors = appendFlag(rc.state.RiskFactors, f)
		}
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("transaction_id", rc.txn.ID).Msg("network analysis degraded")
		rc.state.NetworkScore = 0
	}
	return e.checkpoint(ctx, rc, "network_analysis", domain.StageNetworkAnalyzed)
}

func (e *Engine) stageDecide(ctx context.Context, rc *runContext) error {
	e.ensureEnrichment(ctx, rc)

	assessment := risk.Assessment{
		Score:               rc.state.RiskScore,
		Level:               risk.LevelFor(rc.state.RiskScore),
		Factors:             rc.state.RiskFactors,
		ComplianceChecks:    complianceChecks(rc.txn),
		NetworkScore:        rc.state.NetworkScore,
		VelocityUnavailable: rc.velocity.Unavailable,
	}
	ruleResult := rules.Result{
		TriggeredRules:    rc.state.RulesTriggered,
		RecommendedAction: domain.DecisionType(rc.state.RuleAction),
		HasRecommendation: rc.state.RuleAction != "",
		RuleCount:         len(rc.state.RulesTriggered),
	}

	err := e.step(ctx, rc, "decide", policyDecide, func(ctx context.Context) error {
		rc.state.Draft = e.decider.Decide(ctx, decision.Input{
			Transaction: rc.txn,
			Assessment:  assessment,
			Similar:     rc.state.SimilarCases,
			RuleResult:  ruleResult,
			History:     rc.custHistory,
		})
		rc.state.Draft.WorkflowID = rc.state.ID
		rc.state.Draft.DecidedBy = "decision_engine"
		return nil
	})
	if err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.DecisionConfidence.Observe(rc.state.Draft.Confidence)
	}
	return e.checkpoint(ctx, rc, "decide", domain.StageDecided)
}

// stageRoute branches on the draft decision. Approvals above the
// auto-approval ceiling park on a manager signal; escalations open a
// human review; rejections release the hold. StageSettled marks funds
// disposition complete, whether that was a committed transfer or a
// released hold.
func (e *Engine) stageRoute(ctx context.Context, rc *runContext) error {
	draft := rc.state.Draft
	if draft == nil {
		return errors.New("decided workflow has no decision draft")
	}

	switch draft.Decision {
	case domain.DecisionApprove:
		if rc.txn.Amount.GreaterThan(e.cfg.AutoApprovalCeiling) {
			draft.Reasoning += " | Amount exceeds auto-approval ceiling; manager approval required."
			return e.checkpoint(ctx, rc, "route_manager_approval", domain.StageAwaitingManager)
		}
		return e.settleAndAdvance(ctx, rc)
	case domain.DecisionReject:
		return e.releaseAndAdvance(ctx, rc)
	default:
		if err := e.openReview(ctx, rc); err != nil {
			return err
		}
		return e.checkpoint(ctx, rc, "queue_review", domain.StageEscalated)
	}
}

// settleAndAdvance commits the transfer. Insufficient funds at
// settlement time flips the outcome to reject rather than failing the
// workflow.
func (e *Engine) settleAndAdvance(ctx context.Context, rc *runContext) error {
	err := e.step(ctx, rc, "settle_transfer", policyTransfer, func(ctx context.Context) error {
		_, stepErr := e.ledger.Settle(ctx, usecase.SettleInput{
			TransactionID: rc.txn.ID,
			DebitAccount:  rc.txn.Sender.AccountNumber,
			CreditAccount: rc.txn.Recipient.AccountNumber,
			Amount:        rc.txn.Amount,
			Currency:      rc.txn.Currency,
			Description:   rc.txn.Reference,
			HoldID:        rc.state.HoldID,
		})
		return stepErr
	})
	if err != nil {
		if businessFailure(err) {
			rc.state.Draft.Decision = domain.DecisionReject
			rc.state.Draft.Reasoning += fmt.Sprintf(" | Settlement failed: %v", err)
			return e.releaseAndAdvance(ctx, rc)
		}
		return err
	}
	return e.checkpoint(ctx, rc, "settle_transfer", domain.StageSettled)
}

// releaseAndAdvance returns the held funds. Release is compensation,
// best effort: a failed release is logged and left to the hold reaper.
func (e *Engine) releaseAndAdvance(ctx context.Context, rc *runContext) error {
	if rc.state.HoldID != "" {
		err := e.step(ctx, rc, "release_hold", policyReleaseHold, func(ctx context.Context) error {
			_, stepErr := e.ledger.ReleaseHold(ctx, rc.state.HoldID)
			return stepErr
		})
		if err != nil {
			e.log.Error().Err(err).
				Str("workflow_id", rc.state.ID).
				Str("hold_id", rc.state.HoldID).
				Msg("hold release failed, reaper will reclaim at expiry")
		}
	}
	return e.checkpoint(ctx, rc, "release_hold", domain.StageSettled)
}

// openReview creates the pending review row, probing for one this
// workflow already opened so a crash inside routing does not queue the
// same transaction twice.
func (e *Engine) openReview(ctx context.Context, rc *runContext) error {
	return e.step(ctx, rc, "queue_review", policyQueueReview, func(ctx context.Context) error {
		pending, err := e.reviewRepo.ListPending(ctx, 500)
		if err == nil {
			for _, r := range pending {
				if r.WorkflowID == rc.state.ID {
					rc.state.ReviewID = r.ID
					return nil
				}
			}
		}

		draft := rc.state.Draft
		now := time.Now().UTC()
		review := &domain.HumanReview{
			ID:             e.idGen.Generate(),
			TransactionID:  rc.txn.ID,
			WorkflowID:     rc.state.ID,
			Priority:       domain.PriorityForRiskScore(rc.state.RiskScore),
			SLADeadline:    now.Add(e.cfg.ReviewTimeout),
			AIDecision:     draft.Decision,
			AIConfidence:   draft.Confidence,
			AIReasoning:    draft.Reasoning,
			RiskFactors:    draft.RiskFactors,
			RulesTriggered: rc.state.RulesTriggered,
			Status:         domain.ReviewStatusPending,
			CreatedAt:      now,
		}

		tx, err := e.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := e.reviewRepo.Create(ctx, tx, review); err != nil {
			return err
		}
		event := &domain.OutboxEvent{
			ID:            e.idGen.Generate(),
			AggregateID:   review.ID,
			AggregateType: domain.AggregateTypeReview,
			EventType:     domain.EventTypeReviewOpened,
			Payload: map[string]any{
				"review_id":      review.ID,
				"transaction_id": review.TransactionID,
				"priority":       string(review.Priority),
				"sla_deadline":   review.SLADeadline.Format(time.RFC3339),
			},
			CreatedAt: now,
		}
		if err := e.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		rc.state.ReviewID = review.ID
		if e.metrics != nil {
			e.metrics.ReviewsOpened.WithLabelValues(string(review.Priority)).Inc()
		}
		return nil
	})
}

// stageAwaitReview blocks on the human verdict. Timeout is a rejection:
// an escalated transaction nobody looked at inside the window is never
// quietly approved.
func (e *Engine) stageAwaitReview(ctx context.Context, rc *runContext) error {
	if rc.state.ReviewID == "" {
		if err := e.openReview(ctx, rc); err != nil {
			return err
		}
		if err := e.workflowRepo.Save(ctx, rc.state); err != nil {
			return err
		}
	}

	review, err := e.reviewRepo.GetByID(ctx, rc.state.ReviewID)
	if err != nil {
		return fmt.Errorf("load review %s: %w", rc.state.ReviewID, err)
	}

	waitStart := time.Now()
	timeout := time.Until(review.SLADeadline)
	if timeout <= 0 {
		timeout = time.Millisecond
	}

	sig, ok, waitErr := e.awaitSignal(ctx, rc.state, domain.SignalHumanReview, review.CreatedAt, timeout)
	if waitErr != nil {
		return waitErr
	}
	if e.metrics != nil {
		e.metrics.ReviewWaitTime.Observe(time.Since(waitStart).Seconds())
	}

	draft := rc.state.Draft
	if !ok {
		if err := e.expireReview(ctx, review); err != nil {
			e.log.Warn().Err(err).Str("review_id", review.ID).Msg("review expiry record failed")
		}
		if e.metrics != nil {
			e.metrics.ReviewsTimedOut.Inc()
		}
		draft.Decision = domain.DecisionReject
		draft.DecidedBy = "review_timeout"
		draft.Reasoning += " | Review window elapsed without a verdict; rejected by policy."
		return e.releaseAndAdvance(ctx, rc)
	}

	draft.DecidedBy = sig.Actor
	if sig.Reason != "" {
		draft.Reasoning += " | Reviewer: " + sig.Reason
	}

	switch sig.Decision {
	case domain.DecisionApprove:
		draft.Decision = domain.DecisionApprove
		if sig.Kind != domain.SignalManualOverride && rc.txn.Amount.GreaterThan(e.cfg.AutoApprovalCeiling) {
			draft.Reasoning += " | Amount exceeds auto-approval ceiling; manager approval required."
			return e.checkpoint(ctx, rc, "review_approved", domain.StageAwaitingManager)
		}
		return e.settleAndAdvance(ctx, rc)
	default:
		draft.Decision = domain.DecisionReject
		return e.releaseAndAdvance(ctx, rc)
	}
}

// stageAwaitManager blocks on the manager verdict for above-ceiling
// approvals. Timeout escalates to the review queue rather than
// deciding either way.
func (e *Engine) stageAwaitManager(ctx context.Context, rc *runContext) error {
	waitStart := time.Now()
	sig, ok, waitErr := e.awaitSignal(ctx, rc.state, domain.SignalManagerApproval, rc.state.UpdatedAt, e.cfg.ManagerTimeout)
	if waitErr != nil {
		return waitErr
	}
	if e.metrics != nil {
		e.metrics.ReviewWaitTime.Observe(time.Since(waitStart).Seconds())
	}

	draft := rc.state.Draft
	if !ok {
		draft.Reasoning += " | Manager approval window elapsed; escalated to review queue."
		rc.state.ReviewID = ""
		if err := e.openReview(ctx, rc); err != nil {
			return err
		}
		return e.checkpoint(ctx, rc, "manager_timeout_escalation", domain.StageEscalated)
	}

	draft.DecidedBy = sig.Actor
	if sig.Reason != "" {
		draft.Reasoning += " | Manager: " + sig.Reason
	}

	if sig.Decision == domain.DecisionApprove {
		draft.Decision = domain.DecisionApprove
		return e.settleAndAdvance(ctx, rc)
	}
	draft.Decision = domain.DecisionReject
	return e.releaseAndAdvance(ctx, rc)
}

func (e *Engine) expireReview(ctx context.Context, review *domain.HumanReview) error {
	tx, err := e.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := e.reviewRepo.Resolve(ctx, tx, review.ID, "system:timeout", time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// stageStoreDecision writes the final decision row together with its
// outbox event. This is a critical step: it retries hard, because an
// unrecorded decision leaves the audit trail inconsistent with the
// ledger.
func (e *Engine) stageStoreDecision(ctx context.Context, rc *runContext) error {
	draft := rc.state.Draft
	if draft == nil {
		return errors.New("settled workflow has no decision draft")
	}

	err := e.step(ctx, rc, "store_decision", policyStoreDecision, func(ctx context.Context) error {
		// Idempotent on retry: the decision for this workflow may
		// already be recorded.
		if existing, err := e.decisionRepo.GetLatestByTransactionID(ctx, rc.txn.ID); err == nil && existing.WorkflowID == rc.state.ID {
			rc.state.DecisionID = existing.ID
			return nil
		}

		now := time.Now().UTC()
		row := *draft
		row.ID = e.idGen.Generate()
		row.WorkflowID = rc.state.ID
		row.CreatedAt = now

		tx, err := e.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := e.decisionRepo.Create(ctx, tx, &row); err != nil {
			return err
		}
		event := &domain.OutboxEvent{
			ID:            e.idGen.Generate(),
			AggregateID:   row.ID,
			AggregateType: domain.AggregateTypeDecision,
			EventType:     domain.EventTypeDecisionMade,
			Payload: map[string]any{
				"decision_id":    row.ID,
				"transaction_id": row.TransactionID,
				"decision":       string(row.Decision),
				"confidence":     row.Confidence,
				"risk_score":     row.RiskScore,
			},
			CreatedAt: now,
		}
		if err := e.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		rc.state.DecisionID = row.ID
		return nil
	})
	if err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.DecisionsTotal.WithLabelValues(string(draft.Decision), draft.DecidedBy).Inc()
	}
	return e.checkpoint(ctx, rc, "store_decision", domain.StageDecisionStored)
}

func statusFor(d domain.DecisionType) domain.TransactionStatus {
	switch d {
	case domain.DecisionApprove:
		return domain.TransactionStatusApproved
	case domain.DecisionReject:
		return domain.TransactionStatusRejected
	default:
		return domain.TransactionStatusEscalated
	}
}

// stageUpdateStatus moves the transaction to its terminal status, with
// the status-changed event in the same transaction. Also critical.
func (e *Engine) stageUpdateStatus(ctx context.Context, rc *runContext) error {
	newStatus := statusFor(rc.state.Draft.Decision)

	err := e.step(ctx, rc, "update_status", policyUpdateStatus, func(ctx context.Context) error {
		now := time.Now().UTC()
		tx, err := e.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := e.txnRepo.UpdateStatus(ctx, tx, rc.txn.ID, newStatus, now); err != nil {
			return err
		}
		event := &domain.OutboxEvent{
			ID:            e.idGen.Generate(),
			AggregateID:   rc.txn.ID,
			AggregateType: domain.AggregateTypeTransaction,
			EventType:     domain.EventTypeStatusChanged,
			Payload: map[string]any{
				"transaction_id": rc.txn.ID,
				"old_status":     string(rc.txn.Status),
				"new_status":     string(newStatus),
			},
			CreatedAt: now,
		}
		if err := e.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}

	rc.txn.Status = newStatus
	return e.checkpoint(ctx, rc, "update_status", domain.StageStatusUpdated)
}

// stageNotify queues the outbound notification. Non-critical: a failure
// is logged and the workflow still completes, because the decision and
// status events are already in the outbox.
func (e *Engine) stageNotify(ctx context.Context, rc *runContext) error {
	now := time.Now().UTC()
	event := &domain.OutboxEvent{
		ID:            e.idGen.Generate(),
		AggregateID:   rc.txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeNotification,
		Payload: map[string]any{
			"transaction_id": rc.txn.ID,
			"decision":       string(rc.state.Draft.Decision),
			"status":         string(rc.txn.Status),
			"reasoning":      rc.state.Draft.Reasoning,
		},
		CreatedAt: now,
	}

	err := func() error {
		tx, err := e.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		if err := e.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}()
	if err != nil {
		e.log.Warn().Err(err).Str("transaction_id", rc.txn.ID).Msg("notification enqueue failed")
	}

	return e.checkpoint(ctx, rc, "notify", domain.StageCompleted)
}

// failWorkflow is the compensation path: release the hold, mark the
// transaction failed, record the failure event. The original error is
// always returned; compensation failures are logged, never substituted.
func (e *Engine) failWorkflow(ctx context.Context, rc *runContext, cause error) error {
	e.log.Error().Err(cause).
		Str("workflow_id", rc.state.ID).
		Str("stage", string(rc.state.Stage)).
		Msg("workflow failed")

	if rc.state.HoldID != "" {
		if relErr := e.step(ctx, rc, "release_hold", policyReleaseHold, func(ctx context.Context) error {
			_, err := e.ledger.ReleaseHold(ctx, rc.state.HoldID)
			return err
		}); relErr != nil {
			e.log.Error().Err(relErr).
				Str("hold_id", rc.state.HoldID).
				Msg("compensating hold release failed, reaper will reclaim at expiry")
		}
	}

	if stErr := e.step(ctx, rc, "mark_failed", policyUpdateStatus, func(ctx context.Context) error {
		now := time.Now().UTC()
		tx, err := e.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := e.txnRepo.UpdateStatus(ctx, tx, rc.txn.ID, domain.TransactionStatusFailed, now); err != nil {
			return err
		}
		event := &domain.OutboxEvent{
			ID:            e.idGen.Generate(),
			AggregateID:   rc.state.ID,
			AggregateType: domain.AggregateTypeWorkflow,
			EventType:     domain.EventTypeWorkflowFailed,
			Payload: map[string]any{
				"workflow_id":    rc.state.ID,
				"transaction_id": rc.txn.ID,
				"stage":          string(rc.state.Stage),
				"error":          cause.Error(),
			},
			CreatedAt: now,
		}
		if err := e.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}); stErr != nil {
		e.log.Error().Err(stErr).Str("workflow_id", rc.state.ID).Msg("failed-status write failed")
	}

	rc.state.LastError = cause.Error()
	rc.state.Stage = domain.StageFailed
	rc.state.UpdatedAt = time.Now().UTC()
	if saveErr := e.workflowRepo.Save(ctx, rc.state); saveErr != nil {
		e.log.Error().Err(saveErr).Str("workflow_id", rc.state.ID).Msg("terminal checkpoint failed")
	}

	if e.metrics != nil {
		e.metrics.WorkflowsFailed.Inc()
	}
	return cause
}

// amendDecision appends an override decision for an already-completed
// workflow, linked to the decision it amends, and moves the transaction
// to the overridden status.
func (e *Engine) amendDecision(ctx context.Context, state *domain.WorkflowExecutionState, sig *domain.ReviewSignal) error {
	latest, err := e.decisionRepo.GetLatestByTransactionID(ctx, state.TransactionID)
	if err != nil {
		return fmt.Errorf("load decision for amendment: %w", err)
	}
	if latest.Decision == sig.Decision {
		return nil
	}

	now := time.Now().UTC()
	amendment := &domain.Decision{
		ID:               e.idGen.Generate(),
		TransactionID:    state.TransactionID,
		Decision:         sig.Decision,
		Confidence:       100,
		RiskScore:        latest.RiskScore,
		RiskLevel:        latest.RiskLevel,
		Reasoning:        fmt.Sprintf("Manual override by %s: %s", sig.Actor, sig.Reason),
		RiskFactors:      latest.RiskFactors,
		RulesTriggered:   latest.RulesTriggered,
		SimilarCases:     latest.SimilarCases,
		ModelVersion:     latest.ModelVersion,
		WorkflowID:       state.ID,
		AmendsDecisionID: &latest.ID,
		DecidedBy:        sig.Actor,
		CreatedAt:        now,
	}

	tx, err := e.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := e.decisionRepo.Create(ctx, tx, amendment); err != nil {
		return err
	}
	if err := e.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            e.idGen.Generate(),
		AggregateID:   amendment.ID,
		AggregateType: domain.AggregateTypeDecision,
		EventType:     domain.EventTypeDecisionAmended,
		Payload: map[string]any{
			"decision_id":        amendment.ID,
			"amends_decision_id": latest.ID,
			"transaction_id":     amendment.TransactionID,
			"decision":           string(amendment.Decision),
			"decided_by":         amendment.DecidedBy,
		},
		CreatedAt: now,
	}); err != nil {
		return err
	}
	if err := e.txnRepo.UpdateStatus(ctx, tx, state.TransactionID, statusFor(sig.Decision), now); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.DecisionsTotal.WithLabelValues(string(amendment.Decision), amendment.DecidedBy).Inc()
	}
	e.log.Info().
		Str("transaction_id", state.TransactionID).
		Str("decision_id", amendment.ID).
		Str("decided_by", amendment.DecidedBy).
		Msg("decision amended")
	return nil
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}
