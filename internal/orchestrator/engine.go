package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/decision"
	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/infrastructure/metrics"
	"github.com/avlor/fraudgate/internal/rules"
	"github.com/avlor/fraudgate/internal/search"
	"github.com/avlor/fraudgate/internal/usecase"
)

// Config bounds the engine's concurrency and the two signal waits.
type Config struct {
	Workers             int
	QueueSize           int
	ReviewTimeout       time.Duration
	ManagerTimeout      time.Duration
	AutoApprovalCeiling decimal.Decimal
	HoldTTL             time.Duration
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.ReviewTimeout <= 0 {
		c.ReviewTimeout = 7 * 24 * time.Hour
	}
	if c.ManagerTimeout <= 0 {
		c.ManagerTimeout = 24 * time.Hour
	}
	if c.AutoApprovalCeiling.IsZero() {
		c.AutoApprovalCeiling = decimal.NewFromInt(50000)
	}
}

// Deps collects the engine's collaborators.
type Deps struct {
	Ledger       *usecase.LedgerUseCase
	History      *usecase.HistoryUseCase
	Rules        *rules.Evaluator
	Searcher     *search.Searcher
	Decider      *decision.Engine
	TxnRepo      usecase.TransactionRepository
	DecisionRepo usecase.DecisionRepository
	ReviewRepo   usecase.ReviewRepository
	WorkflowRepo usecase.WorkflowRepository
	JournalRepo  usecase.JournalRepository
	OutboxRepo   usecase.OutboxRepository
	TxManager    usecase.TransactionManager
	IDGen        usecase.IDGenerator
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// Engine drives each transaction through the staged workflow. One
// goroutine per worker pulls workflow ids off the queue; all durable
// state lives in the workflow checkpoint, so any worker (or a restarted
// process) can pick up any workflow.
type Engine struct {
	cfg Config

	ledger       *usecase.LedgerUseCase
	history      *usecase.HistoryUseCase
	rules        *rules.Evaluator
	searcher     *search.Searcher
	decider      *decision.Engine
	txnRepo      usecase.TransactionRepository
	decisionRepo usecase.DecisionRepository
	reviewRepo   usecase.ReviewRepository
	workflowRepo usecase.WorkflowRepository
	journalRepo  usecase.JournalRepository
	outboxRepo   usecase.OutboxRepository
	txManager    usecase.TransactionManager
	idGen        usecase.IDGenerator
	metrics      *metrics.Metrics
	log          zerolog.Logger

	mailbox *mailbox
	queue   chan string
	wg      sync.WaitGroup
}

func NewEngine(cfg Config, deps Deps) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:          cfg,
		ledger:       deps.Ledger,
		history:      deps.History,
		rules:        deps.Rules,
		searcher:     deps.Searcher,
		decider:      deps.Decider,
		txnRepo:      deps.TxnRepo,
		decisionRepo: deps.DecisionRepo,
		reviewRepo:   deps.ReviewRepo,
		workflowRepo: deps.WorkflowRepo,
		journalRepo:  deps.JournalRepo,
		outboxRepo:   deps.OutboxRepo,
		txManager:    deps.TxManager,
		idGen:        deps.IDGen,
		metrics:      deps.Metrics,
		log:          deps.Logger.With().Str("component", "orchestrator").Logger(),
		mailbox:      newMailbox(),
		queue:        make(chan string, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go func(worker int) {
			defer e.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case workflowID, ok := <-e.queue:
					if !ok {
						return
					}
					if err := e.Run(ctx, workflowID); err != nil {
						e.log.Error().Err(err).
							Int("worker", worker).
							Str("workflow_id", workflowID).
							Msg("workflow run failed")
					}
				}
			}
		}(i)
	}
	e.log.Info().Int("workers", e.cfg.Workers).Msg("orchestrator started")
}

// Stop drains the queue and waits for in-flight workflows.
func (e *Engine) Stop() {
	close(e.queue)
	e.wg.Wait()
}

// Submit validates the transaction, persists it together with its
// workflow checkpoint, and enqueues the workflow. The durable rows
// exist before the queue send, so a crash after Submit is recovered by
// Resume rather than lost.
func (e *Engine) Submit(ctx context.Context, txn *domain.Transaction) (*domain.WorkflowExecutionState, error) {
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if txn.ID == "" {
		txn.ID = e.idGen.Generate()
	}
	txn.Status = domain.TransactionStatusPending
	txn.CreatedAt = now
	txn.UpdatedAt = now

	if err := e.txnRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	state := &domain.WorkflowExecutionState{
		ID:            e.idGen.Generate(),
		TransactionID: txn.ID,
		Stage:         domain.StageInitialized,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.workflowRepo.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	if e.metrics != nil {
		e.metrics.WorkflowsStarted.Inc()
	}
	e.log.Info().
		Str("workflow_id", state.ID).
		Str("transaction_id", txn.ID).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.String()).
		Msg("workflow submitted")

	select {
	case e.queue <- state.ID:
	case <-ctx.Done():
		return state, ctx.Err()
	}
	return state, nil
}

// Resume re-enqueues every non-terminal workflow. Called once at
// startup; each workflow continues from its last checkpointed stage.
func (e *Engine) Resume(ctx context.Context) (int, error) {
	inFlight, err := e.workflowRepo.ListInFlight(ctx, e.cfg.QueueSize)
	if err != nil {
		return 0, fmt.Errorf("list in-flight workflows: %w", err)
	}

	resumed := 0
	for _, state := range inFlight {
		select {
		case e.queue <- state.ID:
			resumed++
			if e.metrics != nil {
				e.metrics.WorkflowsResumed.Inc()
			}
			e.log.Info().
				Str("workflow_id", state.ID).
				Str("stage", string(state.Stage)).
				Msg("workflow resumed")
		case <-ctx.Done():
			return resumed, ctx.Err()
		}
	}
	return resumed, nil
}

// GetWorkflow returns the current checkpoint.
func (e *Engine) GetWorkflow(ctx context.Context, id string) (*domain.WorkflowExecutionState, error) {
	return e.workflowRepo.Get(ctx, id)
}

// GetWorkflowByTransaction returns the checkpoint for a transaction.
func (e *Engine) GetWorkflowByTransaction(ctx context.Context, transactionID string) (*domain.WorkflowExecutionState, error) {
	return e.workflowRepo.GetByTransactionID(ctx, transactionID)
}
