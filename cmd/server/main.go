package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	httpAdapter "github.com/avlor/fraudgate/internal/adapter/http"
	"github.com/avlor/fraudgate/internal/adapter/http/handler"
	postgresRepo "github.com/avlor/fraudgate/internal/adapter/repository/postgres"
	redisRepo "github.com/avlor/fraudgate/internal/adapter/repository/redis"
	"github.com/avlor/fraudgate/internal/decision"
	"github.com/avlor/fraudgate/internal/infrastructure/config"
	"github.com/avlor/fraudgate/internal/infrastructure/eventpublisher"
	"github.com/avlor/fraudgate/internal/infrastructure/logger"
	"github.com/avlor/fraudgate/internal/infrastructure/metrics"
	"github.com/avlor/fraudgate/internal/infrastructure/postgres"
	"github.com/avlor/fraudgate/internal/infrastructure/redis"
	"github.com/avlor/fraudgate/internal/orchestrator"
	"github.com/avlor/fraudgate/internal/rules"
	"github.com/avlor/fraudgate/internal/search"
	"github.com/avlor/fraudgate/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	holdRepo := postgresRepo.NewHoldRepository(pool)
	journalRepo := postgresRepo.NewJournalRepository(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	decisionRepo := postgresRepo.NewDecisionRepository(pool)
	reviewRepo := postgresRepo.NewReviewRepository(pool)
	workflowRepo := postgresRepo.NewWorkflowRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	candidateStore := postgresRepo.NewCandidateStore(pool)
	idGen := postgresRepo.NewULIDGenerator()

	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	m := metrics.New()

	// Initialize use cases
	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, holdRepo, journalRepo, outboxRepo, idGen, m)
	historyUC := usecase.NewHistoryUseCase(journalRepo, cache, log)

	// Rule and risk evaluation
	ruleEval := rules.NewEvaluator(rules.DefaultRules())

	// Similarity search; degrades to a deterministic embedder when no
	// embedding endpoint is configured
	var embedder search.Embedder
	if cfg.EmbedEndpoint != "" {
		embedder = search.NewHTTPEmbedder(cfg.EmbedEndpoint, cfg.EmbedAPIKey, "embed-v1", cfg.EmbedTimeout)
	}
	searcher := search.NewSearcher(candidateStore, search.NewFallbackEmbedder(embedder, log), cfg.SimilarityThreshold, cfg.SimilarityLimit)

	// AI decision engine
	var analyzer decision.Analyzer
	if cfg.AIEndpoint != "" {
		analyzer = decision.NewHTTPAnalyzer(cfg.AIEndpoint, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout)
	}
	decider := decision.NewEngine(analyzer, cfg.AIModel, cfg.AIConfidence, log)

	// Workflow orchestrator
	engine := orchestrator.NewEngine(orchestrator.Config{
		Workers:             cfg.WorkflowWorkers,
		QueueSize:           cfg.WorkflowQueueSize,
		ReviewTimeout:       cfg.ReviewTimeout,
		ManagerTimeout:      cfg.ManagerTimeout,
		AutoApprovalCeiling: cfg.AutoApprovalCeiling,
		HoldTTL:             cfg.HoldTTL,
	}, orchestrator.Deps{
		Ledger:       ledgerUC,
		History:      historyUC,
		Rules:        ruleEval,
		Searcher:     searcher,
		Decider:      decider,
		TxnRepo:      txnRepo,
		DecisionRepo: decisionRepo,
		ReviewRepo:   reviewRepo,
		WorkflowRepo: workflowRepo,
		JournalRepo:  journalRepo,
		OutboxRepo:   outboxRepo,
		TxManager:    txManager,
		IDGen:        idGen,
		Metrics:      m,
		Logger:       log,
	})

	engine.Start(ctx)
	defer engine.Stop()

	// Pick up workflows interrupted by the previous run
	resumed, err := engine.Resume(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to resume in-flight workflows")
	} else if resumed > 0 {
		log.Info().Int("count", resumed).Msg("resumed in-flight workflows")
	}

	// Expired hold reaper
	reaper := orchestrator.NewReaper(ledgerUC, cfg.ReaperInterval, cfg.ReaperBatchSize, log)
	go reaper.Run(ctx)

	// Outbox relay
	publisher, closePublisher := newPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer closePublisher()

	relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
	})
	go relay.Start(ctx)

	// Initialize handlers
	transactionHandler := handler.NewTransactionHandler(engine, txnRepo, decisionRepo)
	workflowHandler := handler.NewWorkflowHandler(engine)
	reviewHandler := handler.NewReviewHandler(reviewRepo)
	accountHandler := handler.NewAccountHandler(ledgerUC)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransactionHandler: transactionHandler,
		WorkflowHandler:    workflowHandler,
		ReviewHandler:      reviewHandler,
		AccountHandler:     accountHandler,
		HealthHandler:      healthHandler,
		IdempotencyStore:   idempotencyStore,
		Logger:             log,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown: stop taking requests, then drain in-flight
	// workflows before the deferred engine.Stop
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newPublisher picks the outbox transport. Without brokers configured
// events are logged instead of shipped, which keeps local development
// free of a Kafka dependency.
func newPublisher(brokers []string, topic string, log zerolog.Logger) (eventpublisher.Publisher, func() error) {
	if len(brokers) > 0 {
		p := eventpublisher.NewKafkaPublisher(brokers, topic)
		return p, p.Close
	}
	return eventpublisher.NewLogPublisher(log), func() error { return nil }
}
