package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Workflow metrics
	WorkflowsStarted   prometheus.Counter
	WorkflowsCompleted prometheus.Counter
	WorkflowsFailed    prometheus.Counter
	WorkflowsResumed   prometheus.Counter
	WorkflowDuration   prometheus.Histogram
	StageDuration      *prometheus.HistogramVec
	StageRetries       *prometheus.CounterVec

	// Decision metrics
	DecisionsTotal     *prometheus.CounterVec
	DecisionConfidence prometheus.Histogram
	AnalyzerErrors     prometheus.Counter
	RiskScore          prometheus.Histogram

	// Ledger metrics
	HoldsPlaced      prometheus.Counter
	HoldsReleased    prometheus.Counter
	HoldsExpired     prometheus.Counter
	TransfersSettled prometheus.Counter
	TransferDuration prometheus.Histogram
	TransferAmount   prometheus.Histogram
	LedgerErrors     *prometheus.CounterVec

	// Review metrics
	ReviewsOpened   *prometheus.CounterVec
	ReviewsResolved prometheus.Counter
	ReviewsTimedOut prometheus.Counter
	SignalsReceived *prometheus.CounterVec
	ReviewWaitTime  prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections prometheus.Gauge
	DBErrors      *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter
	OutboxLag       prometheus.Gauge
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		WorkflowsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_workflows_started_total",
			Help: "Total number of transaction workflows started",
		}),
		WorkflowsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_workflows_completed_total",
			Help: "Total number of workflows reaching completed",
		}),
		WorkflowsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_workflows_failed_total",
			Help: "Total number of workflows reaching failed",
		}),
		WorkflowsResumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_workflows_resumed_total",
			Help: "Total number of workflows resumed from a checkpoint",
		}),
		WorkflowDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudgate_workflow_duration_seconds",
			Help:    "End-to-end workflow duration",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 300, 3600, 86400},
		}),
		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudgate_stage_duration_seconds",
				Help:    "Duration of individual workflow stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		StageRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_stage_retries_total",
				Help: "Total stage retry attempts",
			},
			[]string{"stage"},
		),

		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_decisions_total",
				Help: "Total decisions by outcome and source",
			},
			[]string{"decision", "source"},
		),
		DecisionConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudgate_decision_confidence",
			Help:    "Decision confidence distribution",
			Buckets: []float64{10, 30, 50, 70, 80, 90, 95, 100},
		}),
		AnalyzerErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_analyzer_errors_total",
			Help: "Total AI analyzer call failures",
		}),
		RiskScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudgate_risk_score",
			Help:    "Risk score distribution",
			Buckets: []float64{10, 25, 40, 50, 60, 70, 80, 90, 100},
		}),

		HoldsPlaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_holds_placed_total",
			Help: "Total number of holds placed",
		}),
		HoldsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_holds_released_total",
			Help: "Total number of holds released",
		}),
		HoldsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_holds_expired_total",
			Help: "Total number of expired holds released by the reaper",
		}),
		TransfersSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_transfers_settled_total",
			Help: "Total number of settled transfers",
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudgate_transfer_duration_seconds",
			Help:    "Duration of settlement operations",
			Buckets: prometheus.DefBuckets,
		}),
		TransferAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudgate_transfer_amount",
			Help:    "Settled transfer amounts",
			Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 1000000},
		}),
		LedgerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_ledger_errors_total",
				Help: "Total ledger operation errors by type",
			},
			[]string{"error_type"},
		),

		ReviewsOpened: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_reviews_opened_total",
				Help: "Total human reviews opened by priority",
			},
			[]string{"priority"},
		),
		ReviewsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_reviews_resolved_total",
			Help: "Total human reviews resolved by a signal",
		}),
		ReviewsTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_reviews_timed_out_total",
			Help: "Total human reviews resolved by timeout",
		}),
		SignalsReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_signals_received_total",
				Help: "Total workflow signals received by kind",
			},
			[]string{"kind"},
		),
		ReviewWaitTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudgate_review_wait_seconds",
			Help:    "Time escalated workflows spend waiting on a signal",
			Buckets: []float64{60, 600, 3600, 14400, 86400, 604800},
		}),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudgate_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DBQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_db_queries_total",
				Help: "Total database queries by operation",
			},
			[]string{"operation"},
		),
		DBDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudgate_db_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fraudgate_db_connections",
			Help: "Current database connections",
		}),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_db_errors_total",
				Help: "Total database errors by type",
			},
			[]string{"error_type"},
		),

		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_redis_operations_total",
				Help: "Total Redis operations by type and result",
			},
			[]string{"operation", "result"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudgate_redis_errors_total",
				Help: "Total Redis errors by operation",
			},
			[]string{"operation"},
		),

		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_outbox_published_total",
			Help: "Total outbox events published to the broker",
		}),
		OutboxErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudgate_outbox_errors_total",
			Help: "Total outbox publish failures",
		}),
		OutboxLag: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fraudgate_outbox_lag",
			Help: "Unpublished outbox events at last relay pass",
		}),
	}
}
