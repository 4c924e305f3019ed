package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for VestLedger.
type Metrics struct {
	// --- Engine ---
	ActionsApplied  *prometheus.CounterVec
	ActionsRejected *prometheus.CounterVec
	ApplyDuration   *prometheus.HistogramVec
	Sequence        prometheus.Gauge
	InvariantChecks *prometheus.CounterVec

	// --- Token state ---
	Supply       *prometheus.GaugeVec
	VestsOpened  *prometheus.CounterVec
	VestsClosed  *prometheus.CounterVec
	Notification *prometheus.CounterVec

	// --- Idempotency ---
	Duplicates        *prometheus.CounterVec
	DedupLRUSize      prometheus.Gauge
	DedupTier2Errors  prometheus.Counter
	DedupLRUEvictions prometheus.Counter

	// --- Channels ---
	ChannelSize         *prometheus.GaugeVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Persistence ---
	PersistActionsWritten prometheus.Counter
	PersistBatchSize      prometheus.Histogram
	PersistBatchDur       prometheus.Histogram
	PersistErrors         *prometheus.CounterVec
	PersistRetry          prometheus.Counter
	PersistLastSequence   prometheus.Gauge

	// --- Ingestion ---
	IngestMessages *prometheus.CounterVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics registers every metric with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ActionsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_actions_applied_total",
			Help: "Committed ledger actions by type",
		}, []string{"action"}),
		ActionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_actions_rejected_total",
			Help: "Rejected ledger actions by type and error code",
		}, []string{"action", "code"}),
		ApplyDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vest_action_apply_duration_seconds",
			Help:    "Time from request to commit",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"action"}),
		Sequence: f.NewGauge(prometheus.GaugeOpts{
			Name: "vest_sequence",
			Help: "Last committed receipt sequence",
		}),
		InvariantChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_invariant_checks_total",
			Help: "Conservation checks by result",
		}, []string{"result"}),

		Supply: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vest_supply",
			Help: "Circulating supply per symbol, in display units",
		}, []string{"symbol"}),
		VestsOpened: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_vests_opened_total",
			Help: "Vest records created",
		}, []string{"symbol"}),
		VestsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_vests_closed_total",
			Help: "Vest records fully claimed",
		}, []string{"symbol"}),
		Notification: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_notifications_total",
			Help: "Notification attempts by result",
		}, []string{"result"}),

		Duplicates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_idempotency_duplicates_total",
			Help: "Duplicate requests by dedup tier",
		}, []string{"tier"}),
		DedupLRUSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "vest_dedup_lru_size",
			Help: "Entries in the request-id LRU",
		}),
		DedupTier2Errors: f.NewCounter(prometheus.CounterOpts{
			Name: "vest_dedup_tier2_errors_total",
			Help: "Failed Postgres dedup lookups",
		}),
		DedupLRUEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "vest_dedup_lru_evictions_total",
			Help: "Request ids evicted from the LRU",
		}),

		ChannelSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vest_channel_size",
			Help: "Buffered items per output channel",
		}, []string{"channel"}),
		PublishDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "vest_publish_drops_total",
			Help: "Receipts dropped because the publish channel was full",
		}),
		PersistBackpressure: f.NewCounter(prometheus.CounterOpts{
			Name: "vest_persist_backpressure_total",
			Help: "Times the engine blocked on a full persist channel",
		}),

		PersistActionsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "vest_persist_actions_written_total",
			Help: "Receipts written to the action log",
		}),
		PersistBatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vest_persist_batch_size",
			Help:    "Receipts per persisted batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		PersistBatchDur: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vest_persist_batch_duration_seconds",
			Help:    "Time to write one batch",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		PersistErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_persist_errors_total",
			Help: "Persistence failures by stage",
		}, []string{"stage"}),
		PersistRetry: f.NewCounter(prometheus.CounterOpts{
			Name: "vest_persist_retry_total",
			Help: "Batch write retries",
		}),
		PersistLastSequence: f.NewGauge(prometheus.GaugeOpts{
			Name: "vest_persist_last_sequence",
			Help: "Highest sequence written to the action log",
		}),

		IngestMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_ingest_messages_total",
			Help: "Inbound action messages by result",
		}, []string{"result"}),

		QueryRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_query_requests_total",
			Help: "Query requests by method",
		}, []string{"method"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vest_query_duration_seconds",
			Help:    "Query latency by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		QueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vest_query_errors_total",
			Help: "Query failures by method",
		}, []string{"method"}),
	}
}

// SetChannelSize records the current depth of a named channel.
func (m *Metrics) SetChannelSize(name string, size int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
}
