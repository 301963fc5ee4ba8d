package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	//
	// ingestion workers
	//
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_events_received_total",
		Help: "The total number of analytics events consumed from the queue",
	})
	EventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_events_skipped_total",
		Help: "Events discarded because they fan out past the update skip threshold",
	})
	UpdatesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_updates_seen_total",
		Help: "The total number of definition updates derived from events",
	})
	UpdatesPerEvent = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propdefs_updates_per_event",
		Help:    "Updates derived from a single event",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})
	CompactedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_compacted_updates_total",
		Help: "Updates discarded as duplicates within one local compaction cycle",
	})
	UpdatesFilteredByCache = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_updates_filtered_by_cache_total",
		Help: "Updates discarded because the shared filter cache marked them recently issued",
	})
	WorkerBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_worker_blocked_total",
		Help: "Times a worker found the handoff channel full and fell back to a blocking send",
	})

	//
	// shared filter cache
	//
	CacheLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_cache_lookups_total",
		Help: "The total number of filter cache lookups",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_cache_hits_total",
		Help: "The total number of filter cache hits",
	})
	CacheCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_cache_collisions_total",
		Help: "The total number of filter cache slot collisions (evictions)",
	})
	CacheConsumed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propdefs_cache_consumed",
		Help: "Approximate number of entries resident in the shared filter cache",
	})

	//
	// batch coordinator
	//
	RecvDequeued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propdefs_recv_dequeued",
		Help: "Updates taken from the handoff channel by the last multi-item receive",
	})
	ForcedSmallBatch = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_forced_small_batch_total",
		Help: "Batches dispatched under target size because the issue period expired",
	})
	TransactionLimitSaturation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propdefs_transaction_limit_saturation",
		Help: "Issuance permits currently held out of the configured maximum",
	})
	BatchAcquireTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propdefs_batch_acquire_seconds",
		Help:    "Time spent assembling one batch from the handoff channel",
		Buckets: []float64{.001, .01, .1, .5, 1.0, 5.0, 15.0, 60.0},
	})
	PermitWaitTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propdefs_permit_wait_seconds",
		Help:    "Time spent waiting for an issuance permit",
		Buckets: []float64{.0001, .001, .01, .1, .5, 1.0, 5.0, 15.0, 60.0},
	})
	UpdateIssueTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propdefs_update_issue_seconds",
		Help:    "Duration of one downstream issuance transaction",
		Buckets: []float64{.001, .01, .1, .5, 1.0, 5.0, 15.0, 60.0},
	})
	IssueFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propdefs_issue_failures_total",
		Help: "Issuance transactions that ended in error",
	})

	//
	// sarama statistics
	//
	KafkaReceiveMessageBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "propdefs_kafka_consumed_message_bytes_total",
		Help: "Total bytes received for a topic and group",
	}, []string{"group", "topic"})
)
