package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_events_fetched_total",
			Help: "Total number of events fetched from the upstream source (count)",
		},
		[]string{"source"},
	)

	EventsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_events_processed_total",
			Help: "Total number of events run through the pipeline by terminal state (count)",
		},
		[]string{"state"},
	)

	EventProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_event_processing_duration_ms",
			Help:    "Per-event pipeline pass duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"state"},
	)

	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_batches_total",
			Help: "Total number of poll batches processed (count)",
		},
		[]string{"status"},
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lookout_batch_duration_ms",
			Help:    "Batch processing duration in milliseconds",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000},
		},
	)

	DedupChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_dedup_checks_total",
			Help: "Total number of deduplication checks by result and resolution path (count)",
		},
		[]string{"result", "via"},
	)

	DedupCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_dedup_check_duration_ms",
			Help:    "Deduplication check duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"result"},
	)

	DedupCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_dedup_cache_size",
			Help: "Number of event ids held in the in-process seen cache (count)",
		},
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_classifications_total",
			Help: "Total number of classifier calls by outcome (count)",
		},
		[]string{"outcome"},
	)

	ClassificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_classification_duration_ms",
			Help:    "Classifier call duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"outcome"},
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_alerts_total",
			Help: "Total number of alert delivery attempts by status (count)",
		},
		[]string{"status"},
	)

	AlertDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_alert_delivery_duration_ms",
			Help:    "Alert delivery duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	LedgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_ledger_operations_total",
			Help: "Total number of ledger operations by operation and status (count)",
		},
		[]string{"operation", "status"},
	)

	LedgerWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_ledger_write_failures_total",
			Help: "Total number of non-conflict ledger append failures (count)",
		},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_fallback_usage_total",
			Help: "Total number of times degraded-mode fallbacks were used (count)",
		},
		[]string{"component", "strategy", "reason"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"component", "operation"},
	)

	DLQEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_dlq_events_total",
			Help: "Total number of events sent to the DLQ (count)",
		},
		[]string{"topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lookout_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(EventsFetchedTotal)
	prometheus.MustRegister(EventsProcessedTotal)
	prometheus.MustRegister(EventProcessingDuration)
	prometheus.MustRegister(BatchesTotal)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterDedupMetrics() {
	prometheus.MustRegister(DedupChecksTotal)
	prometheus.MustRegister(DedupCheckDuration)
	prometheus.MustRegister(DedupCacheSize)
}

func RegisterClassifierMetrics() {
	prometheus.MustRegister(ClassificationsTotal)
	prometheus.MustRegister(ClassificationDuration)
}

func RegisterNotifierMetrics() {
	prometheus.MustRegister(AlertsTotal)
	prometheus.MustRegister(AlertDeliveryDuration)
}

func RegisterLedgerMetrics() {
	prometheus.MustRegister(LedgerOperationsTotal)
	prometheus.MustRegister(LedgerWriteFailuresTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQEventsTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterOpsMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func ObserveEventProcessingDuration(duration time.Duration, state string) {
	EventProcessingDuration.WithLabelValues(state).Observe(float64(duration.Milliseconds()))
}

func ObserveDedupCheckDuration(duration time.Duration, result string) {
	DedupCheckDuration.WithLabelValues(result).Observe(float64(duration.Milliseconds()))
}

func ObserveClassificationDuration(duration time.Duration, outcome string) {
	ClassificationDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func ObserveAlertDeliveryDuration(duration time.Duration, status string) {
	AlertDeliveryDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveBatchDuration(duration time.Duration) {
	BatchDuration.Observe(float64(duration.Milliseconds()))
}

func SetDedupCacheSize(size int) {
	DedupCacheSize.Set(float64(size))
}

func IncKafkaMessagesRead(topic string) {
	KafkaMessagesReadTotal.WithLabelValues(topic).Inc()
}

func IncKafkaMessagesWritten(topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(topic).Inc()
}
