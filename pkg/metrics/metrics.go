package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Total number of dispatch runs executed (count)",
		},
		[]string{"status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_ms",
			Help:    "Duration of one dispatch run across all publishers in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"status"},
	)

	RegistryPageReadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_registry_page_reads_total",
			Help: "Total number of publisher registry pages read (count)",
		},
	)

	PublisherDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_publisher_decisions_total",
			Help: "Per-publisher dispatch decisions (matched, unmatched, disabled, error) (count)",
		},
		[]string{"decision"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_attempts_total",
			Help: "Total number of deliveries by publisher type and outcome (count)",
		},
		[]string{"publisher_type", "status"},
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_duration_ms",
			Help:    "Duration of a delivery including retries in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"publisher_type"},
	)

	DeliveryRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_retries_total",
			Help: "Total number of delivery retries after a transient failure (count)",
		},
		[]string{"publisher_type"},
	)

	FailureReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failure_reports_total",
			Help: "Total number of publisher failure reports (count)",
		},
		[]string{"publisher_type", "code"},
	)

	FailureReportsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failure_reports_dropped_total",
			Help: "Total number of failure reports not forwarded to the failure topic (count)",
		},
		[]string{"reason"},
	)

	OrganizationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "organization_cache_lookups_total",
			Help: "Organization cache lookups by result (hit, miss, error) (count)",
		},
		[]string{"result"},
	)

	CallbackTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_tasks_total",
			Help: "Total number of dispatch tasks submitted by the callback entry point (count)",
		},
		[]string{"mode", "status"},
	)

	TaskDeduplicationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_deduplication_total",
			Help: "Task redelivery checks by result (first, duplicate, error) (count)",
		},
		[]string{"result"},
	)

	PublisherChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_changes_total",
			Help: "Publisher documents changed through the management API by action (count)",
		},
		[]string{"action"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"scope", "status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"database", "collection", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"database", "collection"},
	)
)

func RegisterDispatchMetrics() {
	prometheus.MustRegister(DispatchRunsTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(RegistryPageReadsTotal)
	prometheus.MustRegister(PublisherDecisionsTotal)
	prometheus.MustRegister(DeliveriesTotal)
	prometheus.MustRegister(DeliveryDuration)
	prometheus.MustRegister(DeliveryRetriesTotal)
	prometheus.MustRegister(FailureReportsTotal)
	prometheus.MustRegister(FailureReportsDroppedTotal)
	prometheus.MustRegister(OrganizationCacheTotal)
	prometheus.MustRegister(CallbackTasksTotal)
	prometheus.MustRegister(TaskDeduplicationTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(PublisherChangesTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObserveDispatchDuration(duration time.Duration, status string) {
	DispatchDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncPublisherDecision(decision string) {
	PublisherDecisionsTotal.WithLabelValues(decision).Inc()
}

func IncDelivery(publisherType, status string) {
	DeliveriesTotal.WithLabelValues(publisherType, status).Inc()
}

func ObserveDeliveryDuration(publisherType string, duration time.Duration) {
	DeliveryDuration.WithLabelValues(publisherType).Observe(float64(duration.Milliseconds()))
}

func IncDeliveryRetry(publisherType string) {
	DeliveryRetriesTotal.WithLabelValues(publisherType).Inc()
}

func IncFailureReport(publisherType, code string) {
	FailureReportsTotal.WithLabelValues(publisherType, code).Inc()
}

func IncFailureReportDropped(reason string) {
	FailureReportsDroppedTotal.WithLabelValues(reason).Inc()
}

func IncOrganizationCache(result string) {
	OrganizationCacheTotal.WithLabelValues(result).Inc()
}

func IncTaskDeduplication(result string) {
	TaskDeduplicationTotal.WithLabelValues(result).Inc()
}

func IncPublisherChange(action string) {
	PublisherChangesTotal.WithLabelValues(action).Inc()
}

func IncCallbackTask(mode, status string) {
	CallbackTasksTotal.WithLabelValues(mode, status).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

// ObserveQuery records one database call; pass the error returned by the driver.
func ObserveQuery(database, collection string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueriesTotal.WithLabelValues(database, collection, status).Inc()
	DatabaseQueryDuration.WithLabelValues(database, collection).Observe(float64(time.Since(started).Milliseconds()))
}
