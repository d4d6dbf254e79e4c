package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_deliveries_total",
			Help: "Total number of inbound deliveries handled, by outcome (count)",
		},
		[]string{"status"},
	)

	ProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_processing_duration_ms",
			Help:    "Time from delivery to acknowledgment in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"status"},
	)

	RepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_replies_total",
			Help: "Total number of replies published, by kind and status (count)",
		},
		[]string{"kind", "status"},
	)

	AcksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_acks_total",
			Help: "Total number of delivery acknowledgments (count)",
		},
		[]string{"status"},
	)

	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpc_in_flight",
			Help: "Deliveries currently being processed across workers (count)",
		},
	)

	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_requests_total",
			Help: "Total number of search index requests (count)",
		},
		[]string{"status"},
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrieval_duration_ms",
			Help:    "Duration of search index requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	RetrievalFragments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrieval_fragments",
			Help:    "Number of fragments returned per question (count)",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	RankCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_cache_total",
			Help: "Ranked fragment cache lookups by result (count)",
		},
		[]string{"result"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_total",
			Help: "Total number of generation service requests (count)",
		},
		[]string{"status"},
	)

	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_duration_ms",
			Help:    "Duration of generation service requests in milliseconds",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "reason"},
	)

	DeadLettersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_letters_total",
			Help: "Total number of deliveries sent to the dead letter destination (count)",
		},
		[]string{"sink", "reason"},
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

	RateLimitWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rate_limit_wait_duration_ms",
			Help:    "Time spent waiting for a rate limiter token in milliseconds",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"name"},
	)

	HTTPRateLimitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_requests_total",
			Help: "Total number of operations server requests by rate limit decision (count)",
		},
		[]string{"status"},
	)
)

var (
	workerOnce         sync.Once
	circuitBreakerOnce sync.Once
)

func RegisterWorkerMetrics() {
	workerOnce.Do(func() {
		prometheus.MustRegister(DeliveriesTotal)
		prometheus.MustRegister(ProcessingDuration)
		prometheus.MustRegister(RepliesTotal)
		prometheus.MustRegister(AcksTotal)
		prometheus.MustRegister(InFlight)
		prometheus.MustRegister(RetrievalRequestsTotal)
		prometheus.MustRegister(RetrievalDuration)
		prometheus.MustRegister(RetrievalFragments)
		prometheus.MustRegister(RankCacheTotal)
		prometheus.MustRegister(GenerationRequestsTotal)
		prometheus.MustRegister(GenerationDuration)
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(DeadLettersTotal)
		prometheus.MustRegister(RateLimitWaitDuration)
		prometheus.MustRegister(HTTPRateLimitTotal)
	})
}

func RegisterCircuitBreakerMetrics() {
	circuitBreakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func ObserveProcessingDuration(duration time.Duration, status string) {
	ProcessingDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncDelivery(status string) {
	DeliveriesTotal.WithLabelValues(status).Inc()
}

func IncReply(kind, status string) {
	RepliesTotal.WithLabelValues(kind, status).Inc()
}

func IncAck(status string) {
	AcksTotal.WithLabelValues(status).Inc()
}

func ObserveRetrieval(duration time.Duration, status string, fragments int) {
	RetrievalRequestsTotal.WithLabelValues(status).Inc()
	RetrievalDuration.Observe(float64(duration.Milliseconds()))
	if status == "success" {
		RetrievalFragments.Observe(float64(fragments))
	}
}

func IncRankCache(result string) {
	RankCacheTotal.WithLabelValues(result).Inc()
}

func ObserveGeneration(duration time.Duration, status string) {
	GenerationRequestsTotal.WithLabelValues(status).Inc()
	GenerationDuration.Observe(float64(duration.Milliseconds()))
}

func IncRetryAttempt(service, reason string) {
	RetryAttemptsTotal.WithLabelValues(service, reason).Inc()
}

func IncDeadLetter(sink, reason string) {
	DeadLettersTotal.WithLabelValues(sink, reason).Inc()
}

func ObserveRateLimitWait(name string, duration time.Duration) {
	RateLimitWaitDuration.WithLabelValues(name).Observe(float64(duration.Milliseconds()))
}
