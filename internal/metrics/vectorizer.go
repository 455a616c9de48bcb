package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric of the service.
const Namespace = "vecquery"

// Vectorizer Prometheus metrics.
var (
	VectorizerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "vectorizer_requests_total",
			Help:      "Total number of vectorize requests",
		},
		[]string{"provider", "model", "status"},
	)

	VectorizerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "vectorizer_request_duration_seconds",
			Help:      "Vectorize request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"provider", "model"},
	)

	VectorizerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "vectorizer_tokens_total",
			Help:      "Total tokens reported by the vectorizer",
		},
		[]string{"provider", "model", "type"},
	)

	VectorizerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "vectorizer_errors_total",
			Help:      "Total vectorizer errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	VectorCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "vector_cache_total",
			Help:      "Sentence vector cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var vectorizerMetricsRegistered bool

// RegisterVectorizerMetrics registers Prometheus vectorizer metrics. Must be called once from main.
func RegisterVectorizerMetrics() {
	if vectorizerMetricsRegistered {
		return
	}
	prometheus.MustRegister(VectorizerRequestsTotal)
	prometheus.MustRegister(VectorizerRequestDuration)
	prometheus.MustRegister(VectorizerTokensTotal)
	prometheus.MustRegister(VectorizerErrorsTotal)
	prometheus.MustRegister(VectorCacheTotal)
	vectorizerMetricsRegistered = true
}
