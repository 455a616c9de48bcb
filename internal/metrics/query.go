package metrics

import "github.com/prometheus/client_golang/prometheus"

// Semantic rewrite outcomes.
const (
	RewriteScripted             = "scripted"
	RewriteFallbackNoSink       = "fallback_no_sink"
	RewriteFallbackNoLanguage   = "fallback_no_language"
	RewriteFallbackUnsupported  = "fallback_unsupported_language"
	RewriteFallbackInert        = "fallback_inert"
	RewriteFallbackEmptyScripts = "fallback_empty_scripts"
	RewriteError                = "error"
)

// Query pipeline Prometheus metrics.
var (
	SemanticRewritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "semantic_rewrites_total",
			Help:      "Semantic term conversions by outcome",
		},
		[]string{"outcome"},
	)

	QueryWrapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "query_wraps_total",
			Help:      "Queries leaving the rewriting filter by wrapper kind",
		},
		[]string{"kind"}, // "none" / "script_score" / "function_score"
	)

	QueryBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "query_builds_total",
			Help:      "Query builds by status",
		},
		[]string{"status"},
	)

	QueryBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "query_build_duration_seconds",
			Help:      "Query build duration in seconds, vectorization included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers Prometheus query pipeline metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(SemanticRewritesTotal)
	prometheus.MustRegister(QueryWrapsTotal)
	prometheus.MustRegister(QueryBuildsTotal)
	prometheus.MustRegister(QueryBuildDuration)
	queryMetricsRegistered = true
}
