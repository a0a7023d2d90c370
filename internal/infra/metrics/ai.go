package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiCallsLatencyMs,
		aiRetriesTotal,
		aiFallbacksTotal,
		aiExhaustedTotal,
		aiInflight,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 20000},
		},
		[]string{"provider", "model", "success"},
	)

	aiRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_retries_total",
			Help: "Retried generation attempts by model and reason (rate_limited, transient).",
		},
		[]string{"model", "reason"},
	)

	aiFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Replies served by a model other than the preferred one.",
		},
		[]string{"preferred", "served_by"},
	)

	aiInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_inflight_calls",
			Help: "Provider calls currently holding a concurrency slot.",
		},
		[]string{"provider"},
	)

	aiExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_fallback_exhausted_total",
			Help: "Generations that failed on every model of the fallback chain.",
		},
	)
)

func ObserveChatUsage(provider, model string, tokensIn, tokensOut int, latencyMs int, success bool) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncAIRetry(model, reason string) {
	aiRetriesTotal.WithLabelValues(norm(model), norm(reason)).Inc()
}

func IncAIFallback(preferred, servedBy string) {
	aiFallbacksTotal.WithLabelValues(norm(preferred), norm(servedBy)).Inc()
}

func IncAIExhausted() { aiExhaustedTotal.Inc() }

func SetAIInflight(provider string, n int) {
	aiInflight.WithLabelValues(norm(provider)).Set(float64(n))
}
