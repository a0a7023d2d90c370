package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(intentsTotal, actionsTotal, confirmationsTotal, rateLimitedTotal, feedbackTotal)
}

var (
	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_intents_total",
			Help: "Classified intents, labeled by source (model, fallback, rescue).",
		},
		[]string{"intent", "source"},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_actions_total",
			Help: "Dispatched actions by intent and outcome.",
		},
		[]string{"intent", "outcome"}, // outcome: 'success' or an error kind
	)

	confirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_confirmations_total",
			Help: "Replies to a pending confirmation by outcome.",
		},
		[]string{"outcome"}, // 'confirmed', 'cancelled', 'ambiguous', 'lost_race', 'expired'
	)

	feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_feedback_total",
			Help: "Ratings given to assistant messages.",
		},
		[]string{"rating"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mentor_rate_limited_total",
			Help: "Chat messages rejected by the per-user rate limit.",
		},
	)
)

func IncIntent(intent, source string) {
	intentsTotal.WithLabelValues(norm(intent), norm(source)).Inc()
}

func IncAction(intent, outcome string) {
	actionsTotal.WithLabelValues(norm(intent), norm(outcome)).Inc()
}

func IncConfirmation(outcome string) {
	confirmationsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddConfirmations(outcome string, n int64) {
	if n > 0 {
		confirmationsTotal.WithLabelValues(norm(outcome)).Add(float64(n))
	}
}

func IncRateLimited() { rateLimitedTotal.Inc() }

func IncFeedback(rating int) {
	feedbackTotal.WithLabelValues(strconv.Itoa(rating)).Inc()
}
