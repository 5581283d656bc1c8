package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of one full selection round, fallback included
	SelectDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recommend_select_duration_seconds",
		Help:    "Latency of recommendation selection",
		Buckets: prometheus.DefBuckets,
	})

	ImpressionsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recommend_impressions_recorded_total",
		Help: "Total impressions persisted",
	})

	ActionsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommend_actions_recorded_total",
		Help: "Total actions persisted, by type",
	}, []string{"action_type"})

	AttributionProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attribution_actions_processed_total",
		Help: "Actions examined by attribution batches",
	})

	AttributionUpdated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attribution_actions_updated_total",
		Help: "Actions successfully attributed to an impression",
	})

	AttributionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attribution_actions_errors_total",
		Help: "Actions skipped by attribution batches as malformed or failing",
	})
)

func Init() {
	prometheus.MustRegister(
		SelectDuration,
		ImpressionsRecorded,
		ActionsRecorded,
		AttributionProcessed,
		AttributionUpdated,
		AttributionErrors,
	)
}
