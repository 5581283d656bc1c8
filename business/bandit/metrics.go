package bandit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RewardAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_reward_applied_total",
			Help: "Count of rewards folded into arm models, by arm.",
		},
		[]string{"arm"},
	)

	DegradedArms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bandit_degraded_arms",
		Help: "Number of arms currently excluded from selection.",
	})
)

func init() {
	prometheus.MustRegister(RewardAppliedTotal, DegradedArms)
}
