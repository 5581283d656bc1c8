package bandit

import (
	"math"

	"shelfScout/domain"
)

const waldZ = 1.96

// Statistics computes the per-arm observability view from a snapshot set:
// average reward, a Wald-type confidence interval from the accumulated
// reward variance, and the A^-1-derived model uncertainty. Arms below
// minSamples never win the best-performing designation.
func Statistics(arms []ArmSnapshot, minSamples int) domain.ArmStatistics {
	if minSamples <= 0 {
		minSamples = defaultMinSamplesForBest
	}

	out := domain.ArmStatistics{Arms: make([]domain.ArmStats, 0, len(arms))}
	bestAvg := math.Inf(-1)

	for _, arm := range arms {
		st := domain.ArmStats{
			ArmID:            arm.ID,
			InteractionCount: arm.Count,
			CumulativeReward: arm.CumReward,
			Degraded:         arm.Degraded,
			Uncertainty:      modelUncertainty(&arm.AInv),
		}

		if arm.Count > 0 {
			n := float64(arm.Count)
			st.AverageReward = arm.CumReward / n

			variance := arm.CumRewardSq/n - st.AverageReward*st.AverageReward
			if variance < 0 {
				variance = 0
			}
			half := waldZ * math.Sqrt(variance/n)
			st.ConfidenceLower = st.AverageReward - half
			if st.ConfidenceLower < 0 {
				st.ConfidenceLower = 0
			}
			st.ConfidenceUpper = st.AverageReward + half

			if arm.Count >= int64(minSamples) && st.AverageReward > bestAvg {
				bestAvg = st.AverageReward
				out.BestPerformingArm = arm.ID
			}
		}

		out.Arms = append(out.Arms, st)
	}

	return out
}

// modelUncertainty reports sqrt(tr(A^-1)/D): near 1 for a fresh arm, toward
// 0 as observations shrink the confidence ellipsoid.
func modelUncertainty(aInv *[FeatureDim][FeatureDim]float64) float64 {
	trace := 0.0
	for i := range FeatureDim {
		trace += aInv[i][i]
	}
	if trace < 0 {
		trace = 0
	}
	return math.Sqrt(trace / FeatureDim)
}
