package bandit

import (
	"fmt"
	"math"
)

// Selection is the outcome of one LinUCB pick. ExplorationLevel is
// observability only; it never feeds back into the choice.
type Selection struct {
	ArmID            string
	PredictedReward  float64
	ConfidenceBonus  float64
	UCBScore         float64
	ExplorationLevel float64
}

// SelectArm scores every non-degraded arm against the context vector and
// returns the UCB maximizer. Ties break on lowest interaction count, then
// lexical arm id (snapshots arrive lexically ordered, so the scan order
// settles the final tie).
func SelectArm(x [FeatureDim]float64, arms []ArmSnapshot, alpha, eps float64) (Selection, error) {
	if len(arms) == 0 {
		return Selection{}, fmt.Errorf("no arms registered")
	}
	if eps <= 0 {
		eps = defaultEpsilon
	}

	var (
		best    Selection
		bestArm *ArmSnapshot
	)
	for i := range arms {
		arm := &arms[i]
		if arm.Degraded {
			continue
		}

		predicted := dot(arm.Theta, x)
		tmp := matVecMul(&arm.AInv, x)
		variance := dot(x, tmp)
		if variance < 0 {
			// A^-1 lost positive-definiteness numerically; treat this
			// round's bonus as zero rather than producing NaN.
			variance = 0
		}
		bonus := math.Sqrt(variance)
		ucb := predicted + alpha*bonus

		if bestArm == nil || ucb > best.UCBScore ||
			(ucb == best.UCBScore && arm.Count < bestArm.Count) {
			bestArm = arm
			best = Selection{
				ArmID:           arm.ID,
				PredictedReward: predicted,
				ConfidenceBonus: bonus,
				UCBScore:        ucb,
			}
		}
	}

	if bestArm == nil {
		return Selection{}, fmt.Errorf("all arms degraded or excluded")
	}

	best.ExplorationLevel = best.ConfidenceBonus /
		(best.PredictedReward + best.ConfidenceBonus + eps)
	return best, nil
}
