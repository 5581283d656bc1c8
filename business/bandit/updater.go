package bandit

import (
	"fmt"
	"time"
)

// ApplyReward folds one attributed reward into the arm's linear model:
//
//	A += x x^T
//	b += r x
//	theta = A^-1 b
//
// Updates are strictly additive, which keeps A symmetric positive-definite
// and therefore invertible. Callers must invoke this exactly once per
// (impression, attributed-reward) pair; replay safety lives in the
// attribution engine, not here.
func (r *Registry) ApplyReward(armID string, x [FeatureDim]float64, reward float64) error {
	a := r.Arm(armID)
	a.mu.Lock()
	defer a.mu.Unlock()

	addOuter(&a.state.A, x)
	addScaled(&a.state.B, x, reward)
	a.state.Count++
	a.state.CumReward += reward
	a.state.CumRewardSq += reward * reward
	a.state.LastUpdated = time.Now()

	inv, err := invertWithRidge(&a.state.A, r.eps)
	if err != nil {
		// The arm sits out selection until a later update restores a
		// usable inverse. The observation itself is kept.
		if !a.degraded {
			a.degraded = true
			DegradedArms.Inc()
		}
		return fmt.Errorf("arm %s degraded: %w", armID, err)
	}
	a.aInv = inv
	a.theta = matVecMul(&inv, a.state.B)
	if a.degraded {
		a.degraded = false
		DegradedArms.Dec()
	}
	RewardAppliedTotal.WithLabelValues(armID).Inc()
	return nil
}
