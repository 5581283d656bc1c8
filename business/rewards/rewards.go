package rewards

import (
	"fmt"

	"shelfScout/business/bandit"
	"shelfScout/domain"
)

// RewardForAction turns a recorded action into base reward points using the
// active config. Decay is applied later by the attribution engine; this is
// the undecayed magnitude.
func RewardForAction(cfg bandit.Config, act domain.Action) (float64, error) {
	switch act.ActionType {
	case domain.ActionClick:
		return cfg.RewardClick, nil
	case domain.ActionSave:
		return cfg.RewardSave, nil
	case domain.ActionUnsave:
		return cfg.RewardUnsave, nil
	case domain.ActionRate:
		if act.ActionValue < 1 || act.ActionValue > 5 {
			return 0, fmt.Errorf("%w: rating %v outside 1..5", domain.ErrValidation, act.ActionValue)
		}
		return act.ActionValue, nil
	default:
		return 0, fmt.Errorf("%w: unknown action type %q", domain.ErrValidation, act.ActionType)
	}
}
