package bandit

import (
	"context"
	"math"
	"time"

	"shelfScout/domain"
)

type Config struct {
	// Alpha scales the confidence bonus in the UCB score.
	Alpha float64

	// RewardHalfLife controls attribution decay: an action's influence on
	// an impression halves every RewardHalfLife.
	RewardHalfLife time.Duration

	// AttributionWindow is how long after an impression an action can
	// still attribute to it. A product policy, not an algorithmic law.
	AttributionWindow time.Duration

	// MinSamplesForBest excludes noisy early arms from the "best" pick.
	MinSamplesForBest int

	// per-action base reward points
	RewardClick  float64
	RewardSave   float64
	RewardUnsave float64

	// Epsilon guards divisions and the ridge retry on inversion.
	Epsilon float64
}

const (
	defaultAlpha             = 1.0
	defaultHalfLifeHours     = 36
	defaultWindowHours       = 7 * 24
	defaultMinSamplesForBest = 30
	defaultRewardClick       = 1.0
	defaultRewardSave        = 3.0
	defaultRewardUnsave      = -3.0
	defaultEpsilon           = 1e-6
)

func DefaultConfig() Config {
	return Config{
		Alpha:             defaultAlpha,
		RewardHalfLife:    defaultHalfLifeHours * time.Hour,
		AttributionWindow: defaultWindowHours * time.Hour,
		MinSamplesForBest: defaultMinSamplesForBest,
		RewardClick:       defaultRewardClick,
		RewardSave:        defaultRewardSave,
		RewardUnsave:      defaultRewardUnsave,
		Epsilon:           defaultEpsilon,
	}
}

// DecayLambda is the per-hour exponential decay constant implied by the
// configured half-life.
func (cfg Config) DecayLambda() float64 {
	h := cfg.RewardHalfLife.Hours()
	if h <= 0 {
		h = defaultHalfLifeHours
	}
	return math.Ln2 / h
}

// ConfigRepository reads admin-tunable overrides from the store.
type ConfigRepository interface {
	GetConfig(ctx context.Context, profile string) (domain.BanditConfig, bool, error)
	UpsertConfig(ctx context.Context, cfg domain.BanditConfig) error
}

// LoadConfig merges a stored profile over the defaults. Zero-valued stored
// fields keep their defaults so a partial row stays sane.
func LoadConfig(ctx context.Context, repo ConfigRepository, profile string, base Config) Config {
	if repo == nil {
		return base
	}
	row, ok, err := repo.GetConfig(ctx, profile)
	if err != nil || !ok {
		return base
	}

	cfg := base
	if row.Alpha > 0 {
		cfg.Alpha = row.Alpha
	}
	if row.RewardHalfLifeHrs > 0 {
		cfg.RewardHalfLife = time.Duration(row.RewardHalfLifeHrs * float64(time.Hour))
	}
	if row.WindowHours > 0 {
		cfg.AttributionWindow = time.Duration(row.WindowHours) * time.Hour
	}
	if row.MinSamplesForBest > 0 {
		cfg.MinSamplesForBest = row.MinSamplesForBest
	}
	if row.RewardClick != 0 {
		cfg.RewardClick = row.RewardClick
	}
	if row.RewardSave != 0 {
		cfg.RewardSave = row.RewardSave
	}
	if row.RewardUnsave != 0 {
		cfg.RewardUnsave = row.RewardUnsave
	}
	return cfg
}
