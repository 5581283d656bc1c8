package domain

// BanditConfig is the admin-tunable row backing the bandit defaults. Missing
// rows fall back to the compiled-in defaults (business/bandit.DefaultConfig).
type BanditConfig struct {
	Profile string `json:"profile" gorm:"column:profile;primaryKey"`

	Alpha             float64 `json:"alpha" gorm:"column:alpha"`
	RewardHalfLifeHrs float64 `json:"reward_half_life_hours" gorm:"column:reward_half_life_hours"`
	WindowHours       int     `json:"window_hours" gorm:"column:window_hours"`
	MinSamplesForBest int     `json:"min_samples_for_best" gorm:"column:min_samples_for_best"`

	// per-action base reward points
	RewardClick  float64 `json:"reward_click" gorm:"column:reward_click"`
	RewardSave   float64 `json:"reward_save" gorm:"column:reward_save"`
	RewardUnsave float64 `json:"reward_unsave" gorm:"column:reward_unsave"`
}

func (BanditConfig) TableName() string {
	return "bandit_configs"
}
