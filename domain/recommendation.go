package domain

// ScoredBook is one entry of a strategy's ranked output.
type ScoredBook struct {
	BookID uint64  `json:"book_id"`
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
}

// SelectionDiagnostics exposes the selector internals for observability.
// ExplorationLevel is reported only, never used in selection.
type SelectionDiagnostics struct {
	PredictedReward  float64 `json:"predicted_reward"`
	ConfidenceBonus  float64 `json:"confidence_bonus"`
	UCBScore         float64 `json:"ucb_score"`
	ExplorationLevel float64 `json:"exploration_level"`
	Fallback         bool    `json:"fallback"`
	FallbackReason   string  `json:"fallback_reason,omitempty"`
}

// SelectResult is what the caller-facing API returns for one selection.
type SelectResult struct {
	Books       []ScoredBook         `json:"books"`
	ArmUsed     string               `json:"arm_used"`
	Diagnostics SelectionDiagnostics `json:"diagnostics"`
}

// AttributionResult summarizes one attribution batch. Unmatched actions are
// neither processed failures nor updates; they simply wait for later runs.
type AttributionResult struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

// ArmStats is the per-arm observability view.
type ArmStats struct {
	ArmID            string  `json:"arm_id"`
	InteractionCount int64   `json:"interaction_count"`
	CumulativeReward float64 `json:"cumulative_reward"`
	AverageReward    float64 `json:"average_reward"`
	ConfidenceLower  float64 `json:"confidence_lower"`
	ConfidenceUpper  float64 `json:"confidence_upper"`
	Uncertainty      float64 `json:"uncertainty"`
	Degraded         bool    `json:"degraded"`
}

// ArmStatistics is the aggregate returned by GetArmStatistics.
type ArmStatistics struct {
	Arms              []ArmStats `json:"arms"`
	BestPerformingArm string     `json:"best_performing_arm,omitempty"`
}
