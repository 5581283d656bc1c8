package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shelfScout/business/bandit"
)

// ArmStateRepository persists LinUCB arm state as one JSON row per arm.
type ArmStateRepository struct {
	DB *gorm.DB
}

func NewArmStateRepository(db *gorm.DB) *ArmStateRepository {
	return &ArmStateRepository{DB: db}
}

type armStateRow struct {
	ArmID     string `gorm:"column:arm_id;primaryKey"`
	StateJSON []byte `gorm:"column:state_json"`
}

func (armStateRow) TableName() string {
	return "bandit_arm_states"
}

func (r *ArmStateRepository) GetState(ctx context.Context, armID string) (*bandit.ArmState, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var row armStateRow
	err := r.DB.WithContext(ctx).First(&row, "arm_id = ?", armID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bandit_arm_states: %w", err)
	}

	var state bandit.ArmState
	if err := json.Unmarshal(row.StateJSON, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state_json: %w", err)
	}
	return &state, nil
}

func (r *ArmStateRepository) SaveState(ctx context.Context, armID string, state *bandit.ArmState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	row := armStateRow{ArmID: armID, StateJSON: raw}
	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "arm_id"}},
			UpdateAll: true,
		},
	).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to upsert bandit_arm_states: %w", err)
	}
	return nil
}
