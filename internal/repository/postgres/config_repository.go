package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shelfScout/business/bandit"
	"shelfScout/domain"
)

type ConfigRepository struct {
	DB *gorm.DB
}

var _ bandit.ConfigRepository = (*ConfigRepository)(nil)

func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{DB: db}
}

func (r *ConfigRepository) GetConfig(ctx context.Context, profile string) (domain.BanditConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.BanditConfig{}, false, fmt.Errorf("context error: %w", err)
	}

	var cfg domain.BanditConfig
	err := r.DB.WithContext(ctx).
		Where("profile = ?", profile).
		First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return domain.BanditConfig{}, false, nil
	}
	if err != nil {
		return domain.BanditConfig{}, false, fmt.Errorf("failed to query bandit_configs: %w", err)
	}
	return cfg, true, nil
}

func (r *ConfigRepository) UpsertConfig(ctx context.Context, cfg domain.BanditConfig) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile"}},
			UpdateAll: true,
		}).
		Create(&cfg).Error; err != nil {
		return fmt.Errorf("failed to upsert bandit_configs: %w", err)
	}
	return nil
}
