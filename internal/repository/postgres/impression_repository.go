package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shelfScout/domain"
)

type ImpressionRepository struct {
	DB *gorm.DB
}

func NewImpressionRepository(db *gorm.DB) *ImpressionRepository {
	return &ImpressionRepository{DB: db}
}

func (r *ImpressionRepository) Insert(ctx context.Context, imp *domain.Impression) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(imp).Error; err != nil {
		return fmt.Errorf("failed to insert impression: %w", err)
	}
	return nil
}

// CandidatesFor lists impressions that could own the action: same identity,
// same book, rendered at or before the action and no older than the window.
// Newest first, so the first qualifying row is the last touch.
func (r *ImpressionRepository) CandidatesFor(ctx context.Context, act domain.Action, window time.Duration) ([]domain.Impression, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Where("book_id = ?", act.BookID).
		Where("created_at <= ?", act.CreatedAt).
		Where("created_at >= ?", act.CreatedAt.Add(-window))

	if act.UserID != "" {
		q = q.Where("user_id = ?", act.UserID)
	} else {
		q = q.Where("session_id = ? AND user_id = ''", act.SessionID)
	}

	var out []domain.Impression
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to query impressions: %w", err)
	}
	return out, nil
}
