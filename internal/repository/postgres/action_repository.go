package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shelfScout/domain"
)

type ActionRepository struct {
	DB *gorm.DB
}

func NewActionRepository(db *gorm.DB) *ActionRepository {
	return &ActionRepository{DB: db}
}

func (r *ActionRepository) Insert(ctx context.Context, act *domain.Action) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(act).Error; err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

func (r *ActionRepository) ListUnattributed(ctx context.Context, since time.Time, limit int) ([]domain.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Where("attributed_impression_id IS NULL")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var out []domain.Action
	err := q.Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query unattributed actions: %w", err)
	}
	return out, nil
}

// MarkAttributed sets the attribution marker and accumulates the decayed
// reward on the impression in one transaction. The WHERE on the marker
// makes attribution replay-safe: a second caller updates zero rows and
// reports (false, nil).
func (r *ActionRepository) MarkAttributed(ctx context.Context, actionID, impressionID string, reward float64, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	marked := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Action{}).
			Where("id = ? AND attributed_impression_id IS NULL", actionID).
			Updates(map[string]any{
				"attributed_impression_id": impressionID,
				"attributed_at":            at,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark action: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&domain.Impression{}).
			Where("id = ?", impressionID).
			Update("reward", gorm.Expr("COALESCE(reward, 0) + ?", reward)).Error; err != nil {
			return fmt.Errorf("failed to accumulate reward: %w", err)
		}
		marked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

// ---- Strategy signal feeds ----

func (r *ActionRepository) RecentActions(ctx context.Context, since time.Time, limit int) ([]domain.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var out []domain.Action
	err := r.DB.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent actions: %w", err)
	}
	return out, nil
}

func (r *ActionRepository) RecentSavedBookIDs(ctx context.Context, id domain.Identity, limit int) ([]uint64, error) {
	return r.recentBookIDs(ctx, id, []string{domain.ActionSave}, limit)
}

func (r *ActionRepository) InteractionHistory(ctx context.Context, id domain.Identity, limit int) ([]uint64, error) {
	return r.recentBookIDs(ctx, id, []string{domain.ActionClick, domain.ActionSave}, limit)
}

func (r *ActionRepository) recentBookIDs(ctx context.Context, id domain.Identity, types []string, limit int) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Model(&domain.Action{}).
		Where("action_type IN ?", types)
	if id.UserID != "" {
		q = q.Where("user_id = ?", id.UserID)
	} else {
		q = q.Where("session_id = ? AND user_id = ''", id.SessionID)
	}

	var ids []uint64
	err := q.Order("created_at DESC").
		Limit(limit*2). // room for duplicates before the Go-side dedup
		Pluck("book_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query book ids: %w", err)
	}

	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, bid := range ids {
		if _, dup := seen[bid]; dup {
			continue
		}
		seen[bid] = struct{}{}
		out = append(out, bid)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CoOccurrences counts, for every book outside the seed set, how many
// click/save rows share an identity with a click/save on a seed.
func (r *ActionRepository) CoOccurrences(ctx context.Context, seeds []uint64) (map[uint64]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(seeds) == 0 {
		return map[uint64]float64{}, nil
	}

	type row struct {
		BookID uint64  `gorm:"column:book_id"`
		Weight float64 `gorm:"column:weight"`
	}
	var rows []row
	err := r.DB.WithContext(ctx).Raw(`
		SELECT a2.book_id AS book_id, COUNT(*) AS weight
		FROM actions a1
		JOIN actions a2 ON (
			(a1.user_id <> '' AND a1.user_id = a2.user_id) OR
			(a1.user_id = '' AND a1.session_id = a2.session_id AND a2.user_id = '')
		)
		WHERE a1.book_id IN ?
		  AND a2.book_id NOT IN ?
		  AND a1.action_type IN ('click', 'save')
		  AND a2.action_type IN ('click', 'save')
		GROUP BY a2.book_id`,
		seeds, seeds,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query co-occurrences: %w", err)
	}

	out := make(map[uint64]float64, len(rows))
	for _, rw := range rows {
		out[rw.BookID] = rw.Weight
	}
	return out, nil
}

// MergeIdentity moves every anonymous row of the session onto the user in
// one transaction.
func (r *ActionRepository) MergeIdentity(ctx context.Context, sessionID, userID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Impression{}).
			Where("session_id = ? AND user_id = ''", sessionID).
			Update("user_id", userID).Error; err != nil {
			return fmt.Errorf("failed to merge impressions: %w", err)
		}
		if err := tx.Model(&domain.Action{}).
			Where("session_id = ? AND user_id = ''", sessionID).
			Update("user_id", userID).Error; err != nil {
			return fmt.Errorf("failed to merge actions: %w", err)
		}
		return nil
	})
}
