package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shelfScout/domain"
	"shelfScout/pkg/logger"
)

// ImpressionRepository is the persistence surface the rewards package needs
// for impressions.
type ImpressionRepository interface {
	Insert(ctx context.Context, imp *domain.Impression) error
	// CandidatesFor lists impressions matching the action's identity and
	// book with createdAt in [act.CreatedAt-window, act.CreatedAt],
	// newest first.
	CandidatesFor(ctx context.Context, act domain.Action, window time.Duration) ([]domain.Impression, error)
}

// ActionRepository is the persistence surface for recorded actions.
type ActionRepository interface {
	Insert(ctx context.Context, act *domain.Action) error
	// ListUnattributed returns actions without an attribution marker
	// created at or after since, oldest first. A zero since means no
	// lower bound.
	ListUnattributed(ctx context.Context, since time.Time, limit int) ([]domain.Action, error)
	// MarkAttributed sets the attribution marker and accumulates the
	// decayed reward onto the impression row in one transaction. Returns
	// false without error when the action is already attributed.
	MarkAttributed(ctx context.Context, actionID, impressionID string, reward float64, at time.Time) (bool, error)
}

// Recorder persists impressions and actions. Recording is write-only; no
// model state changes until the attribution batch picks the rows up.
type Recorder struct {
	impressions ImpressionRepository
	actions     ActionRepository
	now         func() time.Time
}

func NewRecorder(impressions ImpressionRepository, actions ActionRepository) *Recorder {
	return &Recorder{
		impressions: impressions,
		actions:     actions,
		now:         time.Now,
	}
}

// RecordImpression validates and persists one shown recommendation,
// returning the generated impression id.
func (r *Recorder) RecordImpression(ctx context.Context, imp domain.Impression) (string, error) {
	if imp.Identity().IsZero() {
		return "", fmt.Errorf("%w: impression needs a user or session id", domain.ErrValidation)
	}
	if imp.BookID == 0 {
		return "", fmt.Errorf("%w: impression needs a book id", domain.ErrValidation)
	}
	if imp.ArmID == "" {
		return "", fmt.Errorf("%w: impression needs an arm id", domain.ErrValidation)
	}

	if imp.ID == "" {
		imp.ID = uuid.NewString()
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = r.now()
	}

	if err := r.impressions.Insert(ctx, &imp); err != nil {
		return "", fmt.Errorf("insert impression: %w", err)
	}

	logger.Debug("impression_recorded",
		"impression_id", imp.ID,
		"book_id", imp.BookID,
		"arm_id", imp.ArmID,
		"rank", imp.Rank,
	)
	return imp.ID, nil
}

// RecordAction validates and persists one user action. Duplicate actions
// are accepted as-is; deduplication is not this layer's job.
func (r *Recorder) RecordAction(ctx context.Context, act domain.Action) (string, error) {
	if act.Identity().IsZero() {
		return "", fmt.Errorf("%w: action needs a user or session id", domain.ErrValidation)
	}
	if act.BookID == 0 {
		return "", fmt.Errorf("%w: action needs a book id", domain.ErrValidation)
	}
	switch act.ActionType {
	case domain.ActionClick, domain.ActionSave, domain.ActionUnsave:
	case domain.ActionRate:
		if act.ActionValue < 1 || act.ActionValue > 5 {
			return "", fmt.Errorf("%w: rating %v outside 1..5", domain.ErrValidation, act.ActionValue)
		}
	default:
		return "", fmt.Errorf("%w: unknown action type %q", domain.ErrValidation, act.ActionType)
	}

	if act.ID == "" {
		act.ID = uuid.NewString()
	}
	if act.CreatedAt.IsZero() {
		act.CreatedAt = r.now()
	}

	if err := r.actions.Insert(ctx, &act); err != nil {
		return "", fmt.Errorf("insert action: %w", err)
	}

	logger.Debug("action_recorded",
		"action_id", act.ID,
		"book_id", act.BookID,
		"action_type", act.ActionType,
	)
	return act.ID, nil
}
