package rewards

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"shelfScout/business/bandit"
	"shelfScout/domain"
	"shelfScout/pkg/logger"
)

const (
	defaultBatchLimit  = 1000
	defaultWorkerCount = 8
)

// Engine matches recorded actions to the impressions that earned them and
// folds the decayed reward into the arm models. Designed to run repeatedly:
// the attribution marker makes every action a one-shot durable unit, so an
// interrupted or overlapping batch never double-counts.
type Engine struct {
	cfg         bandit.Config
	impressions ImpressionRepository
	actions     ActionRepository
	registry    *bandit.Registry
	states      bandit.StateRepository
	workers     int
	limit       int
	now         func() time.Time
}

func NewEngine(
	cfg bandit.Config,
	impressions ImpressionRepository,
	actions ActionRepository,
	registry *bandit.Registry,
	states bandit.StateRepository,
) *Engine {
	return &Engine{
		cfg:         cfg,
		impressions: impressions,
		actions:     actions,
		registry:    registry,
		states:      states,
		workers:     defaultWorkerCount,
		limit:       defaultBatchLimit,
		now:         time.Now,
	}
}

// AttributeRewards runs one attribution batch over every action still
// missing the attribution marker. The window bounds which impressions an
// action may match, never the action's own age: an action keeps waiting
// across runs (an identity merge can make it matchable long after
// creation). Malformed rows count as errors and are skipped.
func (e *Engine) AttributeRewards(ctx context.Context, window time.Duration) (domain.AttributionResult, error) {
	if window <= 0 {
		window = e.cfg.AttributionWindow
	}

	acts, err := e.actions.ListUnattributed(ctx, time.Time{}, e.limit)
	if err != nil {
		return domain.AttributionResult{}, err
	}

	var processed, updated, errors atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, act := range acts {
		g.Go(func() error {
			processed.Add(1)
			ok, err := e.attributeOne(gctx, act, window)
			if err != nil {
				errors.Add(1)
				logger.Warn("attribution_failed",
					"action_id", act.ID,
					"error", err,
				)
				return nil
			}
			if ok {
				updated.Add(1)
			}
			return gctx.Err()
		})
	}
	err = g.Wait()

	result := domain.AttributionResult{
		Processed: int(processed.Load()),
		Updated:   int(updated.Load()),
		Errors:    int(errors.Load()),
	}
	logger.Info("attribution_batch",
		"processed", result.Processed,
		"updated", result.Updated,
		"errors", result.Errors,
	)
	return result, err
}

// attributeOne links a single action to its winning impression. Returns
// (false, nil) when no impression qualifies or the action was already
// attributed by a concurrent run.
func (e *Engine) attributeOne(ctx context.Context, act domain.Action, window time.Duration) (bool, error) {
	base, err := RewardForAction(e.cfg, act)
	if err != nil {
		return false, err
	}

	candidates, err := e.impressions.CandidatesFor(ctx, act, window)
	if err != nil {
		return false, err
	}

	imp, ok := lastTouch(act, candidates, window)
	if !ok {
		return false, nil
	}

	// Older impressions earn less: the action's influence halves every
	// configured half-life between render and action.
	elapsed := act.CreatedAt.Sub(imp.CreatedAt).Hours()
	reward := base * math.Exp(-e.cfg.DecayLambda()*elapsed)

	marked, err := e.actions.MarkAttributed(ctx, act.ID, imp.ID, reward, e.now())
	if err != nil {
		return false, err
	}
	if !marked {
		logger.Debug("attribution_conflict", "action_id", act.ID)
		return false, nil
	}

	ctxVec := bandit.EncodeContext(domain.RequestContextFromSnapshot(imp.Context))
	if err := e.registry.ApplyReward(imp.ArmID, ctxVec, reward); err != nil {
		// The observation is in the arm state even when the model refresh
		// failed, so this still counts as an update.
		logger.Warn("reward_apply_degraded", "arm_id", imp.ArmID, "error", err)
	}
	if e.states != nil {
		if err := e.registry.PersistArm(ctx, e.states, imp.ArmID); err != nil {
			logger.Warn("arm_state_persist_failed", "arm_id", imp.ArmID, "error", err)
		}
	}

	logger.Debug("action_attributed",
		"action_id", act.ID,
		"impression_id", imp.ID,
		"arm_id", imp.ArmID,
		"reward", reward,
	)
	return true, nil
}

// lastTouch picks the most recent impression whose window still covers the
// action. The boundary is inclusive: an action at exactly createdAt+window
// still attributes.
func lastTouch(act domain.Action, candidates []domain.Impression, window time.Duration) (domain.Impression, bool) {
	var best domain.Impression
	found := false
	for _, imp := range candidates {
		if imp.BookID != act.BookID || imp.Identity().Key() != act.Identity().Key() {
			continue
		}
		if act.CreatedAt.Before(imp.CreatedAt) {
			continue
		}
		if act.CreatedAt.After(imp.CreatedAt.Add(window)) {
			continue
		}
		if !found || imp.CreatedAt.After(best.CreatedAt) {
			best = imp
			found = true
		}
	}
	return best, found
}
