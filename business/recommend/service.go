package recommend

import (
	"context"
	"fmt"
	"time"

	"shelfScout/business/bandit"
	"shelfScout/business/rewards"
	"shelfScout/business/similarity"
	"shelfScout/business/strategy"
	"shelfScout/domain"
	"shelfScout/pkg/logger"
	"shelfScout/pkg/metrics"
)

const (
	defaultResultCount = 10

	// fallbackTimeout bounds the detached fallback ranking; the original
	// deadline may already have passed.
	fallbackTimeout = 2 * time.Second
)

// BookRepository supplies the catalog for candidate pools and index builds.
type BookRepository interface {
	ListBooks(ctx context.Context) ([]domain.Book, error)
	ListBooksChangedSince(ctx context.Context, since time.Time) ([]domain.Book, error)
}

// IdentityRepository rewrites identity columns when a session logs in.
type IdentityRepository interface {
	// MergeIdentity moves every impression and action recorded under the
	// session onto the user in one transaction.
	MergeIdentity(ctx context.Context, sessionID, userID string) error
}

// StatsCache is a short-TTL cache for arm statistics. A nil cache or a
// cache error just means recomputing.
type StatsCache interface {
	GetArmStatistics(ctx context.Context) (*domain.ArmStatistics, error)
	SetArmStatistics(ctx context.Context, stats domain.ArmStatistics) error
}

// Service is the caller-facing surface of the recommendation core: selection,
// interaction recording, attribution batches, statistics, identity merges
// and index rebuilds.
type Service struct {
	cfg         bandit.Config
	registry    *bandit.Registry
	strategies  map[string]strategy.Strategy
	fallback    strategy.Strategy
	eligibility *strategy.EligibilityFilter
	recorder    *rewards.Recorder
	attribution *rewards.Engine
	simEngine   *similarity.Engine
	books       BookRepository
	identities  IdentityRepository
	statsCache  StatsCache
	now         func() time.Time
}

func NewService(
	cfg bandit.Config,
	registry *bandit.Registry,
	strategies []strategy.Strategy,
	fallback strategy.Strategy,
	eligibility *strategy.EligibilityFilter,
	recorder *rewards.Recorder,
	attribution *rewards.Engine,
	simEngine *similarity.Engine,
	books BookRepository,
	identities IdentityRepository,
	statsCache StatsCache,
) *Service {
	byArm := make(map[string]strategy.Strategy, len(strategies))
	for _, st := range strategies {
		byArm[st.ArmID()] = st
	}
	return &Service{
		cfg:         cfg,
		registry:    registry,
		strategies:  byArm,
		fallback:    fallback,
		eligibility: eligibility,
		recorder:    recorder,
		attribution: attribution,
		simEngine:   simEngine,
		books:       books,
		identities:  identities,
		statsCache:  statsCache,
		now:         time.Now,
	}
}

// SelectRecommendation runs one selection round: filter candidates, encode
// the context, pick an arm, rank with that arm's strategy and record one
// impression per returned book. Any selector or strategy failure degrades
// to the non-personalized popularity ranking instead of erroring out.
func (s *Service) SelectRecommendation(
	ctx context.Context,
	reqCtx domain.RequestContext,
	candidates []domain.Book,
	identity domain.Identity,
	n int,
) (domain.SelectResult, error) {
	started := s.now()
	defer func() {
		metrics.SelectDuration.Observe(time.Since(started).Seconds())
	}()

	if identity.IsZero() {
		return domain.SelectResult{}, fmt.Errorf("%w: a user or session id is required", domain.ErrValidation)
	}
	if n <= 0 {
		n = defaultResultCount
	}
	if reqCtx.ObservedAt.IsZero() {
		reqCtx.ObservedAt = started
	}

	if candidates == nil {
		var err error
		candidates, err = s.books.ListBooks(ctx)
		if err != nil {
			return domain.SelectResult{}, fmt.Errorf("load candidates: %w", err)
		}
	}
	candidates = s.eligibility.Filter(candidates, reqCtx)
	if len(candidates) == 0 {
		return domain.SelectResult{ArmUsed: ""}, nil
	}

	sctx := strategy.ScoringContext{
		Request:  reqCtx,
		Identity: identity,
		Features: bandit.EncodeContext(reqCtx),
	}

	result, err := s.personalized(ctx, sctx, candidates, n)
	if err != nil {
		logger.Warn("selection_fallback",
			"trace_id", TraceIDFromContext(ctx),
			"reason", err,
		)
		result, err = s.popularityFallback(ctx, sctx, candidates, n, err.Error())
		if err != nil {
			return domain.SelectResult{}, err
		}
	}

	s.recordImpressions(ctx, identity, reqCtx, result)

	logger.Debug("recommendation_selected",
		"trace_id", TraceIDFromContext(ctx),
		"identity", identity.Key(),
		"arm", result.ArmUsed,
		"fallback", result.Diagnostics.Fallback,
		"count", len(result.Books),
	)
	return result, nil
}

func (s *Service) personalized(
	ctx context.Context,
	sctx strategy.ScoringContext,
	candidates []domain.Book,
	n int,
) (domain.SelectResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SelectResult{}, err
	}

	sel, err := bandit.SelectArm(sctx.Features, s.registry.Snapshots(), s.cfg.Alpha, s.cfg.Epsilon)
	if err != nil {
		return domain.SelectResult{}, fmt.Errorf("select arm: %w", err)
	}

	strat, ok := s.strategies[sel.ArmID]
	if !ok {
		return domain.SelectResult{}, fmt.Errorf("no strategy registered for arm %s", sel.ArmID)
	}

	scored, err := strat.Score(ctx, sctx, candidates)
	if err != nil {
		return domain.SelectResult{}, fmt.Errorf("arm %s: %w", sel.ArmID, err)
	}
	if len(scored) > n {
		scored = scored[:n]
	}

	return domain.SelectResult{
		Books:   scored,
		ArmUsed: sel.ArmID,
		Diagnostics: domain.SelectionDiagnostics{
			PredictedReward:  sel.PredictedReward,
			ConfidenceBonus:  sel.ConfidenceBonus,
			UCBScore:         sel.UCBScore,
			ExplorationLevel: sel.ExplorationLevel,
		},
	}, nil
}

// popularityFallback ranks without personalization. The caller's context
// may already be canceled by the time we get here, so ranking runs on a
// detached context with its own deadline; if even that fails, the
// candidates go out in given order rather than failing the caller.
func (s *Service) popularityFallback(
	ctx context.Context,
	sctx strategy.ScoringContext,
	candidates []domain.Book,
	n int,
	reason string,
) (domain.SelectResult, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()

	scored, err := s.fallback.Score(fctx, sctx, candidates)
	if err != nil {
		logger.Warn("fallback_ranking_failed",
			"trace_id", TraceIDFromContext(ctx),
			"error", err,
		)
		scored = make([]domain.ScoredBook, 0, len(candidates))
		for i, b := range candidates {
			scored = append(scored, domain.ScoredBook{BookID: b.ID, Rank: i + 1})
		}
	}
	if len(scored) > n {
		scored = scored[:n]
	}
	return domain.SelectResult{
		Books:   scored,
		ArmUsed: s.fallback.ArmID(),
		Diagnostics: domain.SelectionDiagnostics{
			Fallback:       true,
			FallbackReason: reason,
		},
	}, nil
}

// recordImpressions writes one impression per returned book. A failed write
// costs that row's future attribution, not the response.
func (s *Service) recordImpressions(
	ctx context.Context,
	identity domain.Identity,
	reqCtx domain.RequestContext,
	result domain.SelectResult,
) {
	snapshot := reqCtx.Snapshot()
	for _, sb := range result.Books {
		_, err := s.recorder.RecordImpression(ctx, domain.Impression{
			UserID:    identity.UserID,
			SessionID: identity.SessionID,
			BookID:    sb.BookID,
			ArmID:     result.ArmUsed,
			Rank:      sb.Rank,
			Score:     sb.Score,
			Context:   snapshot,
		})
		if err != nil {
			logger.Warn("impression_record_failed",
				"trace_id", TraceIDFromContext(ctx),
				"book_id", sb.BookID,
				"error", err,
			)
			continue
		}
		metrics.ImpressionsRecorded.Inc()
	}
}

// RecordInteraction persists one user action for later attribution.
func (s *Service) RecordInteraction(
	ctx context.Context,
	identity domain.Identity,
	bookID uint64,
	actionType string,
	value float64,
) (string, error) {
	id, err := s.recorder.RecordAction(ctx, domain.Action{
		UserID:      identity.UserID,
		SessionID:   identity.SessionID,
		BookID:      bookID,
		ActionType:  actionType,
		ActionValue: value,
	})
	if err != nil {
		return "", err
	}
	metrics.ActionsRecorded.WithLabelValues(actionType).Inc()
	return id, nil
}

// RunAttributionBatch executes one attribution pass. windowHours <= 0 uses
// the configured window.
func (s *Service) RunAttributionBatch(ctx context.Context, windowHours int) (domain.AttributionResult, error) {
	window := time.Duration(windowHours) * time.Hour
	res, err := s.attribution.AttributeRewards(ctx, window)
	if err != nil {
		return res, err
	}
	metrics.AttributionProcessed.Add(float64(res.Processed))
	metrics.AttributionUpdated.Add(float64(res.Updated))
	metrics.AttributionErrors.Add(float64(res.Errors))
	return res, nil
}

// GetArmStatistics returns the per-arm observability view, served from the
// cache when fresh.
func (s *Service) GetArmStatistics(ctx context.Context) (domain.ArmStatistics, error) {
	if s.statsCache != nil {
		if cached, err := s.statsCache.GetArmStatistics(ctx); err == nil && cached != nil {
			return *cached, nil
		}
	}

	stats := bandit.Statistics(s.registry.Snapshots(), s.cfg.MinSamplesForBest)

	if s.statsCache != nil {
		if err := s.statsCache.SetArmStatistics(ctx, stats); err != nil {
			logger.Warn("stats_cache_set_failed", "error", err)
		}
	}
	return stats, nil
}

// MergeIdentities folds an anonymous session's history into a user. After
// the merge, attribution matches impressions and actions across the two.
func (s *Service) MergeIdentities(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" || userID == "" {
		return fmt.Errorf("%w: both session_id and user_id are required", domain.ErrValidation)
	}
	if err := s.identities.MergeIdentity(ctx, sessionID, userID); err != nil {
		return fmt.Errorf("merge identity: %w", err)
	}
	logger.Info("identities_merged", "session_id", sessionID, "user_id", userID)
	return nil
}

// RebuildSimilarityIndex pulls the catalog and swaps in a fresh TF-IDF
// index. Safe to run while queries are in flight.
func (s *Service) RebuildSimilarityIndex(ctx context.Context) (int, error) {
	books, err := s.books.ListBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	s.simEngine.BuildIndex(books)
	size := s.simEngine.Size()
	logger.Info("similarity_index_rebuilt", "books", size)
	return size, nil
}
