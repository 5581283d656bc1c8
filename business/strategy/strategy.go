package strategy

import (
	"context"
	"sort"

	"shelfScout/business/bandit"
	"shelfScout/domain"
)

// ScoringContext is everything a strategy may look at for one selection:
// the raw request context, the acting identity, and the encoded feature
// vector the selector used.
type ScoringContext struct {
	Request  domain.RequestContext
	Identity domain.Identity
	Features [bandit.FeatureDim]float64
}

// Strategy is one recommendation arm. Implementations are stateless with
// respect to a single call; shared state (models, indexes, stores) is
// injected at construction. ArmID must match the id the strategy is
// registered under in the bandit registry.
type Strategy interface {
	ArmID() string
	Score(ctx context.Context, sctx ScoringContext, candidates []domain.Book) ([]domain.ScoredBook, error)
}

// rankDescending orders scored books by descending score with ties broken
// by ascending book id, then stamps 1-based ranks.
func rankDescending(scored []domain.ScoredBook) []domain.ScoredBook {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].BookID < scored[j].BookID
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}
