package strategy

import (
	"context"

	"shelfScout/business/bandit"
	"shelfScout/domain"
)

// Linear scores candidates with the linear arm's own model: the context
// vector with the interaction slots re-keyed per book, dotted against the
// arm's current theta. Fresh models score everything 0 and the rank order
// degenerates to ascending book id until rewards arrive.
type Linear struct {
	registry *bandit.Registry
}

func NewLinear(registry *bandit.Registry) *Linear {
	return &Linear{registry: registry}
}

func (s *Linear) ArmID() string { return "linear" }

func (s *Linear) Score(ctx context.Context, sctx ScoringContext, candidates []domain.Book) ([]domain.ScoredBook, error) {
	snap := s.registry.Arm(s.ArmID()).Snapshot()

	scored := make([]domain.ScoredBook, 0, len(candidates))
	for _, b := range candidates {
		x := bandit.BookFeatures(sctx.Features, b.ID)
		var score float64
		for i := range x {
			score += snap.Theta[i] * x[i]
		}
		scored = append(scored, domain.ScoredBook{BookID: b.ID, Score: score})
	}
	return rankDescending(scored), nil
}
