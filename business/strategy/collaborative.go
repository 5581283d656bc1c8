package strategy

import (
	"context"
	"fmt"

	"shelfScout/domain"
)

const historyLookback = 50

// CoOccurrenceFeed supplies item-to-item signals: the identity's recent
// interactions and, given a seed set, how often other books were acted on
// by the same identities.
type CoOccurrenceFeed interface {
	InteractionHistory(ctx context.Context, id domain.Identity, limit int) ([]uint64, error)
	// CoOccurrences returns book -> co-interaction weight for books acted
	// on by identities that also acted on the seeds. Seeds themselves are
	// excluded.
	CoOccurrences(ctx context.Context, seeds []uint64) (map[uint64]float64, error)
}

// Collaborative is item-to-item co-occurrence over clicks and saves:
// candidates that identities with overlapping history acted on score
// higher. Cold identities have no history to seed with, so the strategy
// delegates to the popularity ranking instead of returning noise.
type Collaborative struct {
	feed     CoOccurrenceFeed
	fallback *Popularity
}

func NewCollaborative(feed CoOccurrenceFeed, fallback *Popularity) *Collaborative {
	return &Collaborative{feed: feed, fallback: fallback}
}

func (s *Collaborative) ArmID() string { return "collaborative" }

func (s *Collaborative) Score(ctx context.Context, sctx ScoringContext, candidates []domain.Book) ([]domain.ScoredBook, error) {
	var history []uint64
	if !sctx.Identity.IsZero() {
		var err error
		history, err = s.feed.InteractionHistory(ctx, sctx.Identity, historyLookback)
		if err != nil {
			return nil, fmt.Errorf("interaction history: %w", err)
		}
	}

	if len(history) == 0 {
		return s.fallback.Score(ctx, sctx, candidates)
	}

	co, err := s.feed.CoOccurrences(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("co-occurrences: %w", err)
	}

	scored := make([]domain.ScoredBook, 0, len(candidates))
	for _, b := range candidates {
		scored = append(scored, domain.ScoredBook{BookID: b.ID, Score: co[b.ID]})
	}
	return rankDescending(scored), nil
}
