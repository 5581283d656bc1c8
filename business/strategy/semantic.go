package strategy

import (
	"context"
	"fmt"
	"strings"

	"shelfScout/business/similarity"
	"shelfScout/domain"
)

const savedBooksLookback = 20

// SavedBooksFeed supplies the identity's recent saves, newest first.
type SavedBooksFeed interface {
	RecentSavedBookIDs(ctx context.Context, id domain.Identity, limit int) ([]uint64, error)
}

// Semantic scores candidates by TF-IDF similarity against a query vector
// composed from the request's context keywords plus the vectors of the
// identity's recently saved books.
type Semantic struct {
	engine *similarity.Engine
	saved  SavedBooksFeed
}

func NewSemantic(engine *similarity.Engine, saved SavedBooksFeed) *Semantic {
	return &Semantic{engine: engine, saved: saved}
}

func (s *Semantic) ArmID() string { return "semantic" }

func (s *Semantic) Score(ctx context.Context, sctx ScoringContext, candidates []domain.Book) ([]domain.ScoredBook, error) {
	query := s.engine.VectorizeText(strings.Join([]string{
		sctx.Request.Mood,
		sctx.Request.Situation,
		sctx.Request.Goal,
	}, " "))
	if query == nil {
		query = similarity.Vector{}
	}

	if s.saved != nil && !sctx.Identity.IsZero() {
		ids, err := s.saved.RecentSavedBookIDs(ctx, sctx.Identity, savedBooksLookback)
		if err != nil {
			return nil, fmt.Errorf("recent saves: %w", err)
		}
		for _, id := range ids {
			vec, ok := s.engine.Vector(id)
			if !ok {
				continue
			}
			for term, w := range vec {
				query[term] += w
			}
		}
	}

	simByID := make(map[uint64]float64, len(candidates))
	for _, m := range s.engine.Query(query, s.engine.Size(), 0) {
		simByID[m.BookID] = m.Similarity
	}

	scored := make([]domain.ScoredBook, 0, len(candidates))
	for _, b := range candidates {
		scored = append(scored, domain.ScoredBook{BookID: b.ID, Score: simByID[b.ID]})
	}
	return rankDescending(scored), nil
}
