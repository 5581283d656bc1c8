package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"shelfScout/business/bandit"
	"shelfScout/domain"
)

const (
	popularityLookback = 30 * 24 * time.Hour
	popularityLimit    = 5000
)

// ActionFeed supplies recent actions for non-personalized signals.
type ActionFeed interface {
	RecentActions(ctx context.Context, since time.Time, limit int) ([]domain.Action, error)
}

// Popularity scores candidates by time-decayed action counts: a save counts
// more than a click, an unsave subtracts, and everything fades with the
// configured reward half-life. Not personalized, which is exactly why it
// doubles as the universal fallback ranking.
type Popularity struct {
	feed ActionFeed
	cfg  bandit.Config
	now  func() time.Time
}

func NewPopularity(feed ActionFeed, cfg bandit.Config) *Popularity {
	return &Popularity{feed: feed, cfg: cfg, now: time.Now}
}

func (s *Popularity) ArmID() string { return "popularity" }

func (s *Popularity) Score(ctx context.Context, sctx ScoringContext, candidates []domain.Book) ([]domain.ScoredBook, error) {
	now := s.now()
	acts, err := s.feed.RecentActions(ctx, now.Add(-popularityLookback), popularityLimit)
	if err != nil {
		return nil, fmt.Errorf("recent actions: %w", err)
	}

	lambda := s.cfg.DecayLambda()
	weights := make(map[uint64]float64, len(acts))
	for _, act := range acts {
		var base float64
		switch act.ActionType {
		case domain.ActionClick:
			base = s.cfg.RewardClick
		case domain.ActionSave:
			base = s.cfg.RewardSave
		case domain.ActionUnsave:
			base = s.cfg.RewardUnsave
		case domain.ActionRate:
			base = act.ActionValue
		default:
			continue
		}
		age := now.Sub(act.CreatedAt).Hours()
		if age < 0 {
			age = 0
		}
		weights[act.BookID] += base * math.Exp(-lambda*age)
	}

	scored := make([]domain.ScoredBook, 0, len(candidates))
	for _, b := range candidates {
		scored = append(scored, domain.ScoredBook{BookID: b.ID, Score: weights[b.ID]})
	}
	return rankDescending(scored), nil
}
