package rewards

import (
	"context"
	"sort"
	"sync"
	"time"

	"shelfScout/domain"
)

// fakeStore implements both repository interfaces in memory, including the
// transactional semantics of MarkAttributed.
type fakeStore struct {
	mu          sync.Mutex
	impressions map[string]*domain.Impression
	actions     map[string]*domain.Action
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		impressions: map[string]*domain.Impression{},
		actions:     map[string]*domain.Action{},
	}
}

// fakeImpressions and fakeActions expose the store through the two
// repository interfaces.
type fakeImpressions struct{ *fakeStore }

func (f fakeImpressions) Insert(ctx context.Context, imp *domain.Impression) error {
	return f.insertImpression(ctx, imp)
}

type fakeActions struct{ *fakeStore }

func (f fakeActions) Insert(ctx context.Context, act *domain.Action) error {
	return f.insertAction(ctx, act)
}

func (s *fakeStore) insertImpression(ctx context.Context, imp *domain.Impression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *imp
	s.impressions[imp.ID] = &cp
	return nil
}

func (s *fakeStore) insertAction(ctx context.Context, act *domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *act
	s.actions[act.ID] = &cp
	return nil
}

func (s *fakeStore) CandidatesFor(ctx context.Context, act domain.Action, window time.Duration) ([]domain.Impression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Impression
	for _, imp := range s.impressions {
		if imp.Identity().Key() != act.Identity().Key() || imp.BookID != act.BookID {
			continue
		}
		if imp.CreatedAt.After(act.CreatedAt) {
			continue
		}
		if imp.CreatedAt.Before(act.CreatedAt.Add(-window)) {
			continue
		}
		out = append(out, *imp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeStore) ListUnattributed(ctx context.Context, since time.Time, limit int) ([]domain.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Action
	for _, act := range s.actions {
		if act.AttributedImpressionID != nil || act.CreatedAt.Before(since) {
			continue
		}
		out = append(out, *act)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) MergeIdentity(ctx context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, imp := range s.impressions {
		if imp.SessionID == sessionID && imp.UserID == "" {
			imp.UserID = userID
		}
	}
	for _, act := range s.actions {
		if act.SessionID == sessionID && act.UserID == "" {
			act.UserID = userID
		}
	}
	return nil
}

func (s *fakeStore) MarkAttributed(ctx context.Context, actionID, impressionID string, reward float64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	act, ok := s.actions[actionID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if act.AttributedImpressionID != nil {
		return false, nil
	}
	imp, ok := s.impressions[impressionID]
	if !ok {
		return false, domain.ErrNotFound
	}

	act.AttributedImpressionID = &impressionID
	ts := at
	act.AttributedAt = &ts
	if imp.Reward == nil {
		imp.Reward = new(float64)
	}
	*imp.Reward += reward
	return true, nil
}
