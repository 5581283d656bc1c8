package strategy

import (
	"context"
	"testing"
	"time"

	"shelfScout/business/bandit"
	"shelfScout/business/similarity"
	"shelfScout/domain"
)

var testBooks = []domain.Book{
	{ID: 1, Title: "The Martian", Author: "Andy Weir", IndexText: "The Martian survival science fiction Mars botany"},
	{ID: 2, Title: "Project Hail Mary", Author: "Andy Weir", IndexText: "Project Hail Mary science fiction space survival"},
	{ID: 3, Title: "Pride and Prejudice", Author: "Jane Austen", IndexText: "Pride and Prejudice regency romance manners"},
}

type fakeSavedFeed struct{ ids []uint64 }

func (f fakeSavedFeed) RecentSavedBookIDs(ctx context.Context, id domain.Identity, limit int) ([]uint64, error) {
	return f.ids, nil
}

type fakeActionFeed struct{ acts []domain.Action }

func (f fakeActionFeed) RecentActions(ctx context.Context, since time.Time, limit int) ([]domain.Action, error) {
	return f.acts, nil
}

type fakeCoFeed struct {
	history []uint64
	co      map[uint64]float64
}

func (f fakeCoFeed) InteractionHistory(ctx context.Context, id domain.Identity, limit int) ([]uint64, error) {
	return f.history, nil
}

func (f fakeCoFeed) CoOccurrences(ctx context.Context, seeds []uint64) (map[uint64]float64, error) {
	return f.co, nil
}

func testScoringContext() ScoringContext {
	rc := domain.RequestContext{Mood: "curious", Goal: "learn"}
	return ScoringContext{
		Request:  rc,
		Identity: domain.Identity{UserID: "u-1"},
		Features: bandit.EncodeContext(rc),
	}
}

func TestLinear_ColdModelRanksByBookID(t *testing.T) {
	reg := bandit.NewRegistry(0, "linear")
	s := NewLinear(reg)

	scored, err := s.Score(context.Background(), testScoringContext(), testBooks)
	if err != nil {
		t.Fatalf("Score error = %v", err)
	}
	for i, sb := range scored {
		if sb.Score != 0 {
			t.Errorf("cold model score = %v, want 0", sb.Score)
		}
		if sb.BookID != uint64(i+1) {
			t.Errorf("position %d = book %d, want ascending book id", i, sb.BookID)
		}
		if sb.Rank != i+1 {
			t.Errorf("rank = %d, want %d", sb.Rank, i+1)
		}
	}
}

func TestLinear_TrainedModelPrefersRewardedBook(t *testing.T) {
	reg := bandit.NewRegistry(0, "linear")
	sctx := testScoringContext()

	// Reward book 2, punish book 1; the model must learn to separate them.
	for i := 0; i < 30; i++ {
		if err := reg.ApplyReward("linear", bandit.BookFeatures(sctx.Features, 2), 3.0); err != nil {
			t.Fatalf("ApplyReward error = %v", err)
		}
		if err := reg.ApplyReward("linear", bandit.BookFeatures(sctx.Features, 1), -3.0); err != nil {
			t.Fatalf("ApplyReward error = %v", err)
		}
	}

	scored, err := NewLinear(reg).Score(context.Background(), sctx, testBooks)
	if err != nil {
		t.Fatalf("Score error = %v", err)
	}
	byID := make(map[uint64]float64, len(scored))
	for _, sb := range scored {
		byID[sb.BookID] = sb.Score
	}
	if byID[2] <= byID[1] {
		t.Errorf("rewarded book scored %v, punished book %v", byID[2], byID[1])
	}
}

func TestSemantic_SavedBooksSteerRanking(t *testing.T) {
	engine := similarity.NewEngine()
	engine.BuildIndex(testBooks)

	s := NewSemantic(engine, fakeSavedFeed{ids: []uint64{1}})
	scored, err := s.Score(context.Background(), testScoringContext(), testBooks)
	if err != nil {
		t.Fatalf("Score error = %v", err)
	}

	// book 1 itself tops, the overlapping sci-fi title beats romance
	if scored[0].BookID != 1 {
		t.Errorf("top book = %d, want the saved book", scored[0].BookID)
	}
	var simSciFi, simRomance float64
	for _, sb := range scored {
		switch sb.BookID {
		case 2:
			simSciFi = sb.Score
		case 3:
			simRomance = sb.Score
		}
	}
	if simSciFi <= simRomance {
		t.Errorf("sci-fi score %v not above romance %v", simSciFi, simRomance)
	}
}

func TestPopularity_DecayedCounts(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := fakeActionFeed{acts: []domain.Action{
		{BookID: 3, ActionType: domain.ActionSave, CreatedAt: now.Add(-time.Hour)},
		{BookID: 1, ActionType: domain.ActionClick, CreatedAt: now.Add(-time.Hour)},
		{BookID: 1, ActionType: domain.ActionClick, CreatedAt: now.Add(-2 * time.Hour)},
		{BookID: 2, ActionType: domain.ActionSave, CreatedAt: now.Add(-200 * time.Hour)},
	}}

	s := NewPopularity(feed, bandit.DefaultConfig())
	s.now = func() time.Time { return now }

	scored, err := s.Score(context.Background(), testScoringContext(), testBooks)
	if err != nil {
		t.Fatalf("Score error = %v", err)
	}

	// fresh save (3) > two fresh clicks (1) > save decayed through several
	// half-lives (2)
	want := []uint64{3, 1, 2}
	for i, id := range want {
		if scored[i].BookID != id {
			t.Fatalf("order = %v, want %v", scoredIDs(scored), want)
		}
	}
}

func TestPopularity_UnsaveSubtracts(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	feed := fakeActionFeed{acts: []domain.Action{
		{BookID: 1, ActionType: domain.ActionSave, CreatedAt: now.Add(-time.Hour)},
		{BookID: 1, ActionType: domain.ActionUnsave, CreatedAt: now.Add(-time.Hour)},
		{BookID: 2, ActionType: domain.ActionClick, CreatedAt: now.Add(-time.Hour)},
	}}

	s := NewPopularity(feed, bandit.DefaultConfig())
	s.now = func() time.Time { return now }

	scored, err := s.Score(context.Background(), testScoringContext(), testBooks)
	if err != nil {
		t.Fatalf("Score error = %v", err)
	}
	if scored[0].BookID != 2 {
		t.Errorf("top book = %d, want 2 after save+unsave cancel out", scored[0].BookID)
	}
}

func TestCollaborative_ColdIdentityFallsBack(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pop := NewPopularity(fakeActionFeed{acts: []domain.Action{
		{BookID: 3, ActionType: domain.ActionSave, CreatedAt: now.Add(-time.Hour)},
	}}, bandit.DefaultConfig())
	pop.now = func() time.Time { return now }

	s := NewCollaborative(fakeCoFeed{}, pop)
	scored, err := s.Score(context.Background(), testScoringContext(), testBooks)
	if err != nil {
		t.Fatalf("Score error = %v", err)
	}
	if scored[0].BookID != 3 {
		t.Errorf("top book = %d, want the popularity pick for a cold identity", scored[0].BookID)
	}
}

func TestCollaborative_CoOccurrenceRanks(t *testing.T) {
	feed := fakeCoFeed{
		history: []uint64{1},
		co:      map[uint64]float64{2: 5, 3: 1},
	}
	s := NewCollaborative(feed, nil)

	scored, err := s.Score(context.Background(), testScoringContext(), testBooks)
	if err != nil {
		t.Fatalf("Score error = %v", err)
	}
	want := []uint64{2, 3, 1}
	for i, id := range want {
		if scored[i].BookID != id {
			t.Fatalf("order = %v, want %v", scoredIDs(scored), want)
		}
	}
}

func TestEligibilityFilter(t *testing.T) {
	rc := domain.RequestContext{Goal: "learn"}

	if got := NewEligibilityFilter("").Filter(testBooks, rc); len(got) != len(testBooks) {
		t.Errorf("empty expression admitted %d of %d", len(got), len(testBooks))
	}

	f := NewEligibilityFilter(`book.author == "Andy Weir"`)
	got := f.Filter(testBooks, rc)
	if len(got) != 2 {
		t.Fatalf("filtered to %d books, want 2", len(got))
	}
	for _, b := range got {
		if b.Author != "Andy Weir" {
			t.Errorf("book %d kept with author %q", b.ID, b.Author)
		}
	}

	if got := NewEligibilityFilter(`this is not CEL`).Filter(testBooks, rc); len(got) != len(testBooks) {
		t.Errorf("invalid expression must disable the filter, admitted %d", len(got))
	}

	if got := NewEligibilityFilter(`ctx.goal != "learn"`).Filter(testBooks, rc); len(got) != 0 {
		t.Errorf("context-false expression admitted %d books", len(got))
	}
}

func scoredIDs(scored []domain.ScoredBook) []uint64 {
	ids := make([]uint64, len(scored))
	for i, sb := range scored {
		ids[i] = sb.BookID
	}
	return ids
}
