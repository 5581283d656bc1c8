package rewards

import (
	"context"
	"math"
	"testing"
	"time"

	"shelfScout/business/bandit"
	"shelfScout/domain"
)

func banditDefaults() bandit.Config {
	return bandit.DefaultConfig()
}

func newTestEngine(store *fakeStore, reg *bandit.Registry, now time.Time) *Engine {
	e := NewEngine(banditDefaults(), fakeImpressions{store}, fakeActions{store}, reg, nil)
	e.now = func() time.Time { return now }
	return e
}

func seedImpression(store *fakeStore, id string, bookID uint64, at time.Time) {
	rc := domain.RequestContext{Mood: "curious", Goal: "learn", ObservedAt: at}
	store.impressions[id] = &domain.Impression{
		ID:        id,
		UserID:    "u-1",
		BookID:    bookID,
		ArmID:     "semantic",
		Rank:      1,
		Context:   rc.Snapshot(),
		CreatedAt: at,
	}
}

func seedAction(store *fakeStore, id string, bookID uint64, actionType string, at time.Time) {
	store.actions[id] = &domain.Action{
		ID:         id,
		UserID:     "u-1",
		BookID:     bookID,
		ActionType: actionType,
		CreatedAt:  at,
	}
}

func TestAttributeRewards_EndToEnd(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	seedImpression(store, "imp-1", 7, t0)
	seedAction(store, "act-1", 7, domain.ActionClick, t0.Add(time.Hour))

	e := newTestEngine(store, reg, t0.Add(2*time.Hour))
	res, err := e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}
	if res.Processed != 1 || res.Updated != 1 || res.Errors != 0 {
		t.Fatalf("result = %+v, want 1 processed, 1 updated", res)
	}

	act := store.actions["act-1"]
	if act.AttributedImpressionID == nil || *act.AttributedImpressionID != "imp-1" {
		t.Fatal("action not marked attributed to imp-1")
	}

	// one hour of decay at the default 36h half-life
	wantReward := 1.0 * math.Exp(-banditDefaults().DecayLambda()*1.0)
	imp := store.impressions["imp-1"]
	if imp.Reward == nil || math.Abs(*imp.Reward-wantReward) > 1e-12 {
		t.Errorf("impression reward = %v, want %v", imp.Reward, wantReward)
	}

	snap := reg.Snapshots()[0]
	if snap.Count != 1 {
		t.Errorf("arm count = %d, want 1", snap.Count)
	}
	if math.Abs(snap.CumReward-wantReward) > 1e-12 {
		t.Errorf("arm cumReward = %v, want %v", snap.CumReward, wantReward)
	}
}

func TestAttributeRewards_Idempotent(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	seedImpression(store, "imp-1", 7, t0)
	seedAction(store, "act-1", 7, domain.ActionSave, t0.Add(time.Minute))

	e := newTestEngine(store, reg, t0.Add(time.Hour))
	first, err := e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("first batch error = %v", err)
	}
	if first.Updated != 1 {
		t.Fatalf("first batch updated = %d, want 1", first.Updated)
	}
	rewardAfterFirst := *store.impressions["imp-1"].Reward

	second, err := e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("second batch error = %v", err)
	}
	if second.Processed != 0 || second.Updated != 0 {
		t.Errorf("second batch = %+v, want all zero", second)
	}
	if got := *store.impressions["imp-1"].Reward; got != rewardAfterFirst {
		t.Errorf("reward changed on replay: %v -> %v", rewardAfterFirst, got)
	}
	if snap := reg.Snapshots()[0]; snap.Count != 1 {
		t.Errorf("arm count after replay = %d, want 1", snap.Count)
	}

	// direct replay of the marker is a no-op, not an error
	ok, err := fakeActions{store}.MarkAttributed(context.Background(), "act-1", "imp-1", 1, t0)
	if err != nil {
		t.Fatalf("MarkAttributed error = %v", err)
	}
	if ok {
		t.Error("second MarkAttributed reported success")
	}
}

func TestAttributeRewards_WindowBoundaryInclusive(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")
	seedImpression(store, "imp-edge", 7, t0)
	seedAction(store, "act-edge", 7, domain.ActionClick, t0.Add(window))
	seedAction(store, "act-late", 7, domain.ActionClick, t0.Add(window+time.Second))

	e := newTestEngine(store, reg, t0.Add(window))
	res, err := e.AttributeRewards(context.Background(), window)
	if err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("updated = %d, want exactly the boundary action", res.Updated)
	}

	if store.actions["act-edge"].AttributedImpressionID == nil {
		t.Error("action at exactly +window must attribute")
	}
	if store.actions["act-late"].AttributedImpressionID != nil {
		t.Error("action past +window must not attribute")
	}
}

func TestAttributeRewards_LastTouchWins(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	seedImpression(store, "imp-old", 7, t0)
	seedImpression(store, "imp-new", 7, t0.Add(2*time.Hour))
	seedAction(store, "act-1", 7, domain.ActionClick, t0.Add(3*time.Hour))

	e := newTestEngine(store, reg, t0.Add(4*time.Hour))
	if _, err := e.AttributeRewards(context.Background(), 0); err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}

	got := store.actions["act-1"].AttributedImpressionID
	if got == nil || *got != "imp-new" {
		t.Errorf("attributed to %v, want the most recent impression", got)
	}
	if store.impressions["imp-old"].Reward != nil {
		t.Error("older impression must stay reward-free")
	}
}

func TestAttributeRewards_DecayHalfLife(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	seedImpression(store, "imp-1", 7, t0)
	seedAction(store, "act-1", 7, domain.ActionSave, t0.Add(36*time.Hour))

	e := newTestEngine(store, reg, t0.Add(37*time.Hour))
	if _, err := e.AttributeRewards(context.Background(), 0); err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}

	// save base 3, exactly one half-life elapsed
	got := *store.impressions["imp-1"].Reward
	if math.Abs(got-1.5) > 1e-9 {
		t.Errorf("decayed reward = %v, want 1.5", got)
	}
}

func TestAttributeRewards_SkipsBadRowsAndUnmatched(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	seedImpression(store, "imp-1", 7, t0)
	seedAction(store, "act-bad", 7, "purchase", t0.Add(time.Minute))
	seedAction(store, "act-orphan", 99, domain.ActionClick, t0.Add(time.Minute))

	e := newTestEngine(store, reg, t0.Add(time.Hour))
	res, err := e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}

	if res.Processed != 2 {
		t.Errorf("processed = %d, want 2", res.Processed)
	}
	if res.Errors != 1 {
		t.Errorf("errors = %d, want the malformed row only", res.Errors)
	}
	if res.Updated != 0 {
		t.Errorf("updated = %d, want 0", res.Updated)
	}
	if store.actions["act-orphan"].AttributedImpressionID != nil {
		t.Error("unmatched action must stay unattributed")
	}
}

func TestAttributeRewards_AfterIdentityMerge(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	// Anonymous browsing, then login, then a click on the same book.
	rc := domain.RequestContext{Mood: "curious", ObservedAt: t0}
	store.impressions["imp-anon"] = &domain.Impression{
		ID:        "imp-anon",
		SessionID: "s-1",
		BookID:    7,
		ArmID:     "semantic",
		Rank:      1,
		Context:   rc.Snapshot(),
		CreatedAt: t0,
	}
	store.actions["act-user"] = &domain.Action{
		ID:         "act-user",
		UserID:     "u-9",
		BookID:     7,
		ActionType: domain.ActionClick,
		CreatedAt:  t0.Add(time.Hour),
	}

	e := newTestEngine(store, reg, t0.Add(2*time.Hour))

	// Identities differ, so nothing matches yet.
	res, err := e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}
	if res.Updated != 0 {
		t.Fatalf("updated = %d before merge, want 0", res.Updated)
	}

	if err := store.MergeIdentity(context.Background(), "s-1", "u-9"); err != nil {
		t.Fatalf("MergeIdentity error = %v", err)
	}

	res, err = e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("updated = %d after merge, want 1", res.Updated)
	}
	act := store.actions["act-user"]
	if act.AttributedImpressionID == nil || *act.AttributedImpressionID != "imp-anon" {
		t.Fatal("post-merge action not attributed to the pre-merge impression")
	}
}

func TestAttributeRewards_MixedActionsAccumulate(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	seedImpression(store, "imp-1", 7, t0)
	seedAction(store, "act-click", 7, domain.ActionClick, t0.Add(time.Hour))
	seedAction(store, "act-save", 7, domain.ActionSave, t0.Add(5*time.Hour))
	seedAction(store, "act-unsave", 7, domain.ActionUnsave, t0.Add(9*time.Hour))

	e := newTestEngine(store, reg, t0.Add(10*time.Hour))
	res, err := e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}
	if res.Processed != 3 || res.Updated != 3 || res.Errors != 0 {
		t.Fatalf("result = %+v, want 3 processed, 3 updated", res)
	}

	lambda := banditDefaults().DecayLambda()
	want := 1.0*math.Exp(-lambda*1) +
		3.0*math.Exp(-lambda*5) -
		3.0*math.Exp(-lambda*9)

	imp := store.impressions["imp-1"]
	if imp.Reward == nil || math.Abs(*imp.Reward-want) > 1e-12 {
		t.Errorf("impression reward = %v, want %v", imp.Reward, want)
	}

	snap := reg.Snapshots()[0]
	if snap.Count != 3 {
		t.Errorf("arm count = %d, want 3", snap.Count)
	}
	if math.Abs(snap.CumReward-want) > 1e-12 {
		t.Errorf("arm cumReward = %v, want %v", snap.CumReward, want)
	}
}

func TestAttributeRewards_OldActionsStillEligible(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := bandit.NewRegistry(0, "semantic")

	seedImpression(store, "imp-1", 7, t0)
	seedAction(store, "act-1", 7, domain.ActionClick, t0.Add(time.Hour))

	// No batch ran for weeks. The action still qualifies: the window
	// constrains the impression relative to the action, not the action
	// relative to the batch.
	e := newTestEngine(store, reg, t0.Add(400*time.Hour))
	res, err := e.AttributeRewards(context.Background(), 0)
	if err != nil {
		t.Fatalf("AttributeRewards error = %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("updated = %d, want 1", res.Updated)
	}
	if store.actions["act-1"].AttributedImpressionID == nil {
		t.Fatal("late batch left a qualifying action unattributed")
	}
}
