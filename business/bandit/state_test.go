package bandit

import (
	"context"
	"math"
	"testing"
)

type fakeStateRepo struct {
	rows map[string]*ArmState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{rows: map[string]*ArmState{}}
}

func (r *fakeStateRepo) GetState(ctx context.Context, armID string) (*ArmState, error) {
	st, ok := r.rows[armID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (r *fakeStateRepo) SaveState(ctx context.Context, armID string, state *ArmState) error {
	cp := *state
	r.rows[armID] = &cp
	return nil
}

func TestRegistry_PersistLoadRoundTrip(t *testing.T) {
	repo := newFakeStateRepo()

	src := NewRegistry(0, "linear", "popularity")
	var x [FeatureDim]float64
	x[0], x[3], x[17] = 1, 1, 0.5
	for i := 0; i < 5; i++ {
		if err := src.ApplyReward("linear", x, 1.5); err != nil {
			t.Fatalf("ApplyReward error = %v", err)
		}
	}

	if err := src.Persist(context.Background(), repo); err != nil {
		t.Fatalf("Persist error = %v", err)
	}

	dst := NewRegistry(0, "linear", "popularity")
	if err := dst.Load(context.Background(), repo); err != nil {
		t.Fatalf("Load error = %v", err)
	}

	want := src.Arm("linear").Snapshot()
	got := dst.Arm("linear").Snapshot()
	if got.Count != want.Count || got.CumReward != want.CumReward {
		t.Fatalf("restored counters = (%d, %v), want (%d, %v)",
			got.Count, got.CumReward, want.Count, want.CumReward)
	}
	for i := range FeatureDim {
		if math.Abs(got.Theta[i]-want.Theta[i]) > 1e-12 {
			t.Fatalf("theta[%d] = %v after restore, want %v", i, got.Theta[i], want.Theta[i])
		}
	}

	// Arms without a stored row stay at their fresh prior.
	fresh := dst.Arm("popularity").Snapshot()
	if fresh.Count != 0 {
		t.Fatalf("popularity count = %d, want fresh arm", fresh.Count)
	}
}

func TestRegistry_PersistArmWritesOneRow(t *testing.T) {
	repo := newFakeStateRepo()
	reg := NewRegistry(0, "linear", "semantic")

	var x [FeatureDim]float64
	x[1] = 1
	if err := reg.ApplyReward("semantic", x, 2); err != nil {
		t.Fatalf("ApplyReward error = %v", err)
	}

	if err := reg.PersistArm(context.Background(), repo, "semantic"); err != nil {
		t.Fatalf("PersistArm error = %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("rows persisted = %d, want 1", len(repo.rows))
	}
	if repo.rows["semantic"].Count != 1 {
		t.Fatalf("stored count = %d, want 1", repo.rows["semantic"].Count)
	}
}
