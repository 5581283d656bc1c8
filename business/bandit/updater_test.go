package bandit

import (
	"math"
	"sync"
	"testing"

	"shelfScout/domain"
)

func TestApplyReward_AccumulatesState(t *testing.T) {
	reg := NewRegistry(defaultEpsilon, "linear")
	x := EncodeContext(domain.RequestContext{Mood: "happy", Goal: "laugh"})

	if err := reg.ApplyReward("linear", x, 2.0); err != nil {
		t.Fatalf("ApplyReward error = %v", err)
	}
	if err := reg.ApplyReward("linear", x, 1.0); err != nil {
		t.Fatalf("ApplyReward error = %v", err)
	}

	snap := reg.Arm("linear").Snapshot()
	if snap.Count != 2 {
		t.Errorf("count = %d, want 2", snap.Count)
	}
	if math.Abs(snap.CumReward-3.0) > 1e-12 {
		t.Errorf("cumulative reward = %v, want 3", snap.CumReward)
	}
	if math.Abs(snap.CumRewardSq-5.0) > 1e-12 {
		t.Errorf("cumulative reward sq = %v, want 5", snap.CumRewardSq)
	}
	if snap.Degraded {
		t.Error("arm degraded after healthy updates")
	}

	// theta should now predict in the direction of the reward
	if p := dot(snap.Theta, x); p <= 0 {
		t.Errorf("theta·x = %v, want > 0", p)
	}
}

// N concurrent ApplyReward calls on one arm, serialized by the per-arm
// lock, must land on the same totals as N sequential calls.
func TestApplyReward_ConcurrentEqualsSequential(t *testing.T) {
	const n = 64

	x := EncodeContext(domain.RequestContext{Mood: "curious"})

	sequential := NewRegistry(defaultEpsilon, "linear")
	for i := 0; i < n; i++ {
		if err := sequential.ApplyReward("linear", x, 1.5); err != nil {
			t.Fatalf("sequential ApplyReward error = %v", err)
		}
	}

	concurrent := NewRegistry(defaultEpsilon, "linear")
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := concurrent.ApplyReward("linear", x, 1.5); err != nil {
				t.Errorf("concurrent ApplyReward error = %v", err)
			}
		}()
	}
	wg.Wait()

	seq := sequential.Arm("linear").Snapshot()
	con := concurrent.Arm("linear").Snapshot()

	if seq.Count != con.Count {
		t.Errorf("count: concurrent %d, sequential %d", con.Count, seq.Count)
	}
	if math.Abs(seq.CumReward-con.CumReward) > 1e-9 {
		t.Errorf("cumulative reward: concurrent %v, sequential %v", con.CumReward, seq.CumReward)
	}
	for i := range FeatureDim {
		if math.Abs(seq.Theta[i]-con.Theta[i]) > 1e-6 {
			t.Fatalf("theta[%d]: concurrent %v, sequential %v", i, con.Theta[i], seq.Theta[i])
		}
	}
}

func TestRegistry_ResetReinitializes(t *testing.T) {
	reg := NewRegistry(defaultEpsilon, "linear")
	x := EncodeContext(domain.RequestContext{Mood: "sad"})
	if err := reg.ApplyReward("linear", x, 4.0); err != nil {
		t.Fatalf("ApplyReward error = %v", err)
	}

	reg.Reset("linear")
	snap := reg.Arm("linear").Snapshot()
	if snap.Count != 0 || snap.CumReward != 0 {
		t.Errorf("after reset: count=%d cum=%v, want zeros", snap.Count, snap.CumReward)
	}
	if got := dot(snap.Theta, x); got != 0 {
		t.Errorf("theta·x = %v after reset, want 0", got)
	}
}

func TestRegistry_LazyArmCreation(t *testing.T) {
	reg := NewRegistry(defaultEpsilon)
	a := reg.Arm("adhoc")
	if a == nil {
		t.Fatal("lazy arm creation returned nil")
	}
	if got := reg.Arm("adhoc"); got != a {
		t.Fatal("second lookup returned a different arm")
	}
}
