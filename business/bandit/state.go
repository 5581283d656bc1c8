package bandit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ArmState is the serializable LinUCB state of one arm. A starts as the
// identity, so a fresh arm has confidenceBonus = ||x|| and predicted 0.
type ArmState struct {
	A           [FeatureDim][FeatureDim]float64 `json:"A"`
	B           [FeatureDim]float64             `json:"b"`
	Count       int64                           `json:"count"`
	CumReward   float64                         `json:"cum_reward"`
	CumRewardSq float64                         `json:"cum_reward_sq"`
	LastUpdated time.Time                       `json:"last_updated"`
}

func newArmState() *ArmState {
	return &ArmState{A: identityMatrix()}
}

// StateRepository persists per-arm state as one JSON row per arm.
type StateRepository interface {
	GetState(ctx context.Context, armID string) (*ArmState, error)
	SaveState(ctx context.Context, armID string, state *ArmState) error
}

// Arm pairs the state with its derived quantities. All mutation goes
// through the per-arm mutex; (A, b, theta) read-modify-write does not
// commute, so updates are single-writer per arm.
type Arm struct {
	ID string

	mu       sync.Mutex
	state    *ArmState
	theta    [FeatureDim]float64
	aInv     [FeatureDim][FeatureDim]float64
	degraded bool
}

// ArmSnapshot is the brief-lock copy selection reads. Value semantics: the
// selector never touches live arm state.
type ArmSnapshot struct {
	ID          string
	Theta       [FeatureDim]float64
	AInv        [FeatureDim][FeatureDim]float64
	Count       int64
	CumReward   float64
	CumRewardSq float64
	Degraded    bool
}

func newArm(id string) *Arm {
	return &Arm{
		ID:    id,
		state: newArmState(),
		aInv:  identityMatrix(),
	}
}

func (a *Arm) Snapshot() ArmSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ArmSnapshot{
		ID:          a.ID,
		Theta:       a.theta,
		AInv:        a.aInv,
		Count:       a.state.Count,
		CumReward:   a.state.CumReward,
		CumRewardSq: a.state.CumRewardSq,
		Degraded:    a.degraded,
	}
}

// restore replaces the arm's state wholesale (startup load, admin reset).
// Derived quantities are recomputed; an uninvertible restored A leaves the
// arm degraded rather than failing the load.
func (a *Arm) restore(st *ArmState, eps float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = st
	inv, err := invertWithRidge(&st.A, eps)
	if err != nil {
		a.degraded = true
		return fmt.Errorf("arm %s: %w", a.ID, err)
	}
	a.aInv = inv
	a.theta = matVecMul(&inv, st.B)
	a.degraded = false
	return nil
}

// Registry owns the set of arms. Arms are created at construction (or
// lazily on first reference) and live until an explicit reset.
type Registry struct {
	mu   sync.RWMutex
	arms map[string]*Arm
	eps  float64
}

func NewRegistry(eps float64, armIDs ...string) *Registry {
	if eps <= 0 {
		eps = defaultEpsilon
	}
	r := &Registry{
		arms: make(map[string]*Arm, len(armIDs)),
		eps:  eps,
	}
	for _, id := range armIDs {
		r.arms[id] = newArm(id)
	}
	return r
}

// Arm returns the named arm, creating it on first reference.
func (r *Registry) Arm(id string) *Arm {
	r.mu.RLock()
	a, ok := r.arms[id]
	r.mu.RUnlock()
	if ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok = r.arms[id]; ok {
		return a
	}
	a = newArm(id)
	r.arms[id] = a
	return a
}

// ArmIDs returns the registered arm ids in lexical order.
func (r *Registry) ArmIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.arms))
	for id := range r.arms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshots returns brief-lock copies of every arm, lexically ordered so
// selection tie-breaks are deterministic.
func (r *Registry) Snapshots() []ArmSnapshot {
	ids := r.ArmIDs()
	out := make([]ArmSnapshot, 0, len(ids))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		out = append(out, r.arms[id].Snapshot())
	}
	return out
}

// Reset reinitializes one arm (admin operation).
func (r *Registry) Reset(id string) {
	a := r.Arm(id)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = newArmState()
	a.theta = [FeatureDim]float64{}
	a.aInv = identityMatrix()
	a.degraded = false
}

// Load restores every registered arm from the repository. Missing rows keep
// the fresh identity state.
func (r *Registry) Load(ctx context.Context, repo StateRepository) error {
	if repo == nil {
		return nil
	}
	for _, id := range r.ArmIDs() {
		st, err := repo.GetState(ctx, id)
		if err != nil {
			return fmt.Errorf("load arm %s: %w", id, err)
		}
		if st == nil {
			continue
		}
		if err := r.Arm(id).restore(st, r.eps); err != nil {
			// degraded but loaded; the next successful update heals it
			continue
		}
	}
	return nil
}

// PersistArm writes one arm's current state through the repository.
func (r *Registry) PersistArm(ctx context.Context, repo StateRepository, id string) error {
	if repo == nil {
		return nil
	}
	a := r.Arm(id)
	a.mu.Lock()
	st := *a.state
	a.mu.Unlock()
	if err := repo.SaveState(ctx, id, &st); err != nil {
		return fmt.Errorf("persist arm %s: %w", id, err)
	}
	return nil
}

// Persist writes every arm's current state through the repository.
func (r *Registry) Persist(ctx context.Context, repo StateRepository) error {
	if repo == nil {
		return nil
	}
	for _, id := range r.ArmIDs() {
		a := r.Arm(id)
		a.mu.Lock()
		st := *a.state
		a.mu.Unlock()
		if err := repo.SaveState(ctx, id, &st); err != nil {
			return fmt.Errorf("persist arm %s: %w", id, err)
		}
	}
	return nil
}
