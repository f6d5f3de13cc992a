package scheduler

import (
	"sync"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

// State is the lifecycle state of one poll target.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StatePersisting  State = "persisting"
	StateFailed      State = "failed"
)

// TargetStatus is a point-in-time view of one target, for health reporting.
type TargetStatus struct {
	Source    string    `json:"source"`
	Symbol    string    `json:"symbol"`
	State     State     `json:"state"`
	Ticks     int64     `json:"ticks"`
	Failures  int64     `json:"failures"`
	LastTick  time.Time `json:"last_tick,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// target carries the mutable per-target state. Only the target's own loop
// transitions it, so a plain mutex around reads suffices.
type target struct {
	spec model.PollTarget

	mu              sync.Mutex
	state           State
	ticks           int64
	failures        int64
	persistFailures int64
	lastTick        time.Time
	lastErr         error
}

func newTarget(spec model.PollTarget) *target {
	return &target{spec: spec, state: StateIdle}
}

func (t *target) enter(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// complete finishes a successful tick and returns the target to Idle.
func (t *target) complete() {
	t.mu.Lock()
	t.state = StateIdle
	t.ticks++
	t.lastTick = time.Now().UTC()
	t.lastErr = nil
	t.mu.Unlock()
}

// fail records a failed tick. The target passes through Failed and rests in
// Idle until its next interval.
func (t *target) fail(err error) {
	t.mu.Lock()
	t.state = StateIdle
	t.ticks++
	t.failures++
	t.lastTick = time.Now().UTC()
	t.lastErr = err
	t.mu.Unlock()
}

// persistFailure bumps and returns the consecutive persist failure count.
func (t *target) persistFailure() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.persistFailures++
	return t.persistFailures
}

func (t *target) persistOK() {
	t.mu.Lock()
	t.persistFailures = 0
	t.mu.Unlock()
}

func (t *target) status() TargetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := TargetStatus{
		Source:   t.spec.Source,
		Symbol:   t.spec.Symbol,
		State:    t.state,
		Ticks:    t.ticks,
		Failures: t.failures,
		LastTick: t.lastTick,
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	return st
}
