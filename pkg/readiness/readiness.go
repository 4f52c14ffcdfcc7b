// Package readiness tracks whether the process is accepting traffic.
package readiness

import (
	"fmt"
	"sync"

	"go.uber.org/fx"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateStopping      State = "stopping"
)

var transitions = map[State][]State{
	StateUninitialized: {StateInitializing, StateStopping},
	StateInitializing:  {StateReady, StateStopping},
	StateReady:         {StateStopping},
}

// Tracker holds the current lifecycle state. The zero value is uninitialized.
type Tracker struct {
	mu       sync.RWMutex
	state    State
	onChange []func(State)
}

func New() *Tracker {
	return &Tracker{state: StateUninitialized}
}

func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state == "" {
		return StateUninitialized
	}
	return t.state
}

func (t *Tracker) Ready() bool {
	return t.State() == StateReady
}

// OnChange registers fn to run after every successful transition.
func (t *Tracker) OnChange(fn func(State)) {
	t.mu.Lock()
	t.onChange = append(t.onChange, fn)
	t.mu.Unlock()
}

// Transition moves to next, rejecting moves the lifecycle does not allow.
func (t *Tracker) Transition(next State) error {
	t.mu.Lock()
	cur := t.state
	if cur == "" {
		cur = StateUninitialized
	}
	allowed := false
	for _, s := range transitions[cur] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		t.mu.Unlock()
		return fmt.Errorf("invalid readiness transition %s -> %s", cur, next)
	}
	t.state = next
	hooks := append([]func(State){}, t.onChange...)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(next)
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
