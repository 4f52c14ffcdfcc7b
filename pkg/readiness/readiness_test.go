package readiness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := New()
	require.Equal(t, StateUninitialized, tr.State())
	require.False(t, tr.Ready())

	var seen []State
	tr.OnChange(func(s State) { seen = append(seen, s) })

	require.NoError(t, tr.Transition(StateInitializing))
	require.NoError(t, tr.Transition(StateReady))
	require.True(t, tr.Ready())
	require.NoError(t, tr.Transition(StateStopping))
	require.False(t, tr.Ready())
	require.Equal(t, []State{StateInitializing, StateReady, StateStopping}, seen)
}

func TestTracker_RejectsInvalidMoves(t *testing.T) {
	cases := []struct {
		name string
		path []State
		next State
	}{
		{name: "skip initializing", next: StateReady},
		{name: "ready twice", path: []State{StateInitializing, StateReady}, next: StateReady},
		{name: "restart after stop", path: []State{StateStopping}, next: StateInitializing},
		{name: "back to uninitialized", path: []State{StateInitializing}, next: StateUninitialized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := New()
			for _, s := range tc.path {
				require.NoError(t, tr.Transition(s))
			}
			before := tr.State()
			require.Error(t, tr.Transition(tc.next))
			require.Equal(t, before, tr.State())
		})
	}
}

func TestTracker_ZeroValue(t *testing.T) {
	var tr Tracker
	require.Equal(t, StateUninitialized, tr.State())
	require.NoError(t, tr.Transition(StateInitializing))
}
