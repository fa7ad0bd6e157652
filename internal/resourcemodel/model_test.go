package resourcemodel

import (
	"testing"

	"github.com/roasbeef/simkernel/internal/kernel"
	"github.com/stretchr/testify/require"
)

func TestCommActionTimingMatchesS1(t *testing.T) {
	m := New()

	action := m.NewCommAction(nil, nil, 1_000_000, 0)
	require.Equal(t, kernel.ActionStarted, action.State())

	next, ok := m.NextOccurringEvent(0)
	require.True(t, ok)
	require.InDelta(t, 2e-3, float64(next), 1e-9)
}

func TestSleepActionFinishesAfterExactDuration(t *testing.T) {
	m := New()

	action := m.NewSleepAction(nil, 5)

	finished := m.UpdateActionsState(3, 3)
	require.Empty(t, finished)

	finished = m.UpdateActionsState(5, 2)
	require.Len(t, finished, 1)
	require.Equal(t, kernel.ActionFinished, action.State())
}

func TestExecActionScalesWithCores(t *testing.T) {
	m := New()

	single := m.NewExecAction(nil, 1e9, 1)
	quad := m.NewExecAction(nil, 1e9, 4)

	singleNext, _ := m.NextOccurringEvent(0)
	_ = singleNext

	require.InDelta(t, 1.0, single.Remains(), 1e-9)
	require.InDelta(t, 0.25, quad.Remains(), 1e-9)
}

func TestUpdateActionsStateCompactsFinishedOut(t *testing.T) {
	m := New()

	short := m.NewSleepAction(nil, 1)
	long := m.NewSleepAction(nil, 10)

	finished := m.UpdateActionsState(1, 1)
	require.Len(t, finished, 1)
	require.Same(t, short, finished[0])

	next, ok := m.NextOccurringEvent(1)
	require.True(t, ok)
	require.InDelta(t, 10, float64(next), 1e-9)
	require.NotNil(t, long)
}

func TestCustomRateOverridesDefaultBandwidth(t *testing.T) {
	m := New()

	action := m.NewCommAction(nil, nil, 1_000_000, 1e6)

	require.InDelta(t, 1+1e-3, action.Remains(), 1e-9)
}
