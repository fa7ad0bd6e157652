package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimerHeapOrdersByDateThenSequence(t *testing.T) {
	h := NewTimerHeap()

	var fired []string

	h.Set(1.0, func() { fired = append(fired, "a") })
	h.Set(1.0, func() { fired = append(fired, "b") })
	h.Set(0.5, func() { fired = append(fired, "c") })

	h.FireDue(1.0)

	require.Equal(t, []string{"c", "a", "b"}, fired)
}

func TestTimerHeapCancelPreventsFiring(t *testing.T) {
	h := NewTimerHeap()

	var fired bool

	handle := h.Set(1.0, func() { fired = true })
	h.Cancel(handle)

	h.FireDue(1.0)

	require.False(t, fired)
}

func TestTimerHeapPeekNextDate(t *testing.T) {
	h := NewTimerHeap()

	_, ok := h.PeekNextDate()
	require.False(t, ok)

	h.Set(2.5, func() {})

	next, ok := h.PeekNextDate()
	require.True(t, ok)
	require.Equal(t, SimTime(2.5), next)
}

func TestTimerHeapDoesNotFireFutureTimers(t *testing.T) {
	h := NewTimerHeap()

	var fired []string

	h.Set(5.0, func() { fired = append(fired, "late") })
	h.Set(1.0, func() { fired = append(fired, "early") })

	h.FireDue(1.0)

	require.Equal(t, []string{"early"}, fired)

	h.FireDue(5.0)

	require.Equal(t, []string{"early", "late"}, fired)
}
