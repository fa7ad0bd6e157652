package kernel

import (
	"testing"

	"pgregory.net/rapid"
)

// TestTimerHeapNeverFiresCanceled is a property test for spec.md §8
// invariant 5: "the timer heap never fires a canceled entry." It generates
// a random sequence of Set/Cancel operations against random fire
// dates and checks that no canceled entry's callback ever runs.
func TestTimerHeapNeverFiresCanceled(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := NewTimerHeap()

		n := rapid.IntRange(1, 20).Draw(rt, "n")

		canceled := make(map[int]bool)
		fired := make(map[int]bool)
		dates := make([]SimTime, n)

		var handles []TimerHandle

		for i := 0; i < n; i++ {
			date := SimTime(rapid.Float64Range(0, 100).Draw(rt, "date"))
			dates[i] = date

			idx := i
			handle := h.Set(date, func() { fired[idx] = true })
			handles = append(handles, handle)

			if rapid.Bool().Draw(rt, "cancelNow") {
				h.Cancel(handle)
				canceled[idx] = true
			}
		}

		h.FireDue(100)

		for i := 0; i < n; i++ {
			if canceled[i] && fired[i] {
				rt.Fatalf("timer %d fired after being canceled (date=%v)", i, dates[i])
			}
		}
	})
}

// TestTimerHeapFiresInNonDecreasingDateOrder is a property test supporting
// spec.md §8 invariant 7 at the timer-ordering level: timers fire in
// non-decreasing date order, whatever order they were scheduled in. It
// checks dates only; same-date tie-breaks are covered by
// TestTimerHeapOrdersByDateThenSequence.
func TestTimerHeapFiresInNonDecreasingDateOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := NewTimerHeap()

		n := rapid.IntRange(1, 20).Draw(rt, "n")

		var fireOrder []SimTime

		for i := 0; i < n; i++ {
			date := SimTime(rapid.Float64Range(0, 100).Draw(rt, "date"))
			h.Set(date, func() { fireOrder = append(fireOrder, date) })
		}

		h.FireDue(100)

		for i := 1; i < len(fireOrder); i++ {
			if fireOrder[i] < fireOrder[i-1] {
				rt.Fatalf(
					"timers fired out of date order: %v before %v",
					fireOrder[i-1], fireOrder[i],
				)
			}
		}
	})
}
