package kernel

import "container/heap"

// SimTime is simulated time, in seconds, since the start of the run.
type SimTime float64

// TimerHandle identifies a scheduled timer for cancellation. It is opaque to
// callers.
type TimerHandle uint64

// timerEntry is one scheduled callback. Entries compare first by Date, then
// by insertion sequence, which is what gives fire_due its deterministic
// same-date ordering (spec.md §4.B).
type timerEntry struct {
	date     SimTime
	seq      uint64
	handle   TimerHandle
	callback func()
	canceled bool
	index    int // position in the heap slice, maintained by container/heap
}

// timerQueue implements heap.Interface over a slice of *timerEntry, ordered
// by (date, seq) ascending.
type timerQueue []*timerEntry

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].date != q[j].date {
		return q[i].date < q[j].date
	}

	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	entry := x.(*timerEntry)
	entry.index = len(*q)
	*q = append(*q, entry)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return entry
}

// TimerHeap is an ordered map from (date, insertion sequence) to callback,
// implementing spec.md §4.B. Duplicate dates are permitted; ties break by
// insertion order. It is not safe for concurrent use — like every kernel
// data structure, it is mutated only from maestro.
type TimerHeap struct {
	queue   timerQueue
	bySeq   map[TimerHandle]*timerEntry
	nextSeq uint64
	counter idCounter
}

// NewTimerHeap creates an empty timer heap.
func NewTimerHeap() *TimerHeap {
	return &TimerHeap{
		bySeq: make(map[TimerHandle]*timerEntry),
	}
}

// Set inserts a new timer firing at date, and returns a handle that Cancel
// can later use to remove it. O(log n).
func (h *TimerHeap) Set(date SimTime, callback func()) TimerHandle {
	seq := h.counter.alloc()
	handle := TimerHandle(seq)

	entry := &timerEntry{
		date:     date,
		seq:      seq,
		handle:   handle,
		callback: callback,
	}

	heap.Push(&h.queue, entry)
	h.bySeq[handle] = entry

	log.Tracef("Timer set: handle=%d date=%v", handle, date)

	return handle
}

// Cancel removes a previously scheduled timer. It is idempotent: canceling a
// handle that already fired, or was already canceled, is a no-op. O(1): the
// entry is only flagged, and is lazily removed on a later pop rather than
// re-heapified immediately.
func (h *TimerHeap) Cancel(handle TimerHandle) {
	entry, ok := h.bySeq[handle]
	if !ok || entry.canceled {
		return
	}

	entry.canceled = true
	delete(h.bySeq, handle)
}

// PeekNextDate returns the date of the earliest still-pending (non-canceled)
// timer, if any. O(1) amortized: canceled entries at the top are popped and
// discarded first.
func (h *TimerHeap) PeekNextDate() (SimTime, bool) {
	h.dropCanceledHead()

	if h.queue.Len() == 0 {
		return 0, false
	}

	return h.queue[0].date, true
}

// dropCanceledHead pops and discards canceled entries sitting at the top of
// the heap so Peek/FireDue never observe stale entries.
func (h *TimerHeap) dropCanceledHead() {
	for h.queue.Len() > 0 && h.queue[0].canceled {
		heap.Pop(&h.queue)
	}
}

// FireDue pops every entry with date <= now, in ascending (date, seq) order,
// and invokes its callback. Callbacks may schedule new timers; a new timer
// whose date is also <= now is drained within this same call (tail-recursive
// draining, per spec.md §4.B), one whose date is in the future waits for a
// later round. Returns true iff at least one callback fired.
func (h *TimerHeap) FireDue(now SimTime) bool {
	fired := false

	for {
		h.dropCanceledHead()

		if h.queue.Len() == 0 || h.queue[0].date > now {
			break
		}

		entry := heap.Pop(&h.queue).(*timerEntry)
		delete(h.bySeq, entry.handle)

		if entry.canceled {
			continue
		}

		fired = true

		log.Tracef("Timer fired: handle=%d date=%v now=%v",
			entry.handle, entry.date, now)

		entry.callback()
	}

	return fired
}

// Len returns the number of entries still pending, including lazily
// canceled ones not yet popped.
func (h *TimerHeap) Len() int {
	return h.queue.Len()
}
