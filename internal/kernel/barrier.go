package kernel

// BarrierAcq is the activity-shaped ticket acquire_async hands back.
type BarrierAcq struct {
	*Activity
	issuer ActorID
}

func (b *BarrierAcq) DecideTerminalState(current State) State {
	if current.Terminal() {
		return current
	}

	return StateDone
}

func (b *BarrierAcq) AfterFinish(a *Activity) {}

// Barrier implements spec.md §4.D's Barrier protocol: a reusable rendezvous
// of exactly expectedCount parties.
type Barrier struct {
	expectedCount int
	queue         []*BarrierAcq
	sched         scheduler
}

// NewBarrier creates a barrier expecting n parties per round.
func NewBarrier(sched scheduler, n int) *Barrier {
	return &Barrier{expectedCount: n, sched: sched}
}

func (b *Barrier) ExpectedCount() int { return b.expectedCount }
func (b *Barrier) Waiting() int       { return len(b.queue) }

// AcquireAsync implements acquire_async(issuer): queues until expectedCount
// parties have arrived, then grants every queued acquisition at once and
// rearms (empties the queue) for the next round.
func (b *Barrier) AcquireAsync(issuer ActorID) *BarrierAcq {
	acq := &BarrierAcq{issuer: issuer}
	acq.Activity = newActivity(b.sched.NewActivityID(), ActivityBarrierAcq, b.sched, acq)
	acq.SetOwner(issuer)

	if len(b.queue) < b.expectedCount-1 {
		b.queue = append(b.queue, acq)
		return acq
	}

	arrived := append(b.queue, acq)
	b.queue = nil

	for _, a := range arrived {
		a.Finish()
	}

	return acq
}
