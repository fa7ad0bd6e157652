package kernel

// CondvarAcq is the activity-shaped ticket acquire_async hands back. It
// carries the mutex the issuer held at the time of the wait, so the
// simcall wrapper driving cond.wait() can re-lock it once the acquisition
// is granted (spec.md §4.D: "the finishing protocol converts the wait into
// a mutex re-lock").
type CondvarAcq struct {
	*Activity
	issuer ActorID
	mutex  *Mutex
}

func (c *CondvarAcq) Mutex() *Mutex { return c.mutex }

func (c *CondvarAcq) DecideTerminalState(current State) State {
	if current.Terminal() {
		return current
	}

	return StateDone
}

func (c *CondvarAcq) AfterFinish(a *Activity) {}

// CondVar implements spec.md §4.D's condition variable protocol. It holds
// no reference to "the" mutex: each acquisition carries its own, since
// different waiters may (incorrectly but not impossibly, for a raw
// condvar) use different mutexes.
type CondVar struct {
	queue []*CondvarAcq
	sched scheduler
}

// NewCondVar creates an empty condition variable.
func NewCondVar(sched scheduler) *CondVar {
	return &CondVar{sched: sched}
}

func (c *CondVar) Waiting() int { return len(c.queue) }

// AcquireAsync implements acquire_async(issuer, mutex): requires the issuer
// to currently own mutex, unlocks it in this same kernel step, and enqueues
// a non-granted acquisition.
func (c *CondVar) AcquireAsync(issuer ActorID, mutex *Mutex) (*CondvarAcq, error) {
	if owner, ok := mutex.Owner(); !ok || owner != issuer {
		return nil, newKernelError(ErrAssertion, 0, "cond.wait called without holding the mutex")
	}

	if err := mutex.Unlock(issuer); err != nil {
		return nil, err
	}

	acq := &CondvarAcq{issuer: issuer, mutex: mutex}
	acq.Activity = newActivity(c.sched.NewActivityID(), ActivityCondvarAcq, c.sched, acq)
	acq.SetOwner(issuer)

	c.queue = append(c.queue, acq)

	return acq, nil
}

// Signal implements signal(): wakes the oldest waiter, if any.
func (c *CondVar) Signal() {
	if len(c.queue) == 0 {
		return
	}

	next := c.queue[0]
	c.queue = c.queue[1:]
	next.Finish()
}

// Broadcast implements broadcast(): wakes every waiter.
func (c *CondVar) Broadcast() {
	for len(c.queue) > 0 {
		c.Signal()
	}
}

// CancelWait removes a still-queued acquisition without granting it — used
// by the simcall wrapper when a timed wait's timer fires first (spec.md
// §4.D: "the acquisition cancels itself out of the queue").
func (c *CondVar) CancelWait(acq *CondvarAcq) {
	for i, a := range c.queue {
		if a == acq {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}
