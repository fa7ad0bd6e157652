package kernel

// SimcallKind distinguishes simcalls that resolve within the dispatching
// round from those that park the issuer (spec.md §3, §4.H).
type SimcallKind int

const (
	SimcallNone SimcallKind = iota
	SimcallRunAnswered
	SimcallRunBlocking
)

// Simcall is a kernel request attached to exactly one actor at a time
// (spec.md §3). User code assembles one inside ActorContext.issue and
// yields; maestro reads Kind and invokes Fn.
type Simcall struct {
	Kind     SimcallKind
	Issuer   ActorID
	Observer Observer
	Fn       func()
}

// ActorContext is the handle user-written actor bodies use to issue
// simcalls. It is the only way actor code touches kernel state; every
// method here parks the calling fiber at a single suspension point
// (spec.md §5: "suspension points exclusively at yield()").
type ActorContext struct {
	actor  *Actor
	fiber  *fiber
	engine *Engine
}

func (ctx *ActorContext) Actor() *Actor   { return ctx.actor }
func (ctx *ActorContext) Engine() *Engine { return ctx.engine }

// issue assembles a simcall, yields to maestro, and on resumption reports
// whatever exception was delivered to this actor while parked.
func (ctx *ActorContext) issue(kind SimcallKind, observer Observer, fn func()) error {
	ctx.actor.simcall = &Simcall{Kind: kind, Issuer: ctx.actor.id, Observer: observer, Fn: fn}
	ctx.fiber.yield()

	err := ctx.actor.exception
	ctx.actor.exception = nil

	if err != nil {
		return err
	}

	return nil
}

// --- Synchronization primitives (spec.md §6.2, §4.D) ---

// Lock blocks until mu is held by this actor (recursively counted if mu is
// recursive).
func (ctx *ActorContext) Lock(mu *Mutex) error {
	obs := newObserver(TransMutexWait, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		acq := mu.LockAsync(ctx.actor.id)
		ctx.actor.AddActivity(acq.Activity)
		acq.WaitFor(ctx.actor.id, obs, false, 0)
	})
}

// TryLock attempts to acquire mu without blocking.
func (ctx *ActorContext) TryLock(mu *Mutex) (bool, error) {
	obs := newObserver(TransMutexTryLock, ctx.actor.id, 1)

	var acquired bool

	err := ctx.issue(SimcallRunAnswered, obs, func() {
		_, acquired = mu.TryLock(ctx.actor.id)
	})

	return acquired, err
}

// Unlock releases mu, which this actor must currently hold.
func (ctx *ActorContext) Unlock(mu *Mutex) error {
	obs := newObserver(TransMutexUnlock, ctx.actor.id, 1)

	var unlockErr error

	err := ctx.issue(SimcallRunAnswered, obs, func() {
		unlockErr = mu.Unlock(ctx.actor.id)
	})

	if err != nil {
		return err
	}

	return unlockErr
}

// AcquireSemaphore blocks until sem has a permit available.
func (ctx *ActorContext) AcquireSemaphore(sem *Semaphore) error {
	obs := newObserver(TransSemWait, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		acq := sem.AcquireAsync(ctx.actor.id)
		ctx.actor.AddActivity(acq.Activity)
		acq.WaitFor(ctx.actor.id, obs, false, 0)
	})
}

// ReleaseSemaphore releases one permit.
func (ctx *ActorContext) ReleaseSemaphore(sem *Semaphore) error {
	obs := newObserver(TransSemUnlock, ctx.actor.id, 1)

	return ctx.issue(SimcallRunAnswered, obs, func() {
		sem.Release()
	})
}

// AwaitBarrier blocks until every expected party has arrived.
func (ctx *ActorContext) AwaitBarrier(b *Barrier) error {
	obs := newObserver(TransBarrierWait, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		acq := b.AcquireAsync(ctx.actor.id)
		ctx.actor.AddActivity(acq.Activity)
		acq.WaitFor(ctx.actor.id, obs, false, 0)
	})
}

// CondWait implements the two-phase cond.wait(mutex[, timeout]) protocol
// (spec.md §4.D, §6.2): unlock+enqueue happens inside acquire_async; once
// granted the mutex is re-locked before returning, converting the wait
// into a mutex re-lock as the design notes require. When hasTimeout is
// true and timeoutSec elapses first, the acquisition cancels itself out of
// cv's queue, the observer is marked timed out, and the mutex is still
// re-acquired before CondWait returns the timeout error — the mutex
// invariant holds on every return path, not just the signaled one.
func (ctx *ActorContext) CondWait(cv *CondVar, mu *Mutex, hasTimeout bool, timeoutSec SimTime) error {
	obs := newObserver(TransCondWait, ctx.actor.id, 1)

	var acqErr error
	var acq *CondvarAcq

	err := ctx.issue(SimcallRunBlocking, obs, func() {
		a, e := cv.AcquireAsync(ctx.actor.id, mu)
		if e != nil {
			acqErr = e
			ctx.engine.MakeRunnable(ctx.actor.id)
			return
		}

		acq = a
		ctx.actor.AddActivity(acq.Activity)
		acq.WaitFor(ctx.actor.id, obs, hasTimeout, timeoutSec)
	})

	if acqErr != nil {
		return acqErr
	}

	if err != nil {
		// The generic Activity timeout machinery (activity.go's
		// handleTimeout) only knows how to drop acq's own waiter
		// entry; it has no notion of cv's queue, so the now-expired
		// ticket would otherwise sit there forever and could still
		// be granted by a later Signal/Broadcast.
		cv.CancelWait(acq)
		ctx.actor.RemoveActivity(acq.ID())

		if lockErr := ctx.Lock(mu); lockErr != nil {
			return lockErr
		}

		return err
	}

	return ctx.Lock(mu)
}

// CondSignal wakes the oldest waiter on cv, if any.
func (ctx *ActorContext) CondSignal(cv *CondVar) error {
	obs := newObserver(TransCondSignal, ctx.actor.id, 1)

	return ctx.issue(SimcallRunAnswered, obs, func() {
		cv.Signal()
	})
}

// CondBroadcast wakes every waiter on cv.
func (ctx *ActorContext) CondBroadcast(cv *CondVar) error {
	obs := newObserver(TransCondBroadcast, ctx.actor.id, 1)

	return ctx.issue(SimcallRunAnswered, obs, func() {
		cv.Broadcast()
	})
}

// --- Communication (spec.md §6.2, §4.E) ---

// ISend implements spec.md §4.E's isend(): the non-blocking half of a send.
// It builds the comm, rendezvous-matches it against mb, starts it if ready,
// and returns the (possibly already matched) activity handle without
// waiting — callers combine it with Wait/WaitAny/Test themselves, the way
// spec.md's async primitives are meant to be composed.
func (ctx *ActorContext) ISend(mb *Mailbox, model ResourceModel, hosts func(ActorID) (*Host, bool), bytes int64, payload any) *Comm {
	var matched *Comm

	_ = ctx.issue(SimcallRunAnswered, newObserver(TransCommSend, ctx.actor.id, 1), func() {
		c := NewComm(ctx.engine, model, hosts, mb.Name(), CommSend)
		c.size = bytes
		c.payload = payload
		c.hasSrcActor = true
		c.srcActor = ctx.actor.id

		matched = mb.Isend(c)
		ctx.actor.AddActivity(matched.Activity)

		if matched.Ready() && matched.State() == StateStarting {
			matched.Start()
		}
	})

	return matched
}

// IRecv implements spec.md §4.E's irecv(): the non-blocking half of a
// receive, symmetric to ISend.
func (ctx *ActorContext) IRecv(mb *Mailbox, model ResourceModel, hosts func(ActorID) (*Host, bool)) *Comm {
	var matched *Comm

	_ = ctx.issue(SimcallRunAnswered, newObserver(TransCommRecv, ctx.actor.id, 1), func() {
		c := NewComm(ctx.engine, model, hosts, mb.Name(), CommReceive)
		c.hasDstActor = true
		c.dstActor = ctx.actor.id

		matched = mb.Irecv(c)
		ctx.actor.AddActivity(matched.Activity)

		if matched.Ready() && matched.State() == StateStarting {
			matched.Start()
		}
	})

	return matched
}

// Send blocks until bytes have been delivered through mailbox to a
// matching receiver. Implemented as ISend followed by Wait, matching
// spec.md's own description of the blocking variants as sugar over the
// async primitives.
func (ctx *ActorContext) Send(mb *Mailbox, model ResourceModel, hosts func(ActorID) (*Host, bool), bytes int64, payload any) error {
	c := ctx.ISend(mb, model, hosts, bytes, payload)

	return ctx.Wait(c.Activity, false, 0)
}

// DetachedSend fires a send that retains no handle to wait on (spec.md
// Glossary: "detached send"). Ownership of payload passes to the kernel:
// on a DONE match it is handed to the receiver via the normal copy path; on
// any failure path clean is invoked instead. The issuing actor never sees
// an exception from this activity either way (spec.md §7).
func (ctx *ActorContext) DetachedSend(mb *Mailbox, model ResourceModel, hosts func(ActorID) (*Host, bool), bytes int64, payload any, clean func(c *Comm)) {
	obs := newObserver(TransCommSend, ctx.actor.id, 1)
	obs.SetEnabled(false)

	_ = ctx.issue(SimcallRunAnswered, obs, func() {
		c := NewComm(ctx.engine, model, hosts, mb.Name(), CommSend)
		c.size = bytes
		c.payload = payload
		c.hasSrcActor = true
		c.srcActor = ctx.actor.id
		c.detached = true
		c.cleanFn = clean

		matched := mb.Isend(c)

		if matched.Ready() && matched.State() == StateStarting {
			matched.Start()
		}
	})
}

// Recv blocks until a matching send arrives on mailbox, returning its
// payload. Implemented as IRecv followed by Wait.
func (ctx *ActorContext) Recv(mb *Mailbox, model ResourceModel, hosts func(ActorID) (*Host, bool)) (any, error) {
	c := ctx.IRecv(mb, model, hosts)

	if err := ctx.Wait(c.Activity, false, 0); err != nil {
		return nil, err
	}

	return c.payload, nil
}

// --- Actor lifecycle (spec.md §6.2, §4.G) ---

// Sleep blocks the calling actor for duration seconds.
func (ctx *ActorContext) Sleep(model ResourceModel, duration SimTime) error {
	obs := newObserver(TransActorSleep, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		s := NewSleep(ctx.engine, model, ctx.actor.host, duration)
		s.WasSuspended = ctx.actor.Suspended()
		ctx.actor.AddActivity(s.Activity)
		s.Start()
		s.WaitFor(ctx.actor.id, obs, false, 0)
	})
}

// Join blocks until other has terminated.
func (ctx *ActorContext) Join(other ActorID) error {
	obs := newObserver(TransActorJoin, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		ctx.engine.joinActor(ctx.actor.id, other, obs)
	})
}

// Exit voluntarily terminates the calling actor, unwinding via
// forceful_kill so deferred cleanup runs (spec.md §4.A's stop()).
func (ctx *ActorContext) Exit() {
	obs := newObserver(TransActorExit, ctx.actor.id, 1)

	_ = ctx.issue(SimcallRunAnswered, obs, func() {
		ctx.actor.wantsToDie = true
	})

	ctx.fiber.stop()
}

// Exec blocks until flops of computation complete on the calling actor's
// host, optionally pinned to cores cores.
func (ctx *ActorContext) Exec(model ResourceModel, flops float64, cores int) error {
	obs := newObserver(TransCommWait, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		e := NewExec(ctx.engine, model, ctx.actor.host, flops, cores)
		ctx.actor.AddActivity(e.Activity)
		e.Start()
		e.WaitFor(ctx.actor.id, obs, false, 0)
	})
}

// IO blocks until a bytes-long disk operation of kind completes on disk,
// on the calling actor's host.
func (ctx *ActorContext) IO(model ResourceModel, disk string, bytes float64, kind IOType) error {
	obs := newObserver(TransCommWait, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		io := NewIO(ctx.engine, model, ctx.actor.host, disk, bytes, kind)
		ctx.actor.AddActivity(io.Activity)
		io.Start()
		io.WaitFor(ctx.actor.id, obs, false, 0)
	})
}

// --- Generic activity waiting (spec.md §6.2) ---

// Wait blocks until act reaches a terminal state, or timeoutSec elapses if
// hasTimeout is true.
func (ctx *ActorContext) Wait(act *Activity, hasTimeout bool, timeoutSec SimTime) error {
	obs := newObserver(TransCommWait, ctx.actor.id, 1)

	return ctx.issue(SimcallRunBlocking, obs, func() {
		act.WaitFor(ctx.actor.id, obs, hasTimeout, timeoutSec)
	})
}

// Test reports whether act is already over without blocking.
func (ctx *ActorContext) Test(act *Activity) (bool, error) {
	obs := newObserver(TransCommTest, ctx.actor.id, 1)

	var done bool

	err := ctx.issue(SimcallRunAnswered, obs, func() {
		done = act.Test(obs)
	})

	return done, err
}

// WaitAny blocks until the first of activities reaches a terminal state,
// or timeoutSec elapses, returning its index (or -1 on timeout).
func (ctx *ActorContext) WaitAny(activities []*Activity, hasTimeout bool, timeoutSec SimTime) (int, error) {
	obs := newObserver(TransWaitAny, ctx.actor.id, len(activities)+1)

	err := ctx.issue(SimcallRunBlocking, obs, func() {
		WaitAnyFor(ctx.engine, ctx.actor.id, activities, obs, hasTimeout, timeoutSec)
	})

	idx, _ := obs.Result().(int)

	return idx, err
}

// WaitAll blocks until every one of activities has reached a terminal
// state. Not a visible simcall in its own right (spec.md §4.H lists only
// wait_any among the visible wait variants) — implemented as a sequence of
// plain waits.
func (ctx *ActorContext) WaitAll(activities []*Activity) error {
	for _, act := range activities {
		if err := ctx.Wait(act, false, 0); err != nil {
			return err
		}
	}

	return nil
}

// TestAnyActivities reports the index of the first already-terminal
// activity in the set, or -1.
func (ctx *ActorContext) TestAnyActivities(activities []*Activity) (int, error) {
	obs := newObserver(TransTestAny, ctx.actor.id, len(activities)+1)

	var idx int

	err := ctx.issue(SimcallRunAnswered, obs, func() {
		idx = TestAny(activities, obs)
	})

	return idx, err
}

// Random implements the visible random-choice simcall (spec.md §4.H): the
// model checker forks exploration on each of the b-a+1 outcomes.
func (ctx *ActorContext) Random(a, b int) (int, error) {
	obs := newObserver(TransRandom, ctx.actor.id, b-a+1)

	var choice int

	err := ctx.issue(SimcallRunAnswered, obs, func() {
		if v, ok := obs.Prepared(); ok {
			choice = a + v
			return
		}

		choice = a
	})

	return choice, err
}
