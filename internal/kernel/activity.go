package kernel

import "fmt"

// ActivityKind tags the closed set of concrete activity variants (spec.md
// §9's tagged-variant strategy in place of the source's virtual
// inheritance over ActivityImpl).
type ActivityKind int

const (
	ActivityComm ActivityKind = iota
	ActivityMess
	ActivityExec
	ActivityIO
	ActivitySleep
	ActivityMutexAcq
	ActivitySemAcq
	ActivityBarrierAcq
	ActivityCondvarAcq
)

func (k ActivityKind) String() string {
	switch k {
	case ActivityComm:
		return "Comm"
	case ActivityMess:
		return "Mess"
	case ActivityExec:
		return "Exec"
	case ActivityIO:
		return "IO"
	case ActivitySleep:
		return "Sleep"
	case ActivityMutexAcq:
		return "MutexAcq"
	case ActivitySemAcq:
		return "SemAcq"
	case ActivityBarrierAcq:
		return "BarrierAcq"
	case ActivityCondvarAcq:
		return "CondvarAcq"
	default:
		return fmt.Sprintf("ActivityKind(%d)", int(k))
	}
}

// State is the activity lifecycle state machine shared by every variant
// (spec.md §4.C): INITED -> STARTING -> STARTED -> exactly one terminal
// state. Terminal states are absorbing.
type State int

const (
	StateInited State = iota
	StateStarting
	StateStarted
	StateDone
	StateCanceled
	StateFailed
	StateSrcHostFailure
	StateDstHostFailure
	StateTimeout
	StateSrcTimeout
	StateDstTimeout
	StateLinkFailure
)

// Terminal reports whether s is one of the absorbing end states.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateCanceled, StateFailed, StateSrcHostFailure,
		StateDstHostFailure, StateTimeout, StateSrcTimeout,
		StateDstTimeout, StateLinkFailure:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case StateInited:
		return "INITED"
	case StateStarting:
		return "STARTING"
	case StateStarted:
		return "STARTED"
	case StateDone:
		return "DONE"
	case StateCanceled:
		return "CANCELED"
	case StateFailed:
		return "FAILED"
	case StateSrcHostFailure:
		return "SRC_HOST_FAILURE"
	case StateDstHostFailure:
		return "DST_HOST_FAILURE"
	case StateTimeout:
		return "TIMEOUT"
	case StateSrcTimeout:
		return "SRC_TIMEOUT"
	case StateDstTimeout:
		return "DST_TIMEOUT"
	case StateLinkFailure:
		return "LINK_FAILURE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ActionState mirrors the resource model's action lifecycle (spec.md §6.1).
type ActionState int

const (
	ActionInited ActionState = iota
	ActionStarted
	ActionFailed
	ActionFinished
	ActionIgnored
)

// Action is the contract the kernel consumes from the external resource
// model (spec.md §6.1). The continuous physics behind it (max-min sharing,
// link/CPU/disk costs) are explicitly out of kernel scope.
type Action interface {
	State() ActionState
	Remains() float64
	StartTime() SimTime
	Cost() float64
	Cancel()
	Suspend()
	Resume()
}

// Observer is attached to a visible simcall so an external model checker
// can inspect and replay it (spec.md §4.H, §9). Concrete observers for each
// visible transition kind live in observer.go; Activity only needs the
// narrow slice of the contract that its own finish/test/wait machinery
// drives directly.
type Observer interface {
	Enabled() bool
	MaxConsider() int
	Prepare(timesConsidered int)
	Visible() bool

	// SetResult records the outcome of a test/test_any/wait_any call:
	// a bool for test, an index (or -1) for the *_any variants.
	SetResult(v any)

	// MarkTimedOut records that a wait_for/wait_any_for ended via its
	// timeout timer rather than activity completion.
	MarkTimedOut()
}

// ActivityBody supplies the behavior that differs per concrete activity
// kind: how to pick a terminal state from the action's outcome and host
// liveness, and what variant-specific cleanup finish() must run (releasing
// a mailbox slot, invoking a copy callback, re-locking a mutex...).
type ActivityBody interface {
	// DecideTerminalState is called once, from Finish, only when the
	// activity did not already have its terminal state forced (e.g. by
	// Cancel). It must return a Terminal() state.
	DecideTerminalState(current State) State

	// AfterFinish runs variant-specific side effects once the terminal
	// state has been decided but before the activity's action field is
	// cleared, so it may still inspect Activity.Action().
	AfterFinish(a *Activity)
}

// customOutcome lets a variant override the default state->error mapping
// used when delivering an activity's result to a waiter (spec.md §7's
// taxonomy is a default; concrete kinds like Exec/IO have their own
// FAILED/CANCELED nuances documented in spec.md §4.F).
type customOutcome interface {
	OutcomeError(id ActivityID, state State) *KernelError
}

// scheduler is the minimal surface Activity needs from the maestro loop:
// making a parked actor runnable again, delivering an exception, and
// access to the shared timer heap and clock. engine.go implements it.
type scheduler interface {
	MakeRunnable(id ActorID)
	SetException(id ActorID, err *KernelError)
	Timers() *TimerHeap
	Now() SimTime
	NewActivityID() ActivityID
}

// waitEntry is one registered waiter on an Activity: either a plain
// wait_for (group == nil) or a member of a wait_any_for fan-out.
type waitEntry struct {
	issuer        ActorID
	observer      Observer
	hasTimeout    bool
	timeoutHandle TimerHandle
	group         *waitAnyGroup
}

// Activity is the common state shared by every concrete activity kind
// (spec.md §3, §4.C). Concrete kinds embed *Activity and supply an
// ActivityBody; all lifecycle mutation happens through the methods here so
// the terminal-state and exactly-once-finish invariants live in one place.
type Activity struct {
	id    ActivityID
	kind  ActivityKind
	state State
	body  ActivityBody
	sched scheduler

	action Action

	waiters []waitEntry

	owner      ActorID
	hasOwner   bool
	detached   bool
	finished   bool
	startTime  SimTime
	hasStart   bool
	finishTime SimTime
	refcount   int32
}

// newActivity constructs the common core for a concrete activity. kind and
// body are fixed for the activity's lifetime.
func newActivity(id ActivityID, kind ActivityKind, sched scheduler, body ActivityBody) *Activity {
	return &Activity{
		id:       id,
		kind:     kind,
		state:    StateInited,
		body:     body,
		sched:    sched,
		refcount: 1,
	}
}

func (a *Activity) ID() ActivityID     { return a.id }
func (a *Activity) Kind() ActivityKind { return a.kind }
func (a *Activity) State() State       { return a.state }
func (a *Activity) Action() Action     { return a.action }

// SetAction binds the resource-model action backing this activity. Called
// by the concrete kind's start() once required parameters are known. If the
// action supports it, wires the back-pointer spec.md §6.1 calls for
// ("action.set_activity(activity_handle)") so the engine's main loop can
// find which activity to Finish when the action completes autonomously.
func (a *Activity) SetAction(action Action) {
	a.action = action

	if binder, ok := action.(ActionBinder); ok {
		binder.SetActivity(a)
	}
}

func (a *Activity) Owner() (ActorID, bool) { return a.owner, a.hasOwner }

// SetOwner records the actor this activity is charged against. Detached
// activities (spec.md Glossary) are never given an owner; they are kept
// alive solely by maestro's own reference until Finish releases it.
func (a *Activity) SetOwner(id ActorID) {
	a.owner = id
	a.hasOwner = true
}

func (a *Activity) SetDetached(detached bool) { a.detached = detached }
func (a *Activity) Detached() bool            { return a.detached }

// MarkStarted transitions INITED/STARTING -> STARTED and records the start
// time, once.
func (a *Activity) MarkStarted(state State) {
	if !a.hasStart {
		a.startTime = a.sched.Now()
		a.hasStart = true
	}

	a.state = state
}

func (a *Activity) StartTime() (SimTime, bool)  { return a.startTime, a.hasStart }
func (a *Activity) FinishTime() (SimTime, bool) { return a.finishTime, a.finished }

// Ref/Unref track the refcount spec.md's invariant #4 talks about: never
// zero while the activity sits in a non-terminal queue. Go's GC makes this
// unnecessary for memory safety, but tests assert on it directly to verify
// the detached-send no-leak property (spec.md §8, property 9).
func (a *Activity) Ref() { a.refcount++ }

func (a *Activity) Unref() int32 {
	a.refcount--
	return a.refcount
}

func (a *Activity) Refcount() int32 { return a.refcount }

// outcomeError maps a's current terminal state to the exception a waiter
// should receive, per spec.md §7. Concrete kinds that need a different
// mapping (Exec/IO distinguish FAILED/CANCELED from host-down) implement
// customOutcome on their ActivityBody.
func (a *Activity) outcomeError() *KernelError {
	if co, ok := a.body.(customOutcome); ok {
		return co.OutcomeError(a.id, a.state)
	}

	switch a.state {
	case StateDone:
		return nil
	case StateCanceled:
		return newKernelError(ErrCancel, a.id, "")
	case StateTimeout, StateSrcTimeout, StateDstTimeout:
		return newKernelError(ErrTimeout, a.id, "")
	case StateSrcHostFailure, StateDstHostFailure:
		return newKernelError(ErrHostFailure, a.id, "")
	case StateLinkFailure:
		return newKernelError(ErrNetworkFailure, a.id, "")
	case StateFailed:
		return newKernelError(ErrStorageFailure, a.id, "")
	default:
		return nil
	}
}

// deliverOutcome sets issuer's pending exception (if the terminal state
// maps to one) and makes it runnable again. It never touches an observer:
// callers decide what result value, if any, belongs on the simcall's
// observer, since that differs between wait_for (none), test (bool), and
// wait_any_for (index).
func (a *Activity) deliverOutcome(issuer ActorID) {
	if err := a.outcomeError(); err != nil {
		a.sched.SetException(issuer, err)
	}

	a.sched.MakeRunnable(issuer)
}

// WaitFor implements spec.md §4.C's wait_for: register issuer on the
// activity; if it is already terminal, deliver the result immediately;
// otherwise park issuer, optionally arming a timeout timer.
func (a *Activity) WaitFor(issuer ActorID, observer Observer, hasTimeout bool, timeout SimTime) {
	if a.state.Terminal() {
		a.deliverOutcome(issuer)
		return
	}

	entry := waitEntry{issuer: issuer, observer: observer}

	if hasTimeout {
		entry.hasTimeout = true
		entry.timeoutHandle = a.sched.Timers().Set(a.sched.Now()+timeout, func() {
			a.handleTimeout(issuer)
		})
	}

	a.waiters = append(a.waiters, entry)
}

// handleTimeout fires when a plain wait_for's timer expires before the
// activity completed. A no-op if the waiter was already delivered by
// Finish in the meantime (timer outlived the activity by one round).
func (a *Activity) handleTimeout(issuer ActorID) {
	idx := a.findWaiter(issuer)
	if idx < 0 {
		return
	}

	entry := a.waiters[idx]
	a.waiters = append(a.waiters[:idx], a.waiters[idx+1:]...)

	if entry.observer != nil {
		entry.observer.MarkTimedOut()
	}

	a.sched.SetException(issuer, newKernelError(ErrTimeout, a.id, ""))
	a.sched.MakeRunnable(issuer)
}

func (a *Activity) findWaiter(issuer ActorID) int {
	for i, w := range a.waiters {
		if w.group == nil && w.issuer == issuer {
			return i
		}
	}

	return -1
}

// removeGroupWaiter drops the waitEntry belonging to g, if any. Used when a
// sibling activity in a wait_any_for fan-out resolves first.
func (a *Activity) removeGroupWaiter(g *waitAnyGroup) {
	for i, w := range a.waiters {
		if w.group == g {
			a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
			return
		}
	}
}

// Test implements spec.md §4.C's test(): reports whether the activity is
// over, running Finish for cleanup if this is the first observer to notice,
// but never delivering an exception to the calling issuer (per spec.md §7:
// "test on a failed activity returns true and throws on the next wait").
func (a *Activity) Test(observer Observer) bool {
	if !a.state.Terminal() {
		if observer != nil {
			observer.SetResult(false)
		}

		return false
	}

	a.Finish()

	if observer != nil {
		observer.SetResult(true)
	}

	return true
}

// TestAny implements spec.md §4.C's test_any: a linear scan for the first
// terminal activity.
func TestAny(activities []*Activity, observer Observer) int {
	for i, act := range activities {
		if act.state.Terminal() {
			act.Finish()

			if observer != nil {
				observer.SetResult(i)
			}

			return i
		}
	}

	if observer != nil {
		observer.SetResult(-1)
	}

	return -1
}

// waitAnyGroup is the shared bookkeeping for one wait_any_for registration
// spanning several activities: a single timeout timer, and "resolved" so
// that whichever activity finishes first can unregister the issuer from
// every sibling (spec.md §4.C).
type waitAnyGroup struct {
	issuer        ActorID
	observer      Observer
	activities    []*Activity
	hasTimeout    bool
	timeoutHandle TimerHandle
	resolved      bool
}

// WaitAnyFor implements spec.md §4.C's wait_any_for.
func WaitAnyFor(sched scheduler, issuer ActorID, activities []*Activity, observer Observer, hasTimeout bool, timeout SimTime) {
	for i, act := range activities {
		if act.state.Terminal() {
			if observer != nil {
				observer.SetResult(i)
			}

			act.deliverOutcome(issuer)

			return
		}
	}

	group := &waitAnyGroup{issuer: issuer, observer: observer, activities: activities}

	if hasTimeout {
		group.hasTimeout = true
		group.timeoutHandle = sched.Timers().Set(sched.Now()+timeout, func() {
			group.fireTimeout(sched)
		})
	}

	for _, act := range activities {
		act.waiters = append(act.waiters, waitEntry{issuer: issuer, group: group})
	}
}

func (g *waitAnyGroup) fireTimeout(sched scheduler) {
	if g.resolved {
		return
	}

	g.resolved = true

	for _, act := range g.activities {
		act.removeGroupWaiter(g)
	}

	if g.observer != nil {
		g.observer.SetResult(-1)
		g.observer.MarkTimedOut()
	}

	sched.SetException(g.issuer, newKernelError(ErrTimeout, 0, ""))
	sched.MakeRunnable(g.issuer)
}

// Cancel implements spec.md §4.C's cancel(): forces CANCELED and runs
// Finish. A no-op on an already-terminal activity (spec.md §8's round-trip
// property: "cancel() on a DONE activity does nothing"). Removing the
// activity from its owner's activity set is the caller's responsibility
// (actor.go), since Activity deliberately has no back-reference to Actor.
func (a *Activity) Cancel() {
	if a.state.Terminal() {
		return
	}

	if a.action != nil {
		a.action.Cancel()
	}

	a.state = StateCanceled
	a.Finish()
}

// FailAction cancels the backing resource action (if any) and runs Finish
// without forcing a terminal state, so DecideTerminalState's usual
// src/dst-host-failure and link-failure checks apply (spec.md §4.E's
// finish() state-selection order). Unlike Cancel, which always forces
// CANCELED, this is what an activity whose owning actor died mid-flight
// needs: a Comm half-matched to a now-dead peer must resolve to
// DST_HOST_FAILURE/LINK_FAILURE, not a flat cancellation.
func (a *Activity) FailAction() {
	if a.state.Terminal() {
		return
	}

	if a.action != nil {
		a.action.Cancel()
	}

	a.Finish()
}

// Suspend/Resume propagate to the backing resource action, if any. Pure
// synchronization activities (mutex/sem/barrier/condvar acquisitions) have
// no action and so are unaffected until the next scheduler round notices
// the owning actor is suspended (spec.md §4.C).
func (a *Activity) Suspend() {
	if a.action != nil {
		a.action.Suspend()
	}
}

func (a *Activity) Resume() {
	if a.action != nil {
		a.action.Resume()
	}
}

// Finish implements spec.md §4.C's finish(): decide the terminal state
// (unless one was already forced, e.g. by Cancel), run variant-specific
// cleanup, release the action, and answer every waiter exactly once.
// Idempotent — a second call is a no-op, which is what gives every
// activity exactly one Finish (spec.md §8, property 1).
func (a *Activity) Finish() {
	if a.finished {
		return
	}

	a.finished = true

	if !a.state.Terminal() {
		a.state = a.body.DecideTerminalState(a.state)
	}

	a.finishTime = a.sched.Now()

	a.body.AfterFinish(a)
	a.action = nil

	waiters := a.waiters
	a.waiters = nil

	for _, w := range waiters {
		if w.hasTimeout {
			a.sched.Timers().Cancel(w.timeoutHandle)
		}

		if w.group != nil {
			if w.group.resolved {
				continue
			}

			w.group.resolved = true

			if w.group.hasTimeout {
				a.sched.Timers().Cancel(w.group.timeoutHandle)
			}

			idx := -1

			for i, sib := range w.group.activities {
				if sib == a {
					idx = i
					continue
				}

				sib.removeGroupWaiter(w.group)
			}

			if w.group.observer != nil {
				w.group.observer.SetResult(idx)
			}

			a.deliverOutcome(w.issuer)

			continue
		}

		a.deliverOutcome(w.issuer)
	}

	log.Tracef("Activity %d (%s) finished: state=%s", a.id, a.kind, a.state)
}
