package kernel

// RestartPolicy controls what happens to an actor when the host it runs on
// reboots (spec.md §4.G).
type RestartPolicy int

const (
	NoRestart RestartPolicy = iota
	AutoRestart
)

// Actor represents a simulated concurrent entity (spec.md §3). All mutable
// fields here are touched only from maestro context, except for the
// embedded fiber's own goroutine, which runs strictly one at a time with
// maestro by construction (fiber.resume/yield).
type Actor struct {
	id     ActorID
	name   string
	host   *Host
	engine *Engine

	fiber *fiber

	suspended       bool
	pendingRunnable bool
	wantsToDie      bool
	daemon          bool

	exception *KernelError

	activities map[ActivityID]*Activity
	waitingOn  []*Activity

	simcall      *Simcall
	lastObserver Observer

	onExit []func(normal bool)

	restartPolicy RestartPolicy
	restartCount  int

	refcount int32
	exited   bool
}

// newActor constructs an actor bound to host, wrapping body as its
// cooperative fiber. body is not started until the engine's first Resume.
func newActor(id ActorID, name string, host *Host, engine *Engine, body func(ctx *ActorContext)) *Actor {
	a := &Actor{
		id:         id,
		name:       name,
		host:       host,
		engine:     engine,
		activities: make(map[ActivityID]*Activity),
		refcount:   1,
	}

	a.fiber = newFiber(func(f *fiber) {
		body(&ActorContext{actor: a, fiber: f, engine: engine})
	}, func() bool { return a.wantsToDie })

	return a
}

func (a *Actor) ID() ActorID     { return a.id }
func (a *Actor) Name() string    { return a.name }
func (a *Actor) Host() *Host     { return a.host }
func (a *Actor) SetHost(h *Host) { a.host = h }

func (a *Actor) Suspended() bool { return a.suspended }
func (a *Actor) Suspend()        { a.suspended = true }
func (a *Actor) Resume()         { a.suspended = false }

// TakePendingRunnable clears and reports whether this actor was made
// runnable while suspended — the scheduler deferred the enqueue until
// resume() (spec.md §4.F/§4.G: a suspended actor isn't given a turn).
func (a *Actor) TakePendingRunnable() bool {
	v := a.pendingRunnable
	a.pendingRunnable = false

	return v
}

func (a *Actor) SetPendingRunnable() { a.pendingRunnable = true }

func (a *Actor) Daemon() bool     { return a.daemon }
func (a *Actor) SetDaemon(d bool) { a.daemon = d }

func (a *Actor) WantsToDie() bool { return a.wantsToDie }

// Kill sets wants_to_die; the actual unwind happens the next time this
// actor's fiber is resumed and reaches a yield point (spec.md §4.G).
func (a *Actor) Kill() { a.wantsToDie = true }

func (a *Actor) Exception() *KernelError     { return a.exception }
func (a *Actor) SetException(e *KernelError) { a.exception = e }
func (a *Actor) ClearException()             { a.exception = nil }

// AddActivity registers an activity as owned by this actor — canceled on
// death, suspended/resumed with it.
func (a *Actor) AddActivity(act *Activity) {
	a.activities[act.ID()] = act
	act.SetOwner(a.id)
}

func (a *Actor) RemoveActivity(id ActivityID) {
	delete(a.activities, id)
}

// CancelOwnedActivities disposes of every activity this actor still owns —
// invoked when the actor is killed (spec.md §5: "killing an actor cancels
// every activity in its owned set"). A Comm is special-cased: one side of
// a rendezvous dying mid-transfer is the peer's network/host failing, not
// a cancellation, so it runs through FailAction (letting
// DecideTerminalState pick DST_HOST_FAILURE/LINK_FAILURE) instead of the
// blanket Cancel every other activity kind gets.
func (a *Actor) CancelOwnedActivities() {
	for _, act := range a.activities {
		if act.Kind() == ActivityComm {
			act.FailAction()
		} else {
			act.Cancel()
		}
	}

	a.activities = make(map[ActivityID]*Activity)
}

// SetWaitingOn records the multiset of activities this actor is currently
// blocked on — non-empty only between issuing a wait/wait_any simcall and
// its completion (spec.md §3).
func (a *Actor) SetWaitingOn(activities []*Activity) { a.waitingOn = activities }
func (a *Actor) WaitingOn() []*Activity              { return a.waitingOn }
func (a *Actor) ClearWaitingOn()                     { a.waitingOn = nil }

// OnExit registers a callback run once, when the actor terminates, with an
// argument reporting whether termination was normal (function returned)
// versus a kill/failure unwind.
func (a *Actor) OnExit(cb func(normal bool)) {
	a.onExit = append(a.onExit, cb)
}

func (a *Actor) runExitCallbacks(normal bool) {
	for i := len(a.onExit) - 1; i >= 0; i-- {
		a.onExit[i](normal)
	}

	a.onExit = nil
}

func (a *Actor) Ref()            { a.refcount++ }
func (a *Actor) Unref() int32    { a.refcount--; return a.refcount }
func (a *Actor) Refcount() int32 { return a.refcount }

func (a *Actor) RestartPolicy() RestartPolicy     { return a.restartPolicy }
func (a *Actor) SetRestartPolicy(p RestartPolicy) { a.restartPolicy = p }
func (a *Actor) RestartCount() int                { return a.restartCount }

// LastObserver returns the Observer attached to this actor's most recently
// issued simcall, or nil if it has never issued one. Used by the
// model-checker session to answer actor-status queries (spec.md §6.3).
func (a *Actor) LastObserver() Observer { return a.lastObserver }

// resume transfers control into the actor's fiber. Returns true once the
// body function has returned or unwound via forceful_kill.
func (a *Actor) resume() bool {
	return a.fiber.resume()
}
