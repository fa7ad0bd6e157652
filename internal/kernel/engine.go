package kernel

import "sort"

// joinWaiter is one actor parked on another actor's termination via Join.
type joinWaiter struct {
	issuer   ActorID
	observer Observer
}

// Engine is the single process-wide maestro (spec.md §9: "the kernel owns
// a single Engine value constructed by the entry point; every internal
// function takes an explicit reference to it"). It holds every registry
// the scheduling loop needs: actors, hosts, mailboxes, message queues, the
// timer heap, and the signal bus. It implements the scheduler interface
// activity.go's machinery is written against.
type Engine struct {
	actors   map[ActorID]*Actor
	actorIDs idCounter

	activityIDs idCounter

	hosts map[string]*Host

	mailboxes  map[string]*Mailbox
	mailboxIDs idCounter

	queues map[string]*MessageQueue

	runnable   []ActorID
	inRunnable map[ActorID]bool

	now    SimTime
	timers *TimerHeap
	model  ResourceModel

	signals *SignalBus

	joins map[ActorID][]joinWaiter
}

// NewEngine constructs an empty engine driven by model.
func NewEngine(model ResourceModel) *Engine {
	return &Engine{
		actors:     make(map[ActorID]*Actor),
		hosts:      make(map[string]*Host),
		mailboxes:  make(map[string]*Mailbox),
		queues:     make(map[string]*MessageQueue),
		inRunnable: make(map[ActorID]bool),
		timers:     NewTimerHeap(),
		model:      model,
		signals:    NewSignalBus(),
		joins:      make(map[ActorID][]joinWaiter),
	}
}

// --- scheduler interface ---

// MakeRunnable queues id for its next turn, unless it is currently
// suspended — a suspended actor is given no turns at all until
// ResumeActor flushes the deferred wake (spec.md §4.F's sleep
// re-suspension, generalized to every wake source).
func (e *Engine) MakeRunnable(id ActorID) {
	a, ok := e.actors[id]
	if !ok {
		return
	}

	if a.Suspended() {
		a.SetPendingRunnable()
		return
	}

	e.enqueueRunnable(id)
}

func (e *Engine) enqueueRunnable(id ActorID) {
	if e.inRunnable[id] {
		return
	}

	if _, ok := e.actors[id]; !ok {
		return
	}

	e.inRunnable[id] = true
	e.runnable = append(e.runnable, id)
}

func (e *Engine) SetException(id ActorID, err *KernelError) {
	if a, ok := e.actors[id]; ok {
		a.SetException(err)
	}
}

func (e *Engine) Timers() *TimerHeap        { return e.timers }
func (e *Engine) Now() SimTime              { return e.now }
func (e *Engine) NewActivityID() ActivityID { return ActivityID(e.activityIDs.alloc()) }
func (e *Engine) Signals() *SignalBus       { return e.signals }
func (e *Engine) Model() ResourceModel      { return e.model }

// --- registries ---

// NewHost registers and returns a new, initially-up host.
func (e *Engine) NewHost(name string) *Host {
	h := NewHost(name)
	e.hosts[name] = h

	return h
}

func (e *Engine) Host(name string) (*Host, bool) {
	h, ok := e.hosts[name]
	return h, ok
}

// SetHostUp flips a host's liveness and fires SignalHostStateChanged. The
// physics of which in-flight actions consequently fail is the resource
// model's concern (spec.md §1); the kernel only republishes the fact.
func (e *Engine) SetHostUp(name string, up bool) {
	h, ok := e.hosts[name]
	if !ok {
		return
	}

	h.SetUp(up)
	e.signals.Fire(Signal{Kind: SignalHostStateChanged, HostName: name, Up: up})

	if up {
		e.restartAutoRestartActors(h)
	}
}

// ActorHost resolves an actor's current host — the lookup function Comm
// and Sleep need to bind src/dst hosts from actor ids.
func (e *Engine) ActorHost(id ActorID) (*Host, bool) {
	a, ok := e.actors[id]
	if !ok || a.Host() == nil {
		return nil, false
	}

	return a.Host(), true
}

// Mailbox returns (creating if necessary) the named mailbox.
func (e *Engine) Mailbox(name string) *Mailbox {
	if mb, ok := e.mailboxes[name]; ok {
		return mb
	}

	mb := NewMailbox(MailboxID(e.mailboxIDs.alloc()), name)
	e.mailboxes[name] = mb

	return mb
}

// Mailboxes returns every mailbox created so far, keyed by name. Callers
// must not mutate the returned map.
func (e *Engine) Mailboxes() map[string]*Mailbox { return e.mailboxes }

// MessageQueue returns (creating if necessary) the named message queue.
func (e *Engine) MessageQueue(name string) *MessageQueue {
	if q, ok := e.queues[name]; ok {
		return q
	}

	q := NewMessageQueue(MailboxID(e.mailboxIDs.alloc()), name)
	e.queues[name] = q

	return q
}

// --- actor lifecycle ---

// Spawn implements spec.md §4.G's spawn: allocates an id, registers the
// actor on host, and places it in the runnable queue.
func (e *Engine) Spawn(name string, host *Host, body func(ctx *ActorContext)) *Actor {
	id := ActorID(e.actorIDs.alloc())
	a := newActor(id, name, host, e, body)
	e.actors[id] = a

	e.signals.Fire(Signal{Kind: SignalActorCreated, Actor: id})
	e.MakeRunnable(id)

	return a
}

func (e *Engine) Actor(id ActorID) (*Actor, bool) {
	a, ok := e.actors[id]
	return a, ok
}

// Kill implements spec.md §4.G's kill: sets wants_to_die and, since a
// blocked actor won't otherwise be scheduled again on its own, immediately
// cancels its owned activities — which wakes it via the normal
// Activity.Finish -> deliverOutcome -> MakeRunnable path. The kill
// condition itself is only raised inside the actor's own fiber, the next
// time it is resumed (spec.md §4.A).
func (e *Engine) Kill(id ActorID) {
	a, ok := e.actors[id]
	if !ok || a.exited {
		return
	}

	a.Kill()
	a.CancelOwnedActivities()

	// A killed actor must unwind even if it was suspended — kill always
	// wins, so this bypasses MakeRunnable's suspension gate rather than
	// leaving the wake deferred until some later, possibly nonexistent,
	// ResumeActor call.
	e.enqueueRunnable(id)
}

// Suspend/ResumeActor implement spec.md §4.G's suspend/resume signals,
// propagating to every activity the actor currently owns.
func (e *Engine) SuspendActor(id ActorID) {
	a, ok := e.actors[id]
	if !ok {
		return
	}

	a.Suspend()

	for _, act := range a.activities {
		act.Suspend()
	}

	e.signals.Fire(Signal{Kind: SignalActorSuspended, Actor: id})
}

func (e *Engine) ResumeActor(id ActorID) {
	a, ok := e.actors[id]
	if !ok {
		return
	}

	a.Resume()

	for _, act := range a.activities {
		act.Resume()
	}

	e.signals.Fire(Signal{Kind: SignalActorResumed, Actor: id})

	if a.TakePendingRunnable() {
		e.enqueueRunnable(id)
	}
}

// joinActor implements the Join simcall: park issuer until target has
// terminated, or resolve immediately if it already has.
func (e *Engine) joinActor(issuer, target ActorID, observer Observer) {
	if _, alive := e.actors[target]; !alive {
		e.MakeRunnable(issuer)
		return
	}

	e.joins[target] = append(e.joins[target], joinWaiter{issuer: issuer, observer: observer})
}

// finalizeActor runs once an actor's fiber reports termination (body
// returned, or it unwound via forceful_kill): cancels anything it still
// owns, runs its on-exit callbacks, wakes any joiners, and de-registers it.
func (e *Engine) finalizeActor(a *Actor) {
	if a.exited {
		return
	}

	a.exited = true

	normal := !a.wantsToDie

	a.CancelOwnedActivities()
	a.runExitCallbacks(normal)

	e.signals.Fire(Signal{Kind: SignalActorDestroyed, Actor: a.id})

	for _, j := range e.joins[a.id] {
		if j.observer != nil {
			j.observer.SetResult(true)
		}

		e.MakeRunnable(j.issuer)
	}

	delete(e.joins, a.id)
	delete(e.actors, a.id)
}

// restartAutoRestartActors is the hook SetHostUp calls when h comes back
// up. It does nothing: no actor is re-spawned, whatever its RestartPolicy,
// and no actor's RestartCount is ever incremented. The engine does not keep
// actor bodies past their death, so it has nothing to re-spawn from.
func (e *Engine) restartAutoRestartActors(h *Host) {}

// Step resumes the next runnable actor and returns its pending simcall
// without dispatching it, so an external driver (the model-checker session
// in package mc) gets a chance to inspect/prepare the attached Observer
// before the kernel-mode work actually runs. ok is false once nothing is
// runnable; the caller should then fall back to advancing the clock itself
// via AdvanceTime.
func (e *Engine) Step() (actorID ActorID, sc *Simcall, ok bool) {
	for len(e.runnable) > 0 {
		id := e.runnable[0]
		e.runnable = e.runnable[1:]
		delete(e.inRunnable, id)

		a, found := e.actors[id]
		if !found {
			continue
		}

		terminated := a.resume()
		if terminated {
			e.finalizeActor(a)
			continue
		}

		sc := a.simcall
		a.simcall = nil

		if sc == nil {
			continue
		}

		a.lastObserver = sc.Observer

		return id, sc, true
	}

	return 0, nil, false
}

// Dispatch runs a simcall returned by Step and re-queues its issuer if the
// simcall resolved within the same round (RUN_ANSWERED).
func (e *Engine) Dispatch(id ActorID, sc *Simcall) {
	sc.Fn()

	if sc.Kind == SimcallRunAnswered {
		e.MakeRunnable(id)
	}
}

// HasRunnable reports whether Step would find an actor to resume.
func (e *Engine) HasRunnable() bool { return len(e.runnable) > 0 }

// AdvanceTime moves the clock to the next pending timer or resource-model
// event and finishes whatever that makes terminal, exactly like Run's
// between-rounds step. ok is false once neither source has anything
// pending, meaning the simulation has quiesced.
func (e *Engine) AdvanceTime() (ok bool) {
	tRes, hasRes := e.model.NextOccurringEvent(e.now)
	tTimer, hasTimer := e.timers.PeekNextDate()

	if !hasRes && !hasTimer {
		return false
	}

	next := tTimer

	switch {
	case hasRes && hasTimer:
		if tRes < tTimer {
			next = tRes
		}
	case hasRes:
		next = tRes
	}

	delta := next - e.now
	e.now = next

	finished := e.model.UpdateActionsState(e.now, delta)
	e.timers.FireDue(e.now)

	for _, action := range finished {
		if lookup, ok := action.(ActivityLookup); ok {
			if act := lookup.BoundActivity(); act != nil {
				act.Finish()
			}
		}
	}

	return true
}

// ActorStatuses snapshots every live actor's enabled/max-considered figures
// for the §6.3 actor-status wire reply, using the Observer of each actor's
// most recently issued simcall (kept after that simcall completes); actors
// with none report Enabled=true, MaxConsidered=1 (a single, uncontested
// outcome).
func (e *Engine) ActorStatuses() []ActorStatus {
	statuses := make([]ActorStatus, 0, len(e.actors))

	for id, a := range e.actors {
		enabled, max := true, 1

		if obs := a.LastObserver(); obs != nil {
			enabled = obs.Enabled()
			max = obs.MaxConsider()
		}

		statuses = append(statuses, ActorStatus{PID: id, Enabled: enabled, MaxConsidered: max})
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].PID < statuses[j].PID })

	return statuses
}

// Run drives the maestro loop (spec.md §4.G):
//  1. Resume every runnable actor in FIFO order until it yields or dies.
//  2. Dispatch each yielded simcall.
//  3. When no actor is runnable, advance the clock to the next timer or
//     resource-model event, fire due timers, finish completed actions.
//  4. Repeat until neither is pending.
func (e *Engine) Run() {
	for {
		for {
			id, sc, ok := e.Step()
			if !ok {
				break
			}

			e.Dispatch(id, sc)
		}

		if !e.AdvanceTime() {
			return
		}
	}
}
