package kernel

// SignalKind enumerates the observability hooks the scheduler fires from
// maestro context, per spec.md §4.G.
type SignalKind int

const (
	SignalActorCreated SignalKind = iota
	SignalActorSuspended
	SignalActorResumed
	SignalActorDestroyed
	SignalHostStateChanged
	SignalLinkStateChanged
	SignalActivityStarted
	SignalActivityCompleted
)

// Signal is the payload delivered to subscribers. Fields beyond Kind are
// filled in as relevant to that kind; zero values mean "not applicable".
type Signal struct {
	Kind     SignalKind
	Actor    ActorID
	Activity ActivityID
	HostName string
	Up       bool
}

// SignalBus is a single per-engine publish/subscribe hub: each signal kind
// holds a slice of callbacks, fired in subscription order, from maestro
// context only (spec.md §9 — "no dynamic dispatch across thread boundaries
// since there are none"). Subscribers must not yield: they run inline on
// maestro's own goroutine, between scheduling rounds.
type SignalBus struct {
	subscribers map[SignalKind][]func(Signal)
}

// NewSignalBus creates an empty signal bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subscribers: make(map[SignalKind][]func(Signal)),
	}
}

// Subscribe registers cb to run whenever a signal of kind is fired. Returns
// nothing removable by design: the teacher's receptionist-style registries
// are append-only for the lifetime of a system, and signal subscriptions
// follow the same convention for a simulation run.
func (b *SignalBus) Subscribe(kind SignalKind, cb func(Signal)) {
	b.subscribers[kind] = append(b.subscribers[kind], cb)
}

// Fire invokes every subscriber registered for sig.Kind, in registration
// order. Must only be called from maestro context.
func (b *SignalBus) Fire(sig Signal) {
	for _, cb := range b.subscribers[sig.Kind] {
		cb(sig)
	}
}
