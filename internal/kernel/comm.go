package kernel

// CommDirection distinguishes the two ends of a rendezvous.
type CommDirection int

const (
	CommSend CommDirection = iota
	CommReceive
)

// MatchFunc lets a send/receive pair agree on whether they rendezvous
// beyond plain opposite-direction FIFO order (spec.md §4.E matching
// predicate, e.g. matching on a tag embedded in match data).
type MatchFunc func(localData, peerData any, peer *Comm) bool

// Comm is the mailbox-based rendezvous activity (spec.md §3, §4.E) — the
// hard part: matching, copy semantics, detached sends, permanent
// receivers, failures.
type Comm struct {
	*Activity

	direction   CommDirection
	mailboxName string
	mailbox     *Mailbox
	inMailbox   bool

	size int64
	rate float64

	srcHost, dstHost         *Host
	srcActor, dstActor       ActorID
	hasSrcActor, hasDstActor bool

	detached  bool
	copyDone  bool
	payload   any
	matchData any

	matchFn    MatchFunc
	copyDataFn func(c *Comm)
	cleanFn    func(c *Comm)

	commID CommID

	model ResourceModel
	hosts func(ActorID) (*Host, bool)
}

var commIDs idCounter

// NewComm constructs one side of a rendezvous. dir is this side's own
// direction (the side that will be merged with, or wait for, the opposite
// direction). Callers fill in optional fields (MatchFn, CopyDataFn,
// CleanFn, Detached) before handing it to a Mailbox.
func NewComm(sched scheduler, model ResourceModel, hosts func(ActorID) (*Host, bool), mailboxName string, dir CommDirection) *Comm {
	c := &Comm{
		direction:   dir,
		mailboxName: mailboxName,
		model:       model,
		hosts:       hosts,
		commID:      CommID(commIDs.alloc()),
	}
	c.Activity = newActivity(sched.NewActivityID(), ActivityComm, sched, c)

	return c
}

func (c *Comm) CommID() CommID           { return c.commID }
func (c *Comm) Direction() CommDirection { return c.direction }

// Ready reports spec.md §3's Comm invariant: "a Comm is READY iff both
// src_actor and dst_actor are set".
func (c *Comm) Ready() bool { return c.hasSrcActor && c.hasDstActor }

// Start implements spec.md §4.E's start(): requires the comm to be in the
// READY state (StateStarting in our shared vocabulary, see activity.go),
// resolves hosts from the matched actors, obtains a NetworkAction from the
// resource model, and transitions to RUNNING (StateStarted). If the action
// is already failed (e.g. a partitioned network), it finishes immediately
// with LINK_FAILURE.
func (c *Comm) Start() {
	if c.State() != StateStarting {
		return
	}

	if c.srcHost == nil && c.hasSrcActor {
		if h, ok := c.hosts(c.srcActor); ok {
			c.srcHost = h
		}
	}

	if c.dstHost == nil && c.hasDstActor {
		if h, ok := c.hosts(c.dstActor); ok {
			c.dstHost = h
		}
	}

	action := c.model.NewCommAction(c.srcHost, c.dstHost, float64(c.size), c.rate)
	c.SetAction(action)

	c.MarkStarted(StateStarted)

	if owner, ok := c.Owner(); ok {
		_ = owner // suspension propagation is driven by the owning actor's Suspended() in engine.go
	}

	if action.State() == ActionFailed {
		c.Finish()
	}
}

// copyData implements spec.md §4.E's copy_data(): idempotent, invokes the
// user copy callback at most once.
func (c *Comm) copyData() {
	if c.copyDone {
		return
	}

	c.copyDone = true

	if c.copyDataFn != nil {
		c.copyDataFn(c)
	}
}

// DecideTerminalState implements spec.md §4.E's finish() state-selection
// order: SRC_HOST_FAILURE, then DST_HOST_FAILURE, then LINK_FAILURE, then
// DONE, else whatever non-RUNNING state already stuck.
func (c *Comm) DecideTerminalState(current State) State {
	if c.srcHost != nil && !c.srcHost.Up() {
		return StateSrcHostFailure
	}

	if c.dstHost != nil && !c.dstHost.Up() {
		return StateDstHostFailure
	}

	if c.Action() != nil && c.Action().State() == ActionFailed {
		return StateLinkFailure
	}

	if current == StateStarted {
		return StateDone
	}

	return current
}

// AfterFinish implements the rest of spec.md §4.E's finish(): detach from
// the mailbox, run copy_data on the DONE path (and the clean callback on
// any failure path for a detached send), and drop maestro's own reference
// last for detached activities.
func (c *Comm) AfterFinish(a *Activity) {
	if c.mailbox != nil && c.inMailbox {
		c.mailbox.remove(c)
		c.inMailbox = false
	}

	if a.State() == StateDone {
		c.copyData()
	} else if c.detached && c.cleanFn != nil {
		c.cleanFn(c)
	}

	if c.detached {
		a.Unref()
	}
}

// mergeInto folds incoming's side-specific fields into existing (the
// rendezvous winner already registered in the mailbox), implementing the
// "become the matched pair" step of spec.md §4.E's isend/irecv. The kernel
// represents both ends of a match as the same *Comm rather than the
// source's pair of shared_ptr-aliased objects, since Go references already
// give both callers a handle to one object.
func mergeInto(existing, incoming *Comm) {
	if incoming.direction == CommSend {
		existing.hasSrcActor = true
		existing.srcActor = incoming.srcActor
		existing.srcHost = incoming.srcHost

		if existing.size == 0 {
			existing.size = incoming.size
		}

		existing.payload = incoming.payload

		if existing.copyDataFn == nil {
			existing.copyDataFn = incoming.copyDataFn
		}

		if existing.cleanFn == nil {
			existing.cleanFn = incoming.cleanFn
		}

		if incoming.detached {
			existing.detached = true
		}
	} else {
		existing.hasDstActor = true
		existing.dstActor = incoming.dstActor
		existing.dstHost = incoming.dstHost

		if existing.size == 0 {
			existing.size = incoming.size
		}
	}

	existing.MarkStarted(StateStarting)
}
