package kernel

import "github.com/lightningnetwork/lnd/fn/v2"

// Mailbox is a named rendezvous point for anonymous point-to-point comms
// (spec.md §3). Invariant: a comm is in exactly one of queue, doneQueue, or
// already matched (and thus referenced only as the peer of another
// activity) — never more than one, never neither while still pending.
type Mailbox struct {
	id   MailboxID
	name string

	queue     []*Comm
	doneQueue []*Comm

	permanentReceiver    ActorID
	hasPermanentReceiver bool
}

// NewMailbox creates an empty, non-permanent-receiver mailbox.
func NewMailbox(id MailboxID, name string) *Mailbox {
	return &Mailbox{id: id, name: name}
}

func (mb *Mailbox) ID() MailboxID { return mb.id }
func (mb *Mailbox) Name() string  { return mb.name }

// SetPermanentReceiver implements spec.md §4.E's "permanent-receiver mode":
// one designated actor collects all messages eagerly.
func (mb *Mailbox) SetPermanentReceiver(actor ActorID) {
	mb.permanentReceiver = actor
	mb.hasPermanentReceiver = true
}

func (mb *Mailbox) ClearPermanentReceiver() {
	mb.permanentReceiver = 0
	mb.hasPermanentReceiver = false
}

// PermanentReceiver reports the mailbox's designated eager receiver, if any.
func (mb *Mailbox) PermanentReceiver() fn.Option[ActorID] {
	if !mb.hasPermanentReceiver {
		return fn.None[ActorID]()
	}

	return fn.Some(mb.permanentReceiver)
}

// matches implements spec.md §4.E's matching predicate: opposite
// direction, and both sides' match functions (if present) agree.
func matches(q, c *Comm) bool {
	if q.direction == c.direction {
		return false
	}

	if q.matchFn != nil && !q.matchFn(q.matchData, c.matchData, c) {
		return false
	}

	if c.matchFn != nil && !c.matchFn(c.matchData, q.matchData, q) {
		return false
	}

	return true
}

// Isend implements spec.md §4.E's isend(): search the mailbox (FIFO, first
// match wins) for an existing opposite-direction comm; if found, merge c
// into it and return the merged (pre-existing) handle. Else push c into
// the mailbox — or, under a detached send with a permanent receiver
// attached, straight into the done queue, pre-bound to that receiver.
func (mb *Mailbox) Isend(c *Comm) *Comm {
	return mb.rendezvous(c)
}

// Irecv implements spec.md §4.E's irecv(): symmetric to Isend, with one
// extra fast path — a permanent-receiver mailbox that already has a
// matching completed send in its done queue is picked up immediately,
// skipping resource modeling (spec.md §4.E).
func (mb *Mailbox) Irecv(c *Comm) *Comm {
	if mb.hasPermanentReceiver {
		for i, done := range mb.doneQueue {
			if matches(c, done) {
				mb.doneQueue = append(mb.doneQueue[:i], mb.doneQueue[i+1:]...)
				mergeInto(done, c)
				done.MarkStarted(StateStarted)
				done.Finish()

				return done
			}
		}
	}

	return mb.rendezvous(c)
}

func (mb *Mailbox) rendezvous(c *Comm) *Comm {
	for i, cand := range mb.queue {
		if matches(c, cand) {
			mb.queue = append(mb.queue[:i], mb.queue[i+1:]...)
			cand.inMailbox = false
			c.mailbox = mb

			mergeInto(cand, c)

			return cand
		}
	}

	c.mailbox = mb

	if mb.hasPermanentReceiver && c.direction == CommSend {
		c.hasDstActor = true
		c.dstActor = mb.permanentReceiver
		c.MarkStarted(StateStarting)
		mb.doneQueue = append(mb.doneQueue, c)

		return c
	}

	c.inMailbox = true
	mb.queue = append(mb.queue, c)

	return c
}

// remove drops c from whichever of the pending/done queues it sits in.
// Called from Comm.AfterFinish, and by cancel() paths.
func (mb *Mailbox) remove(c *Comm) {
	for i, cand := range mb.queue {
		if cand == c {
			mb.queue = append(mb.queue[:i], mb.queue[i+1:]...)
			return
		}
	}

	for i, cand := range mb.doneQueue {
		if cand == c {
			mb.doneQueue = append(mb.doneQueue[:i], mb.doneQueue[i+1:]...)
			return
		}
	}
}

func (mb *Mailbox) Len() int     { return len(mb.queue) }
func (mb *Mailbox) DoneLen() int { return len(mb.doneQueue) }
