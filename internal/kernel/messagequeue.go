package kernel

// MessDirection distinguishes put from get.
type MessDirection int

const (
	MessPut MessDirection = iota
	MessGet
)

// Mess is a typed-queue message exchange (spec.md §3, §4.E): the same
// rendezvous shape as Comm but with no resource action and no buffer-copy
// simulation — the payload is an opaque pointer transferred by assignment,
// and a matched pair transitions READY -> RUNNING -> DONE within a single
// kernel step.
type Mess struct {
	*Activity

	direction MessDirection
	queueName string
	queue     *MessageQueue
	inQueue   bool

	srcActor, dstActor       ActorID
	hasSrcActor, hasDstActor bool

	payload any
}

// NewMess constructs one side of a message-queue exchange.
func NewMess(sched scheduler, queueName string, dir MessDirection) *Mess {
	m := &Mess{direction: dir, queueName: queueName}
	m.Activity = newActivity(sched.NewActivityID(), ActivityMess, sched, m)

	return m
}

func (m *Mess) Ready() bool { return m.hasSrcActor && m.hasDstActor }

// DecideTerminalState: a Mess has no action and no host-liveness concerns
// of its own; once started it always completes DONE.
func (m *Mess) DecideTerminalState(current State) State {
	if current == StateStarted {
		return StateDone
	}

	return current
}

func (m *Mess) AfterFinish(a *Activity) {
	if m.queue != nil && m.inQueue {
		m.queue.remove(m)
		m.inQueue = false
	}
}

// start runs the READY -> RUNNING -> DONE transition in one kernel step,
// per spec.md §4.E: "on start when both sides have rendezvoused it
// transitions directly DONE."
func (m *Mess) start() {
	if m.State() != StateStarting {
		return
	}

	m.MarkStarted(StateStarted)
	m.Finish()
}

// MessageQueue is a named ordered channel (spec.md §3): a PUT matches the
// oldest pending GET, and vice versa, strictly in FIFO order — no match
// predicate, unlike Mailbox.
type MessageQueue struct {
	id   MailboxID
	name string

	queue []*Mess
}

func NewMessageQueue(id MailboxID, name string) *MessageQueue {
	return &MessageQueue{id: id, name: name}
}

func (q *MessageQueue) ID() MailboxID { return q.id }
func (q *MessageQueue) Name() string  { return q.name }
func (q *MessageQueue) Len() int      { return len(q.queue) }

// Iput implements put(): matches the oldest pending get, if any.
func (q *MessageQueue) Iput(m *Mess) *Mess {
	return q.rendezvous(m)
}

// Iget implements get(): matches the oldest pending put, if any.
func (q *MessageQueue) Iget(m *Mess) *Mess {
	return q.rendezvous(m)
}

func (q *MessageQueue) rendezvous(m *Mess) *Mess {
	for i, cand := range q.queue {
		if cand.direction != m.direction {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			cand.inQueue = false

			if m.direction == MessPut {
				cand.hasSrcActor, cand.srcActor = m.hasSrcActor, m.srcActor
				cand.payload = m.payload
			} else {
				cand.hasDstActor, cand.dstActor = m.hasDstActor, m.dstActor
			}

			cand.MarkStarted(StateStarting)
			cand.start()

			return cand
		}
	}

	m.queue = q
	m.inQueue = true
	q.queue = append(q.queue, m)

	return m
}

func (q *MessageQueue) remove(m *Mess) {
	for i, cand := range q.queue {
		if cand == m {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			return
		}
	}
}
