package kernel

// SemAcq is the activity-shaped ticket acquire_async hands back.
type SemAcq struct {
	*Activity
	issuer ActorID
}

func (s *SemAcq) DecideTerminalState(current State) State {
	if current.Terminal() {
		return current
	}

	return StateDone
}

func (s *SemAcq) AfterFinish(a *Activity) {}

// Semaphore implements spec.md §4.D's Semaphore protocol.
type Semaphore struct {
	value int
	queue []*SemAcq
	sched scheduler
}

// NewSemaphore creates a semaphore with the given initial capacity.
func NewSemaphore(sched scheduler, initial int) *Semaphore {
	return &Semaphore{value: initial, sched: sched}
}

func (s *Semaphore) Value() int { return s.value }

func (s *Semaphore) newAcq(issuer ActorID) *SemAcq {
	acq := &SemAcq{issuer: issuer}
	acq.Activity = newActivity(s.sched.NewActivityID(), ActivitySemAcq, s.sched, acq)
	acq.SetOwner(issuer)

	return acq
}

// AcquireAsync implements acquire_async(issuer): grants immediately if
// value > 0, otherwise queues.
func (s *Semaphore) AcquireAsync(issuer ActorID) *SemAcq {
	acq := s.newAcq(issuer)

	if s.value > 0 {
		s.value--
		acq.Finish()

		return acq
	}

	s.queue = append(s.queue, acq)

	return acq
}

// Release implements release(): grants the head of the queue if any,
// otherwise increments value.
func (s *Semaphore) Release() {
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		next.Finish()

		return
	}

	s.value++
}
