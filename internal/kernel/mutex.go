package kernel

// MutexAcq is the activity-shaped ticket lock_async hands back (spec.md
// §3, "Mutex acquisition"). Waiting on it blocks until granted; testing it
// reports whether the calling actor currently owns the mutex.
type MutexAcq struct {
	*Activity
	mutex  *Mutex
	issuer ActorID
	depth  int
}

// DecideTerminalState: an acquisition only ever reaches a terminal state by
// being granted (LockAsync, TryLock and Unlock call Finish directly) or by the owning actor
// dying with it still queued, which the caller forces to CANCELED before
// calling Finish. There is no "natural" FAILED path for a mutex wait.
func (m *MutexAcq) DecideTerminalState(current State) State {
	if current.Terminal() {
		return current
	}

	return StateDone
}

func (m *MutexAcq) AfterFinish(a *Activity) {}

// Mutex implements spec.md §4.D's Mutex protocol: an ordered queue of
// acquisitions plus whichever one currently owns it.
type Mutex struct {
	recursive bool
	queue     []*MutexAcq
	owner     *MutexAcq
	sched     scheduler
}

// NewMutex creates an unowned mutex. recursive selects whether the same
// issuer may lock it more than once without deadlocking itself.
func NewMutex(sched scheduler, recursive bool) *Mutex {
	return &Mutex{recursive: recursive, sched: sched}
}

func (mu *Mutex) Recursive() bool { return mu.recursive }

// Owner reports the actor currently holding the mutex, if any.
func (mu *Mutex) Owner() (ActorID, bool) {
	if mu.owner == nil {
		return 0, false
	}

	return mu.owner.issuer, true
}

// findQueued returns the issuer's own pending (ungranted) acquisition
// already in the queue, if any — used by recursive locking to add depth to
// an acquisition the issuer is already waiting behind.
func (mu *Mutex) findQueued(issuer ActorID) *MutexAcq {
	for _, acq := range mu.queue {
		if acq.issuer == issuer {
			return acq
		}
	}

	return nil
}

func (mu *Mutex) newAcq(issuer ActorID) *MutexAcq {
	acq := &MutexAcq{issuer: issuer, mutex: mu, depth: 1}
	acq.Activity = newActivity(mu.sched.NewActivityID(), ActivityMutexAcq, mu.sched, acq)
	acq.SetOwner(issuer)

	return acq
}

// LockAsync implements lock_async(issuer): returns an acquisition that is
// already granted (owner==issuer, in this call, same-depth recursion, or an
// uncontended lock) or queued and not yet granted.
func (mu *Mutex) LockAsync(issuer ActorID) *MutexAcq {
	if mu.recursive && mu.owner != nil && mu.owner.issuer == issuer {
		mu.owner.depth++
		return mu.owner
	}

	if mu.owner == nil {
		acq := mu.newAcq(issuer)
		mu.owner = acq
		acq.Finish()

		return acq
	}

	if mu.recursive {
		if pending := mu.findQueued(issuer); pending != nil {
			pending.depth++
			return pending
		}
	}

	acq := mu.newAcq(issuer)
	mu.queue = append(mu.queue, acq)

	return acq
}

// TryLock implements try_lock(issuer): same grant rule as LockAsync but
// never queues on failure.
func (mu *Mutex) TryLock(issuer ActorID) (*MutexAcq, bool) {
	if mu.recursive && mu.owner != nil && mu.owner.issuer == issuer {
		mu.owner.depth++
		return mu.owner, true
	}

	if mu.owner != nil {
		return nil, false
	}

	acq := mu.newAcq(issuer)
	mu.owner = acq
	acq.Finish()

	return acq, true
}

// Unlock implements unlock(issuer). Returns an ErrAssertion KernelError
// (it does not panic) if issuer does not own the mutex — unlocking an
// unowned mutex is a programmer error, per spec.md §7's Assertion kind.
func (mu *Mutex) Unlock(issuer ActorID) error {
	if mu.owner == nil || mu.owner.issuer != issuer {
		return newKernelError(ErrAssertion, 0, "unlock of unowned mutex")
	}

	if mu.recursive && mu.owner.depth > 1 {
		mu.owner.depth--
		return nil
	}

	if len(mu.queue) > 0 {
		next := mu.queue[0]
		mu.queue = mu.queue[1:]

		mu.owner = next
		next.Finish()

		return nil
	}

	mu.owner = nil

	return nil
}
