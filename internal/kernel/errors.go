package kernel

import "fmt"

// ErrorKind is the closed taxonomy of exceptions an activity can deliver to
// a waiting actor, per spec.md §7.
type ErrorKind int

const (
	// ErrCancel is raised when an actor waits on an activity that was
	// canceled. Recoverable.
	ErrCancel ErrorKind = iota

	// ErrTimeout is raised when a wait timer expired before the activity
	// completed. Recoverable.
	ErrTimeout

	// ErrHostFailure is raised when the host running an exec or sleep
	// activity went down. Recoverable.
	ErrHostFailure

	// ErrNetworkFailure is raised when a comm failed because of a link or
	// remote peer failure. Recoverable.
	ErrNetworkFailure

	// ErrStorageFailure is raised when an I/O action failed. Recoverable.
	ErrStorageFailure

	// ErrForcefulKill propagates a kill request through the context layer
	// so that RAII-style cleanup (deferred unlocks, on-exit callbacks)
	// unwinds the actor's stack. Not recoverable; never handed to
	// user-level error handling, only to panic/recover inside the
	// context layer.
	ErrForcefulKill

	// ErrAssertion indicates a kernel invariant was violated, e.g.
	// unlocking a mutex the caller doesn't own. Not recoverable.
	ErrAssertion
)

// String implements fmt.Stringer for log messages and test failure output.
func (k ErrorKind) String() string {
	switch k {
	case ErrCancel:
		return "Cancel"
	case ErrTimeout:
		return "Timeout"
	case ErrHostFailure:
		return "HostFailure"
	case ErrNetworkFailure:
		return "NetworkFailure"
	case ErrStorageFailure:
		return "StorageFailure"
	case ErrForcefulKill:
		return "ForcefulKill"
	case ErrAssertion:
		return "Assertion"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// KernelError wraps an ErrorKind with the context needed to act on it: which
// activity raised it (if any) and a human-readable detail.
type KernelError struct {
	Kind       ErrorKind
	ActivityID ActivityID
	Detail     string
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Recoverable reports whether user code waiting on the error can
// meaningfully continue (catch it and proceed) versus the process
// necessarily unwinding.
func (e *KernelError) Recoverable() bool {
	switch e.Kind {
	case ErrForcefulKill, ErrAssertion:
		return false
	default:
		return true
	}
}

// newKernelError constructs a KernelError for the given activity.
func newKernelError(kind ErrorKind, id ActivityID, detail string) *KernelError {
	return &KernelError{Kind: kind, ActivityID: id, Detail: detail}
}

// forcefulKill is the panic value thrown by the context layer's yield() when
// an actor's wants_to_die flag became true while it was parked (and by
// stop()). It is recovered only by the fiber's own run loop, never by user code, so RAII
// cleanup (deferred unlocks etc.) still runs as the panic unwinds.
type forcefulKill struct {
	actor ActorID
}

func (f forcefulKill) Error() string {
	return fmt.Sprintf("actor %d forcefully killed", f.actor)
}
