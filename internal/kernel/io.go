package kernel

// IO is a disk activity (spec.md §4.F): analogous to Exec, bound to a disk
// and a byte amount with a READ/WRITE/READWRITE direction.
type IO struct {
	*Activity

	host     *Host
	diskName string
	bytes    float64
	kind     IOType

	model ResourceModel
}

// NewIO constructs a disk I/O activity of kind bytes long against diskName
// on host.
func NewIO(sched scheduler, model ResourceModel, host *Host, diskName string, bytes float64, kind IOType) *IO {
	io := &IO{host: host, diskName: diskName, bytes: bytes, kind: kind, model: model}
	io.Activity = newActivity(sched.NewActivityID(), ActivityIO, sched, io)

	return io
}

func (io *IO) Start() {
	if io.State() != StateInited && io.State() != StateStarting {
		return
	}

	action := io.model.NewIOAction(io.host, io.diskName, io.bytes, io.kind)
	io.SetAction(action)
	io.MarkStarted(StateStarted)
}

// DecideTerminalState: FAILED if the host is down, CANCELED if the disk
// action itself failed but the host is up, DONE otherwise (spec.md §4.F:
// "I/O: analogous" to Exec).
func (io *IO) DecideTerminalState(current State) State {
	if io.host != nil && !io.host.Up() {
		return StateFailed
	}

	if io.Action() != nil && io.Action().State() == ActionFailed {
		return StateCanceled
	}

	if current == StateStarted {
		return StateDone
	}

	return current
}

func (io *IO) AfterFinish(a *Activity) {}

// OutcomeError: FAILED means the host went down (HostFailure); CANCELED
// here means the disk action itself failed, which is the taxonomy's
// StorageFailure kind (spec.md §7) rather than a generic Cancel.
func (io *IO) OutcomeError(id ActivityID, state State) *KernelError {
	switch state {
	case StateDone:
		return nil
	case StateFailed:
		return newKernelError(ErrHostFailure, id, "")
	case StateCanceled:
		return newKernelError(ErrStorageFailure, id, "")
	default:
		return newKernelError(ErrAssertion, id, "unexpected io terminal state")
	}
}
