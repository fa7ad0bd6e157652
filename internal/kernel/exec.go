package kernel

// Exec is a CPU activity (spec.md §3, §4.F): either single-host (one flops
// amount, optional core count, optional bound/sharing-penalty) or parallel
// (a vector of flops amounts and per-link byte amounts across a host set).
type Exec struct {
	*Activity

	hosts []*Host
	flops []float64
	bytes [][]float64
	cores int
	bound float64

	model ResourceModel
}

// NewExec constructs a single-host exec on host, requesting flops amount of
// compute optionally pinned to cores cores. cores is passed to the resource
// model as is; the flat resourcemodel.Model treats 0 or 1 as a single core.
func NewExec(sched scheduler, model ResourceModel, host *Host, flops float64, cores int) *Exec {
	e := &Exec{hosts: []*Host{host}, flops: []float64{flops}, cores: cores, model: model}
	e.Activity = newActivity(sched.NewActivityID(), ActivityExec, sched, e)

	return e
}

// NewParallelExec constructs a parallel exec spanning hosts, with a flops
// amount per host and a bytes[i][j] matrix of inter-host transfer amounts
// (spec.md §4.F).
func NewParallelExec(sched scheduler, model ResourceModel, hosts []*Host, flops []float64, bytes [][]float64) *Exec {
	e := &Exec{hosts: hosts, flops: flops, bytes: bytes, model: model}
	e.Activity = newActivity(sched.NewActivityID(), ActivityExec, sched, e)

	return e
}

func (e *Exec) SetBound(bound float64) { e.bound = bound }

func (e *Exec) Parallel() bool { return len(e.hosts) > 1 }

// Start implements start(): request an action from the host model and
// record it.
func (e *Exec) Start() {
	if e.State() != StateInited && e.State() != StateStarting {
		return
	}

	var action Action
	if e.Parallel() {
		action = e.model.NewParallelExecAction(e.hosts, e.flops, e.bytes)
	} else {
		action = e.model.NewExecAction(e.hosts[0], e.flops[0], e.cores)
	}

	e.SetAction(action)
	e.MarkStarted(StateStarted)
}

// Migrate implements migrate(to): allowed only while RUNNING, single-host
// only. Obtains a new action on the destination host carrying the same
// cost/remaining/bounds, then cancels the old one.
func (e *Exec) Migrate(to *Host) error {
	if e.State() != StateStarted {
		return newKernelError(ErrAssertion, e.ID(), "migrate requires a running exec")
	}

	if e.Parallel() {
		return newKernelError(ErrAssertion, e.ID(), "migrate is single-host only")
	}

	old := e.Action()

	// NewExecAction takes a flops quantity and derives remaining time as
	// flops/speed, so the old action's Remains() (already a time figure)
	// can't be passed through directly — that would be reinterpreted as
	// flops on the destination host. Recover the equivalent flops still
	// outstanding from the fraction of the action's total cost left,
	// which is what "same cost/remaining" (spec.md §4.F) means across a
	// migration: the destination host may run at a different speed, so
	// only the flops quantity, not the time, carries over unchanged.
	remainingFlops := old.Cost()

	elapsed := float64(e.sched.Now() - old.StartTime())
	total := elapsed + old.Remains()

	if total > 0 {
		remainingFlops = old.Cost() * (old.Remains() / total)
	}

	action := e.model.NewExecAction(to, remainingFlops, e.cores)
	old.Cancel()

	e.hosts[0] = to
	e.SetAction(action)

	return nil
}

// DecideTerminalState implements spec.md §4.F's Exec.finish(): FAILED if
// any involved host is down, CANCELED if the action failed but hosts are
// up, DONE otherwise.
func (e *Exec) DecideTerminalState(current State) State {
	for _, h := range e.hosts {
		if h != nil && !h.Up() {
			return StateFailed
		}
	}

	if e.Action() != nil && e.Action().State() == ActionFailed {
		return StateCanceled
	}

	if current == StateStarted {
		return StateDone
	}

	return current
}

func (e *Exec) AfterFinish(a *Activity) {}

// OutcomeError overrides the default FAILED mapping: for Exec, FAILED means
// a host involved in the computation went down, not a storage failure.
func (e *Exec) OutcomeError(id ActivityID, state State) *KernelError {
	switch state {
	case StateDone:
		return nil
	case StateFailed:
		return newKernelError(ErrHostFailure, id, "")
	case StateCanceled:
		return newKernelError(ErrCancel, id, "")
	default:
		return newKernelError(ErrAssertion, id, "unexpected exec terminal state")
	}
}
