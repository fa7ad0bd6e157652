package kernel

// IOType is the direction of a disk I/O activity (spec.md §4.F).
type IOType int

const (
	IORead IOType = iota
	IOWrite
	IOReadWrite
)

// ResourceModel is the contract the kernel consumes from the external
// continuous resource model (spec.md §6.1, §1's explicit out-of-scope
// line: "the kernel only consumes an Action interface exposing
// cost/remains/state/start-time"). The kernel never looks inside an
// Action's physics; it only starts actions, polls their terminal state,
// and reacts to completion via Activity.Finish.
type ResourceModel interface {
	// NextOccurringEvent returns the simulated date of the model's next
	// autonomous action completion, if any action is in flight.
	NextOccurringEvent(now SimTime) (SimTime, bool)

	// UpdateActionsState advances the model's physics by delta and
	// returns every action that transitioned to ActionFinished or
	// ActionFailed during the advance, so the engine can call their
	// bound activity's Finish.
	UpdateActionsState(now SimTime, delta SimTime) []Action

	NewCommAction(src, dst *Host, bytes float64, rate float64) Action
	NewExecAction(host *Host, flops float64, cores int) Action
	NewParallelExecAction(hosts []*Host, flops []float64, bytes [][]float64) Action
	NewIOAction(host *Host, disk string, bytes float64, kind IOType) Action
	NewSleepAction(host *Host, duration SimTime) Action
}

// ActionBinder is implemented by an Action that supports the back-pointer
// spec.md §6.1 calls for ("action.set_activity(activity_handle)"), used by
// the engine to find which activity to Finish when the action completes
// autonomously. Activity.SetAction calls it when present. The engine only
// finishes the activity of a returned action that also implements
// ActivityLookup; a completed action without it is ignored.
type ActionBinder interface {
	SetActivity(act *Activity)
}

// ActivityLookup is the read side of ActionBinder: an action that recorded
// its bound activity can hand it back to the engine's main loop once
// UpdateActionsState reports the action as finished or failed.
type ActivityLookup interface {
	BoundActivity() *Activity
}
