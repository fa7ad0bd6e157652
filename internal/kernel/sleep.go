package kernel

// actorSuspender is the narrow slice of Engine that Sleep's AfterFinish
// needs to re-suspend its owner; kept separate from the scheduler
// interface since no other activity kind needs it.
type actorSuspender interface {
	SuspendActor(id ActorID)
}

// Sleep is a duration-on-one-host activity (spec.md §4.F).
type Sleep struct {
	*Activity

	host     *Host
	duration SimTime
	model    ResourceModel

	// WasSuspended records whether the owning actor was suspended at the
	// moment Sleep started, so the actor runtime can re-suspend it on
	// wakeup rather than letting the sleep's completion implicitly
	// resume it (spec.md §4.F: "suspended actors that wake up from a
	// sleep are re-suspended").
	WasSuspended bool
}

// NewSleep constructs a sleep of duration seconds on host.
func NewSleep(sched scheduler, model ResourceModel, host *Host, duration SimTime) *Sleep {
	s := &Sleep{host: host, duration: duration, model: model}
	s.Activity = newActivity(sched.NewActivityID(), ActivitySleep, sched, s)

	return s
}

func (s *Sleep) Start() {
	if s.State() != StateInited && s.State() != StateStarting {
		return
	}

	action := s.model.NewSleepAction(s.host, s.duration)
	s.SetAction(action)
	s.MarkStarted(StateStarted)
}

// DecideTerminalState implements spec.md §4.F: SRC_HOST_FAILURE if the host
// went down, CANCELED if the action failed, DONE otherwise.
func (s *Sleep) DecideTerminalState(current State) State {
	if s.host != nil && !s.host.Up() {
		return StateSrcHostFailure
	}

	if s.Action() != nil && s.Action().State() == ActionFailed {
		return StateCanceled
	}

	if current == StateStarted {
		return StateDone
	}

	return current
}

// AfterFinish implements spec.md §4.F's sleep re-suspension: if the owning
// actor was already suspended when this sleep started, re-suspend it now
// rather than letting the sleep's completion implicitly resume it. Since
// Finish() delivers this activity's outcome (and thus MakeRunnable) to the
// waiter right after AfterFinish returns, re-suspending here is what sends
// that wake through Engine.MakeRunnable's suspension gate instead of
// letting the actor actually take its next turn.
func (s *Sleep) AfterFinish(a *Activity) {
	if !s.WasSuspended {
		return
	}

	if owner, ok := a.Owner(); ok {
		a.sched.(actorSuspender).SuspendActor(owner)
	}
}
