package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingModel is a minimal ResourceModel stub for kernel-package tests
// that don't need real timing, only sleep/exec actions to exist and
// finish on the next AdvanceTime.
type recordingModel struct {
	inFlight []*stubAction
}

type stubAction struct {
	state     ActionState
	remaining float64
	cost      float64
	start     SimTime
	suspended bool
	activity  *Activity
}

func (a *stubAction) State() ActionState        { return a.state }
func (a *stubAction) Remains() float64          { return a.remaining }
func (a *stubAction) StartTime() SimTime        { return a.start }
func (a *stubAction) Cost() float64             { return a.cost }
func (a *stubAction) Cancel()                   { a.state = ActionFailed }
func (a *stubAction) Suspend()                  { a.suspended = true }
func (a *stubAction) Resume()                   { a.suspended = false }
func (a *stubAction) SetActivity(act *Activity) { a.activity = act }
func (a *stubAction) BoundActivity() *Activity  { return a.activity }

func (m *recordingModel) start(remaining float64) Action {
	a := &stubAction{state: ActionStarted, remaining: remaining, cost: remaining}
	m.inFlight = append(m.inFlight, a)

	return a
}

func (m *recordingModel) NewCommAction(src, dst *Host, bytes float64, rate float64) Action {
	return m.start(1)
}
func (m *recordingModel) NewExecAction(host *Host, flops float64, cores int) Action {
	return m.start(1)
}
func (m *recordingModel) NewParallelExecAction(hosts []*Host, flops []float64, bytes [][]float64) Action {
	return m.start(1)
}
func (m *recordingModel) NewIOAction(host *Host, disk string, bytes float64, kind IOType) Action {
	return m.start(1)
}
func (m *recordingModel) NewSleepAction(host *Host, duration SimTime) Action {
	return m.start(float64(duration))
}

func (m *recordingModel) NextOccurringEvent(now SimTime) (SimTime, bool) {
	found := false
	var best SimTime

	for _, a := range m.inFlight {
		if a.state != ActionStarted || a.suspended {
			continue
		}

		finish := now + SimTime(a.remaining)
		if !found || finish < best {
			best, found = finish, true
		}
	}

	return best, found
}

func (m *recordingModel) UpdateActionsState(now SimTime, delta SimTime) []Action {
	var finished []Action

	kept := m.inFlight[:0]

	for _, a := range m.inFlight {
		if a.state != ActionStarted {
			continue
		}

		if !a.suspended {
			a.remaining -= float64(delta)
		}

		if a.remaining <= 1e-9 {
			a.state = ActionFinished
			finished = append(finished, a)
			continue
		}

		kept = append(kept, a)
	}

	m.inFlight = kept

	return finished
}

func TestMutexFairnessOrder(t *testing.T) {
	e := NewEngine(&recordingModel{})
	host := e.NewHost("h")
	mu := NewMutex(e, false)

	var acquireOrder []SimTime

	for i := 0; i < 3; i++ {
		e.Spawn("a", host, func(ctx *ActorContext) {
			require.NoError(t, ctx.Lock(mu))
			acquireOrder = append(acquireOrder, ctx.Engine().Now())
			require.NoError(t, ctx.Sleep(ctx.Engine().Model(), 1))
			require.NoError(t, ctx.Unlock(mu))
		})
	}

	e.Run()

	require.Equal(t, []SimTime{0, 1, 2}, acquireOrder)
}

func TestMutexRecursiveAllowsSameOwnerReentry(t *testing.T) {
	mu := NewMutex(&Engine{timers: NewTimerHeap()}, true)

	acq1, ok := mu.TryLock(1)
	require.True(t, ok)
	require.NotNil(t, acq1)

	acq2, ok := mu.TryLock(1)
	require.True(t, ok, "recursive mutex should allow same-owner reentry")
	require.NotNil(t, acq2)
}

func TestMutexNonRecursiveDeniesSameOwnerReentry(t *testing.T) {
	mu := NewMutex(&Engine{timers: NewTimerHeap()}, false)

	_, ok := mu.TryLock(1)
	require.True(t, ok)

	_, ok = mu.TryLock(1)
	require.False(t, ok)
}
