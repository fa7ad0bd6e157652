package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSleepWakeupReSuspendsActor exercises spec.md §4.F: an actor suspended
// before it calls Sleep must stay parked once the sleep elapses, rather
// than being given its next turn. Resuming it afterward is what finally
// lets it run past the sleep.
func TestSleepWakeupReSuspendsActor(t *testing.T) {
	e := NewEngine(&recordingModel{})
	host := e.NewHost("h")

	var ranAfterSleep bool

	a := e.Spawn("sleeper", host, func(ctx *ActorContext) {
		require.NoError(t, ctx.Sleep(e.Model(), 1))
		ranAfterSleep = true
	})

	e.SuspendActor(a.ID())

	e.Run()

	require.False(t, ranAfterSleep)
	require.True(t, a.Suspended())

	e.ResumeActor(a.ID())
	e.Run()

	require.True(t, ranAfterSleep)
}
