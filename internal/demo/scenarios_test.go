package demo

import (
	"testing"

	"github.com/roasbeef/simkernel/internal/kernel"
	"github.com/stretchr/testify/require"
)

func TestS1TwoActorComm(t *testing.T) {
	e, res := BuildS1()
	e.Run()

	require.Equal(t, "payload", res.Payload)
	require.Equal(t, kernel.SimTime(2e-3), e.Now())
}

func TestS2MutexFairness(t *testing.T) {
	e, res := BuildS2()
	e.Run()

	for i, finish := range res.FinishTimes {
		require.Equal(t, kernel.SimTime(i+1), finish, "actor a%d", i+1)
	}

	require.Equal(t, kernel.SimTime(5), e.Now())
}

func TestS3WaitAnyTimeout(t *testing.T) {
	e, res := BuildS3()
	e.Run()

	require.Equal(t, -1, res.WaitAnyIndex)
	require.Error(t, res.Err)

	kerr, ok := res.Err.(*kernel.KernelError)
	require.True(t, ok)
	require.Equal(t, kernel.ErrTimeout, kerr.Kind)

	require.Equal(t, kernel.SimTime(3), e.Now())
}

func TestS4CondvarSpuriousSafeWait(t *testing.T) {
	e, res := BuildS4()
	e.Run()

	require.Len(t, res.Events, 2)
}

func TestS5DetachedSendToDeadPeer(t *testing.T) {
	e, res := BuildS5()
	e.Run()

	require.True(t, res.CleanCallbackInvokedOnce())
}

func TestS6TimerDeterminism(t *testing.T) {
	events := BuildS6()

	require.Len(t, events, 3)
	require.Equal(t, "c", events[0].Label)
	require.Equal(t, "a", events[1].Label)
	require.Equal(t, "b", events[2].Label)
}
