package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCondVarSpuriousSafeWaitLoop exercises spec.md §8 S4: a producer sets
// a flag and signals while a consumer loops `while !flag { cond.wait
// (mutex) }`, which must observe flag==true exactly once regardless of
// scheduling order.
func TestCondVarSpuriousSafeWaitLoop(t *testing.T) {
	e := NewEngine(&recordingModel{})
	host := e.NewHost("h")
	mu := NewMutex(e, false)
	cv := NewCondVar(e)

	flag := false
	var observedCount int

	e.Spawn("consumer", host, func(ctx *ActorContext) {
		require.NoError(t, ctx.Lock(mu))

		for !flag {
			require.NoError(t, ctx.CondWait(cv, mu, false, 0))
		}

		observedCount++

		owner, ok := mu.Owner()
		require.True(t, ok)
		require.Equal(t, ctx.Actor().ID(), owner)

		require.NoError(t, ctx.Unlock(mu))
	})

	e.Spawn("producer", host, func(ctx *ActorContext) {
		require.NoError(t, ctx.Lock(mu))
		flag = true
		require.NoError(t, ctx.CondSignal(cv))
		require.NoError(t, ctx.Unlock(mu))
	})

	e.Run()

	require.Equal(t, 1, observedCount)
	require.True(t, flag)
}

func TestCondVarBroadcastWakesAllWaiters(t *testing.T) {
	e := NewEngine(&recordingModel{})
	host := e.NewHost("h")
	mu := NewMutex(e, false)
	cv := NewCondVar(e)

	flag := false
	woken := 0

	for i := 0; i < 3; i++ {
		e.Spawn("waiter", host, func(ctx *ActorContext) {
			require.NoError(t, ctx.Lock(mu))

			for !flag {
				require.NoError(t, ctx.CondWait(cv, mu, false, 0))
			}

			woken++

			require.NoError(t, ctx.Unlock(mu))
		})
	}

	e.Spawn("notifier", host, func(ctx *ActorContext) {
		require.NoError(t, ctx.Lock(mu))
		flag = true
		require.NoError(t, ctx.CondBroadcast(cv))
		require.NoError(t, ctx.Unlock(mu))
	})

	e.Run()

	require.Equal(t, 3, woken)
}

// TestCondVarWaitTimeout exercises spec.md §4.D's timed cond.wait: a waiter
// that never gets signaled must time out, re-acquire the mutex, and observe
// ErrTimeout, with its ticket dropped from cv's queue rather than left to be
// granted by a later signal.
func TestCondVarWaitTimeout(t *testing.T) {
	e := NewEngine(&recordingModel{})
	host := e.NewHost("h")
	mu := NewMutex(e, false)
	cv := NewCondVar(e)

	var waitErr error
	var reacquired bool

	e.Spawn("waiter", host, func(ctx *ActorContext) {
		require.NoError(t, ctx.Lock(mu))

		waitErr = ctx.CondWait(cv, mu, true, 5)

		owner, ok := mu.Owner()
		reacquired = ok && owner == ctx.Actor().ID()

		require.NoError(t, ctx.Unlock(mu))
	})

	e.Run()

	require.Error(t, waitErr)

	kerr, ok := waitErr.(*KernelError)
	require.True(t, ok)
	require.Equal(t, ErrTimeout, kerr.Kind)

	require.True(t, reacquired)
	require.Equal(t, 0, cv.Waiting())
}
