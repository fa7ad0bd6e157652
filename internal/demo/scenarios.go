// Package demo builds the canonical end-to-end scenarios used to exercise
// the kernel and resourcemodel packages together: two-actor rendezvous
// timing, mutex fairness under contention, a timed wait_any, a
// spurious-wakeup-safe condvar loop, a detached send outliving its
// receiver, and deterministic same-date timer ordering. Each builder
// returns a ready-to-run *kernel.Engine plus a Result the caller can poll
// once the run has quiesced. They back both the "simkernel run" CLI demo
// subcommands and this package's own scenario-level tests.
package demo

import (
	"fmt"
	"sync"

	"github.com/roasbeef/simkernel/internal/kernel"
	"github.com/roasbeef/simkernel/internal/resourcemodel"
)

// Result collects whatever a scenario's actors observed, for a caller to
// assert against once Engine.Run has returned. Fields are filled in from
// actor bodies, which all run strictly one at a time under the engine's
// cooperative scheduler, so no locking is needed for the writes — only for
// reads from a second goroutine, which callers shouldn't need.
type Result struct {
	mu sync.Mutex

	Events  []string
	Payload any
	Err     error

	WaitAnyIndex int
	FinishTimes  []kernel.SimTime
}

func (r *Result) logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Events = append(r.Events, fmt.Sprintf(format, args...))
}

// BuildS1 constructs the two-actor comm scenario (spec.md §8 S1): A sends a
// 1 MB payload to B over the model's default 1 GB/s, 1 ms-latency link.
// Running the returned engine to quiescence should leave B's wakeup at
// simulated time 2e-3s with the payload delivered.
func BuildS1() (*kernel.Engine, *Result) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)
	res := &Result{}

	h1 := e.NewHost("h1")
	h2 := e.NewHost("h2")
	mb := e.Mailbox("m")

	e.Spawn("A", h1, func(ctx *kernel.ActorContext) {
		err := ctx.Send(mb, model, ctx.Engine().ActorHost, 1_000_000, "payload")
		if err != nil {
			res.logf("A: send error: %v", err)
		}
	})

	e.Spawn("B", h2, func(ctx *kernel.ActorContext) {
		payload, err := ctx.Recv(mb, model, ctx.Engine().ActorHost)
		if err != nil {
			res.logf("B: recv error: %v", err)
			return
		}

		res.Payload = payload
		res.logf("B: woke at %v with %v", ctx.Engine().Now(), payload)
	})

	return e, res
}

// BuildS2 constructs the five-actor mutex fairness scenario (spec.md §8
// S2): a1..a5 all attempt mutex.lock(); sleep(1); mutex.unlock() at time 0,
// in spawn order. The ticket queue in mutex.go grants strictly in arrival
// order, so ai should acquire at time (i-1) and release at time i.
func BuildS2() (*kernel.Engine, *Result) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)
	res := &Result{FinishTimes: make([]kernel.SimTime, 5)}

	host := e.NewHost("h")
	mu := kernel.NewMutex(e, false)

	for i := 0; i < 5; i++ {
		idx := i
		e.Spawn(fmt.Sprintf("a%d", idx+1), host, func(ctx *kernel.ActorContext) {
			if err := ctx.Lock(mu); err != nil {
				res.logf("a%d: lock error: %v", idx+1, err)
				return
			}

			res.logf("a%d: acquired at %v", idx+1, ctx.Engine().Now())

			if err := ctx.Sleep(model, 1); err != nil {
				res.logf("a%d: sleep error: %v", idx+1, err)
			}

			res.mu.Lock()
			res.FinishTimes[idx] = ctx.Engine().Now()
			res.mu.Unlock()

			if err := ctx.Unlock(mu); err != nil {
				res.logf("a%d: unlock error: %v", idx+1, err)
			}
		})
	}

	return e, res
}

// BuildS3 constructs the timed wait_any scenario (spec.md §8 S3): an actor
// waits on {comm1, sleep(10)} with a 3-second timeout, while comm1 (a
// receive that nothing ever sends to) would otherwise take far longer.
// The wait_any is expected to time out at simulated time 3 with a Timeout
// exception, reporting the timed-out index as -1 (spec.md §4.H: the
// waitany observer's result is -1 on timeout, distinct from "index 1 won
// without a timeout").
func BuildS3() (*kernel.Engine, *Result) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)
	res := &Result{WaitAnyIndex: -2}

	host := e.NewHost("h")
	mb := e.Mailbox("never-sent")

	e.Spawn("waiter", host, func(ctx *kernel.ActorContext) {
		comm := ctx.IRecv(mb, model, ctx.Engine().ActorHost)
		sleeper := kernel.NewSleep(ctx.Engine(), model, host, 10)
		ctx.Actor().AddActivity(sleeper.Activity)
		sleeper.Start()

		idx, err := ctx.WaitAny(
			[]*kernel.Activity{comm.Activity, sleeper.Activity}, true, 3,
		)

		res.WaitAnyIndex = idx
		res.Err = err
		res.logf(
			"waiter: wait_any returned index=%d err=%v at %v", idx, err,
			ctx.Engine().Now(),
		)
	})

	return e, res
}

// BuildS4 constructs the condvar spurious-safe wait scenario (spec.md §8
// S4): a producer locks a mutex, sets a flag, signals one waiter, and
// unlocks; a consumer holds the mutex and loops `while !flag { cond.wait
// (mutex) }`. The loop form, not a single wait, is what makes this safe
// against the spurious wakeups the kernel's condvar permits.
func BuildS4() (*kernel.Engine, *Result) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)
	res := &Result{}

	host := e.NewHost("h")
	mu := kernel.NewMutex(e, false)
	cv := kernel.NewCondVar(e)

	flag := false

	e.Spawn("consumer", host, func(ctx *kernel.ActorContext) {
		if err := ctx.Lock(mu); err != nil {
			res.logf("consumer: lock error: %v", err)
			return
		}

		for !flag {
			if err := ctx.CondWait(cv, mu, false, 0); err != nil {
				res.logf("consumer: wait error: %v", err)
				return
			}
		}

		res.logf(
			"consumer: observed flag=true at %v, mutex held=%v", ctx.Engine().Now(),
			mustOwn(mu, ctx.Actor().ID()),
		)

		_ = ctx.Unlock(mu)
	})

	e.Spawn("producer", host, func(ctx *kernel.ActorContext) {
		if err := ctx.Lock(mu); err != nil {
			res.logf("producer: lock error: %v", err)
			return
		}

		flag = true

		if err := ctx.CondSignal(cv); err != nil {
			res.logf("producer: signal error: %v", err)
		} else {
			res.logf("producer: flag set, consumer signaled")
		}

		_ = ctx.Unlock(mu)
	})

	return e, res
}

func mustOwn(mu *kernel.Mutex, id kernel.ActorID) bool {
	owner, ok := mu.Owner()
	return ok && owner == id
}

// BuildS5 constructs the detached-send-to-dead-peer scenario (spec.md §8
// S5): A issues a detached 1 MB send to mailbox M; B, the receiver on a
// separate host, picks up the rendezvous (so the comm is matched and
// in-flight, charged against B) and is killed before the transfer
// completes. The send is expected to fail (B's death fails its owned
// in-flight comm via Activity.FailAction, landing on
// DST_HOST_FAILURE/LINK_FAILURE per DecideTerminalState's priority order),
// invoke the clean callback exactly once, and never raise an exception
// back to A (that is what "detached" means).
func BuildS5() (*kernel.Engine, *Result) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)
	res := &Result{}

	h1 := e.NewHost("h1")
	h2 := e.NewHost("h2")
	mb := e.Mailbox("m")

	var cleanCount int
	var cleanMu sync.Mutex

	e.Spawn("A", h1, func(ctx *kernel.ActorContext) {
		ctx.DetachedSend(
			mb, model, ctx.Engine().ActorHost, 1_000_000, "payload",
			func(c *kernel.Comm) {
				cleanMu.Lock()
				cleanCount++
				cleanMu.Unlock()

				res.logf(
					"A: detached send cleaned up, state=%v", c.State(),
				)
			},
		)

		res.logf("A: detached send issued, continuing without blocking")
	})

	e.Spawn("B", h2, func(ctx *kernel.ActorContext) {
		ctx.IRecv(mb, model, ctx.Engine().ActorHost)

		res.logf("B: rendezvous matched, dying before the transfer completes")

		ctx.Exit()
	})

	return e, res
}

// CleanCallbackInvokedOnce is a post-run assertion helper for BuildS5: it
// re-derives whether exactly one clean invocation happened by scanning the
// logged events, since the counter itself is closed over inside the
// builder rather than exposed on Result.
func (r *Result) CleanCallbackInvokedOnce() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0

	for _, e := range r.Events {
		if len(e) >= 2 && e[:2] == "A:" && containsCleanedUp(e) {
			count++
		}
	}

	return count == 1
}

func containsCleanedUp(s string) bool {
	const needle = "cleaned up"

	for i := 0; i+len(needle) <= len(s); i++ {
		if s[i:i+len(needle)] == needle {
			return true
		}
	}

	return false
}

// TimerEvent is one fired timer's observable effect, in fire order.
type TimerEvent struct {
	Date  kernel.SimTime
	Label string
}

// BuildS6 runs the timer determinism scenario (spec.md §8 S6) directly
// against a TimerHeap, with no actors involved: T1 at date 1.0 ("a"), T2 at
// date 1.0 ("b"), T3 at date 0.5 ("c"), scheduled in that T1,T2,T3 order.
// Firing due timers up through date 1.0 must yield "c","a","b" — same-date
// ties break by insertion sequence, not reinsertion order.
func BuildS6() []TimerEvent {
	timers := kernel.NewTimerHeap()

	var events []TimerEvent

	timers.Set(1.0, func() {
		events = append(events, TimerEvent{Date: 1.0, Label: "a"})
	})
	timers.Set(1.0, func() {
		events = append(events, TimerEvent{Date: 1.0, Label: "b"})
	})
	timers.Set(0.5, func() {
		events = append(events, TimerEvent{Date: 0.5, Label: "c"})
	})

	timers.FireDue(1.0)

	return events
}
