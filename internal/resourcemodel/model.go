// Package resourcemodel provides a simple, non-shared (no max-min
// fairness) implementation of the continuous resource model the kernel
// package consumes as an external collaborator. Every action's completion
// date is fixed at creation time from a flat bandwidth/speed figure; there
// is no contention modeling between concurrent actions on the same host or
// link. This intentionally does not reproduce the source's LMM physics
// (spec.md §1 places that out of kernel scope); it exists so scenarios
// built on the kernel package are runnable and testable end to end.
package resourcemodel

import (
	"github.com/roasbeef/simkernel/internal/kernel"
)

// action is the Model's concrete kernel.Action. remainingTime is always
// expressed in seconds-to-completion as of the model's current clock.
type action struct {
	cost          float64
	remainingTime float64
	state         kernel.ActionState
	startTime     kernel.SimTime
	suspended     bool
	activity      *kernel.Activity
}

func (a *action) State() kernel.ActionState        { return a.state }
func (a *action) Remains() float64                 { return a.remainingTime }
func (a *action) StartTime() kernel.SimTime        { return a.startTime }
func (a *action) Cost() float64                    { return a.cost }
func (a *action) Cancel()                          { a.state = kernel.ActionFailed }
func (a *action) Suspend()                         { a.suspended = true }
func (a *action) Resume()                          { a.suspended = false }
func (a *action) SetActivity(act *kernel.Activity) { a.activity = act }
func (a *action) BoundActivity() *kernel.Activity  { return a.activity }

// Config holds the flat per-resource-class rates the Model applies to
// every action of that class, absent a caller-supplied override (e.g. a
// Comm's explicit rate bound).
type Config struct {
	DefaultBandwidthBps float64
	DefaultLatencySec   float64
	DefaultFlopsPerSec  float64
	DefaultDiskBps      float64
}

// DefaultConfig mirrors a modest LAN: 1 GB/s links at 1 ms latency, 1
// Gflop/s cores, 500 MB/s disks.
func DefaultConfig() Config {
	return Config{
		DefaultBandwidthBps: 1e9,
		DefaultLatencySec:   1e-3,
		DefaultFlopsPerSec:  1e9,
		DefaultDiskBps:      5e8,
	}
}

// Option configures a Model at construction.
type Option func(*Model)

func WithConfig(cfg Config) Option {
	return func(m *Model) { m.cfg = cfg }
}

// Model is a flat-rate resource model satisfying kernel.ResourceModel.
type Model struct {
	cfg      Config
	now      kernel.SimTime
	inFlight []*action
}

// New constructs a Model with DefaultConfig, overridden by any options.
func New(opts ...Option) *Model {
	m := &Model{cfg: DefaultConfig()}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Model) start(a *action) kernel.Action {
	a.startTime = m.now
	a.state = kernel.ActionStarted
	m.inFlight = append(m.inFlight, a)

	return a
}

// NewCommAction implements kernel.ResourceModel. rate <= 0 means "use the
// model's default bandwidth".
func (m *Model) NewCommAction(src, dst *kernel.Host, bytes float64, rate float64) kernel.Action {
	bw := m.cfg.DefaultBandwidthBps
	if rate > 0 {
		bw = rate
	}

	cost := bytes
	transfer := m.cfg.DefaultLatencySec + bytes/bw

	return m.start(&action{cost: cost, remainingTime: transfer})
}

// NewExecAction implements kernel.ResourceModel. cores <= 0 means
// single-core.
func (m *Model) NewExecAction(host *kernel.Host, flops float64, cores int) kernel.Action {
	speed := m.cfg.DefaultFlopsPerSec

	if cores > 1 {
		speed *= float64(cores)
	}

	return m.start(&action{cost: flops, remainingTime: flops / speed})
}

// NewParallelExecAction implements kernel.ResourceModel. This flat model
// approximates the parallel cost as the slowest single host's share, since
// it does not model inter-host transfer contention.
func (m *Model) NewParallelExecAction(hosts []*kernel.Host, flops []float64, bytes [][]float64) kernel.Action {
	var worst float64

	for _, f := range flops {
		t := f / m.cfg.DefaultFlopsPerSec
		if t > worst {
			worst = t
		}
	}

	total := 0.0
	for _, f := range flops {
		total += f
	}

	return m.start(&action{cost: total, remainingTime: worst})
}

// NewIOAction implements kernel.ResourceModel.
func (m *Model) NewIOAction(host *kernel.Host, disk string, bytes float64, kind kernel.IOType) kernel.Action {
	return m.start(&action{cost: bytes, remainingTime: bytes / m.cfg.DefaultDiskBps})
}

// NewSleepAction implements kernel.ResourceModel.
func (m *Model) NewSleepAction(host *kernel.Host, duration kernel.SimTime) kernel.Action {
	return m.start(&action{cost: float64(duration), remainingTime: float64(duration)})
}

// NextOccurringEvent implements kernel.ResourceModel: the earliest
// completion date among in-flight, non-suspended actions.
func (m *Model) NextOccurringEvent(now kernel.SimTime) (kernel.SimTime, bool) {
	found := false
	var best kernel.SimTime

	for _, a := range m.inFlight {
		if a.state != kernel.ActionStarted || a.suspended {
			continue
		}

		finish := now + kernel.SimTime(a.remainingTime)

		if !found || finish < best {
			best = finish
			found = true
		}
	}

	return best, found
}

// UpdateActionsState implements kernel.ResourceModel: advances every
// non-suspended in-flight action's remaining time by delta, and returns
// (while dropping from the in-flight list) every action that thereby
// completed. Actions that were externally canceled are dropped from the
// in-flight list but are not returned.
func (m *Model) UpdateActionsState(now kernel.SimTime, delta kernel.SimTime) []kernel.Action {
	var finished []kernel.Action

	kept := m.inFlight[:0]

	for _, a := range m.inFlight {
		if a.state != kernel.ActionStarted {
			continue
		}

		if !a.suspended {
			a.remainingTime -= float64(delta)
		}

		if a.remainingTime <= 1e-9 {
			a.remainingTime = 0
			a.state = kernel.ActionFinished
			finished = append(finished, a)

			continue
		}

		kept = append(kept, a)
	}

	m.inFlight = kept
	m.now = now

	return finished
}
