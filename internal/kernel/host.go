package kernel

// Host is the kernel's minimal view of a simulated machine: just enough
// liveness state for activities bound to it (Exec, IO, Sleep, Comm
// endpoints) to decide their terminal state when they finish. Host speed,
// core count, and placement are resource-model concerns (spec.md §1, out
// of kernel scope) — the kernel only needs to know whether a host is up.
type Host struct {
	name string
	up   bool
}

// NewHost creates a host, up by default.
func NewHost(name string) *Host {
	return &Host{name: name, up: true}
}

func (h *Host) Name() string { return h.name }
func (h *Host) Up() bool     { return h.up }

// SetUp transitions the host's liveness. Called by the engine in response
// to a resource-model or scenario-driven failure/reboot event; fires
// SignalHostStateChanged to subscribers.
func (h *Host) SetUp(up bool) { h.up = up }
