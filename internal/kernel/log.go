package kernel

import (
	"github.com/btcsuite/btclog/v2"
)

// log is the kernel-wide subsystem logger. It defaults to a disabled logger
// so that importing the package without explicit wiring produces no output;
// callers (typically cmd/simkernel) install a real backend via UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by the kernel package. It should be called
// once during process start-up, before any Engine is created.
func UseLogger(logger btclog.Logger) {
	log = logger
}
