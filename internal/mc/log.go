package mc

import (
	"github.com/btcsuite/btclog/v2"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by package mc. Should be called once
// during process start-up.
func UseLogger(logger btclog.Logger) {
	log = logger
}
