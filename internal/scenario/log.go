package scenario

import "github.com/btcsuite/btclog/v2"

var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by package scenario.
func UseLogger(logger btclog.Logger) {
	log = logger
}
