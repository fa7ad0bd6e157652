package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roasbeef/simkernel/internal/kernel"
	"github.com/roasbeef/simkernel/internal/mc"
)

// runUnderModelChecker starts an mc.Server wrapping e and blocks until the
// process receives an interrupt, letting an external checker drive the
// engine one transition at a time over the wire protocol (spec.md §6.3)
// instead of running it to quiescence itself.
func runUnderModelChecker(e *kernel.Engine, addr string) error {
	srv := mc.NewServer(mc.ServerConfig{ListenAddr: addr}, e)

	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	fmt.Printf("model checker listening on %s; press ctrl-c to stop\n", srv.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	return nil
}
