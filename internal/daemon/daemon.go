// Package daemon provides the foreground process lifecycle shared by the
// capture command: install a signal handler, run the given work function,
// and stop it cleanly on SIGINT/SIGTERM. There is no background-daemonize,
// PID file, or remote control-plane here — the capture command always runs
// in the foreground of its own process.
package daemon

import (
	"os"
	"os/signal"
	"syscall"

	"otus.dev/agent/internal/log"
)

// RunUntilSignal runs fn in the current goroutine's caller, passing it a
// stop channel that closes the moment SIGINT or SIGTERM arrives. fn is
// expected to poll stop (directly, or via a context built from it) and
// return once its work loop observes the signal.
func RunUntilSignal(fn func(stop <-chan struct{}) error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stop := make(chan struct{})
	go func() {
		sig := <-sigCh
		log.GetLogger().WithField("signal", sig.String()).Info("shutdown signal received")
		close(stop)
	}()

	return fn(stop)
}
