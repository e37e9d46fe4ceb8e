// Package lifecycle wires OS signals to process shutdown: SIGINT/SIGTERM
// cancel a context the rest of the process watches, and SIGPIPE dumps
// goroutine stacks for diagnostics before canceling. The process persists
// nothing to disk, so there is no crash state to record on the way out.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/oriane-systems/httpcore/internal/obslog"
)

// SetupSignalHandler installs handlers for SIGINT/SIGTERM and SIGPIPE and
// returns a context that is canceled when any of them arrives. Call the
// returned cancel func once shutdown is complete to stop watching.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigc:
			obslog.Log.Info("signal received", "signal", s.String(), "action", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)
	go func() {
		select {
		case s := <-sigpipe:
			obslog.Log.Info("signal received", "signal", s.String(), "action", "dumping goroutine stacks")
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			obslog.Log.Info("goroutine stack dump", "dump", string(buf[:n]))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
