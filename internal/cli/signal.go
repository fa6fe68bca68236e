package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// signalContext is canceled on SIGINT/SIGTERM. Before launch this aborts the
// pipeline; while the worker runs, cancellation is forwarded to it.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
