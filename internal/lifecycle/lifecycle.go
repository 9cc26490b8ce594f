// Package lifecycle coordinates graceful shutdown: installing the signal
// handler that cancels the root context, and bounding how long the server
// waits for in-flight tool handlers to drain before closing the database.
// Grounded on the teacher's cmd/bd/main.go signal.NotifyContext usage,
// generalized into a reusable coordinator since this server has no command
// tree of its own to hang the signal setup off of.
package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DrainTimeout bounds how long Coordinator.AwaitDrain gives in-flight tool
// handlers to finish after a shutdown signal arrives, per spec.md §5
// ("bounded deadline, default a few seconds").
const DrainTimeout = 5 * time.Second

// Coordinator wraps the signal-driven root context and the deadline used to
// bound shutdown once that context is cancelled.
type Coordinator struct {
	ctx    context.Context
	stop   context.CancelFunc
	log    *slog.Logger
}

// New installs a signal handler for SIGINT/SIGTERM (a no-op on platforms
// that lack one, per signal.NotifyContext's own documented behavior) and
// returns a Coordinator carrying the resulting context.
func New(log *slog.Logger) *Coordinator {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &Coordinator{ctx: ctx, stop: stop, log: log}
}

// Context returns the root context; it is cancelled the moment a shutdown
// signal arrives.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Stop releases the signal handler. Call once shutdown is complete.
func (c *Coordinator) Stop() {
	c.stop()
}

// AwaitDrain blocks until done closes or DrainTimeout elapses, whichever
// comes first, logging if the deadline wins (in-flight handlers were cut
// off rather than allowed to finish).
func (c *Coordinator) AwaitDrain(done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(DrainTimeout):
		c.log.Warn("shutdown drain deadline exceeded, closing anyway", "timeout", DrainTimeout)
	}
}
