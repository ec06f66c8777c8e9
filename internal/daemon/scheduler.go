// Package daemon implements the supervised task group (C6, spec.md §4.5):
// a single-threaded-cooperative-in-spirit scheduler where every long-
// running job is one goroutine suspending only at its own explicit yield
// points (a blocking read, an MQTT receive, a timer tick). No task mutates
// another task's state directly; they communicate only through the
// capabilities internal/link, internal/service, and internal/state expose.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Task is one supervised job. Run must return promptly once ctx is
// cancelled; any other return is treated as a fatal error for the group.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Group supervises a fixed set of Tasks with errgroup's first-error-wins
// cancellation: spec.md §4.5's "a fatal error in any supervised task
// cancels the group." No teacher file builds a supervised task group this
// way (the teacher is a single-process TNC, not a long-running service
// daemon); golang.org/x/sync/errgroup is the ecosystem-standard tool for
// exactly this shape and was already a transitive dependency (pulled in
// by paho.golang/dnssd), promoted here to a direct one.
type Group struct {
	tasks  []Task
	logger *log.Logger
}

// NewGroup builds a Group from named tasks, logging every task's name as
// it is supervised.
func NewGroup(logger *log.Logger, tasks ...Task) *Group {
	return &Group{tasks: tasks, logger: logger}
}

// Run blocks until every task has exited, returning the first fatal error.
// A task that returns nil before cancellation simply exits and the other
// tasks keep running; callers provide Run funcs that only return on
// ctx.Done() or failure.
func (g *Group) Run(ctx context.Context) error {
	eg, gctx := errgroup.WithContext(ctx)
	for _, t := range g.tasks {
		t := t
		eg.Go(func() error {
			g.logger.Debug("supervised task starting", "task", t.Name)
			err := t.Run(gctx)
			if err != nil && gctx.Err() == nil {
				g.logger.Error("supervised task failed", "task", t.Name, "err", err)
				return fmt.Errorf("task %s: %w", t.Name, err)
			}
			g.logger.Debug("supervised task exited", "task", t.Name)
			return nil
		})
	}
	return eg.Wait()
}

// restartBackoff separates consecutive restarts so a persistently failing
// task group doesn't spin the CPU.
const restartBackoff = 500 * time.Millisecond

// RunSupervised restarts the group built by build with fresh state after
// every fatal error, per spec.md §5's "the daemon either restarts the
// group or exits." maxRestarts of 0 means unlimited; Run returns ctx.Err()
// once ctx is cancelled, and a wrapped error once maxRestarts is exhausted.
func RunSupervised(ctx context.Context, logger *log.Logger, maxRestarts int, build func() *Group) error {
	for attempt := 0; ; attempt++ {
		err := build().Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}
		if maxRestarts > 0 && attempt >= maxRestarts {
			return fmt.Errorf("daemon: task group failed after %d restarts: %w", attempt, err)
		}
		logger.Warn("restarting task group with fresh state", "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(restartBackoff):
		}
	}
}
