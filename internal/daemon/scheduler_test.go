package daemon

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestGroupRunReturnsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGroup(testLogger(), Task{
		Name: "waiter",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("group did not exit after cancel")
	}
}

func TestGroupRunCancelsSiblingsOnFatalError(t *testing.T) {
	boom := errors.New("boom")
	siblingCancelled := make(chan struct{})
	g := NewGroup(testLogger(),
		Task{Name: "failer", Run: func(ctx context.Context) error { return boom }},
		Task{Name: "sibling", Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(siblingCancelled)
			return nil
		}},
	)

	err := g.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	select {
	case <-siblingCancelled:
	case <-time.After(time.Second):
		t.Fatal("sibling task was never cancelled")
	}
}

func TestRunSupervisedRestartsUntilSuccess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- RunSupervised(ctx, testLogger(), 0, func() *Group {
			attempts++
			if attempts < 3 {
				return NewGroup(testLogger(), Task{Name: "flaky", Run: func(ctx context.Context) error {
					return errors.New("transient")
				}})
			}
			return NewGroup(testLogger(), Task{Name: "ok", Run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			}})
		})
	}()

	// Give the third (stable) build a moment to settle in, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunSupervised did not exit after cancel")
	}
	assert.Equal(t, 3, attempts)
}

func TestRunSupervisedGivesUpAfterMaxRestarts(t *testing.T) {
	err := RunSupervised(context.Background(), testLogger(), 2, func() *Group {
		return NewGroup(testLogger(), Task{Name: "always-fails", Run: func(ctx context.Context) error {
			return errors.New("persistent")
		}})
	})
	require.Error(t, err)
}
