package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTriggersAtHalfInterval(t *testing.T) {
	beats := make(chan int64, 8)
	w := New(40*time.Millisecond, func(unixMilli int64) { beats <- unixMilli })
	require.True(t, w.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, len(beats), 2, "expected at least two heartbeats in 150ms at a 20ms trigger")
}

func TestRunWithNoIntervalBlocksUntilCancelled(t *testing.T) {
	w := New(0, nil)
	assert.False(t, w.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetectWithNoSupervisorReturnsZero(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")

	interval, err := Detect()
	require.NoError(t, err)
	assert.Zero(t, interval)
}
