// Package watchdog emits the systemd-style supervisor keepalive spec.md
// §4.5 item 8 requires: "if the hosting supervisor provides a watchdog
// interval, emit a trigger every half-interval." The teacher has no
// supervised-service concept (it is a TNC, started and stopped
// directly), so this is new code written against the standard
// ecosystem library for the systemd notify protocol.
package watchdog

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Watchdog periodically notifies the supervisor (systemd, or anything
// speaking the same sd_notify protocol) that the daemon is alive, and
// records each heartbeat's timestamp for internal/state.RuntimeState.
type Watchdog struct {
	interval time.Duration
	onBeat   func(unixMilli int64)
}

// Detect inspects WATCHDOG_USEC/WATCHDOG_PID (via
// daemon.SdWatchdogEnabled) and returns the configured interval, or zero
// if no supervisor watchdog is active — matching spec.md's "if the
// hosting supervisor provides a watchdog interval."
func Detect() (time.Duration, error) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0, fmt.Errorf("watchdog: detect: %w", err)
	}
	return interval, nil
}

// New builds a Watchdog that triggers every half of interval. onBeat, if
// non-nil, is invoked after each successful trigger with the heartbeat's
// unix-millisecond timestamp.
func New(interval time.Duration, onBeat func(unixMilli int64)) *Watchdog {
	return &Watchdog{interval: interval, onBeat: onBeat}
}

// Enabled reports whether a real supervisor interval was configured.
func (w *Watchdog) Enabled() bool { return w.interval > 0 }

// Run triggers the keepalive at half the configured interval until ctx
// is cancelled, satisfying internal/daemon.Task's Run signature. If no
// interval was detected, Run blocks on ctx alone (a no-op task) rather
// than busy-looping.
func (w *Watchdog) Run(ctx context.Context) error {
	if !w.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				return fmt.Errorf("watchdog: notify: %w", err)
			}
			if w.onBeat != nil {
				w.onBeat(t.UnixMilli())
			}
		}
	}
}

// NotifyReady tells the supervisor the daemon has finished starting up.
func NotifyReady() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	return err
}

// NotifyStopping tells the supervisor a graceful shutdown has begun.
func NotifyStopping() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	return err
}
