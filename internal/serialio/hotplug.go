package serialio

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/jochenvg/go-udev"
)

// HotplugEvent reports a tty device node appearing or disappearing.
type HotplugEvent struct {
	DevicePath string
	Added      bool
}

// WatchHotplug generalizes the teacher's serial-port-polling loop
// (kissserial_get's reconnect-on-error branch) into an event-driven watch
// over the "tty" subsystem using udev's netlink monitor. It returns an
// error if udev is unavailable, so a caller can keep its own poll-on-error
// loop — containers and non-Linux dev environments have no udev socket.
func WatchHotplug(ctx context.Context, logger *log.Logger) (<-chan HotplugEvent, error) {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("tty"); err != nil {
		return nil, err
	}
	deviceCh, errCh, err := mon.DeviceChan(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan HotplugEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errCh:
				if !ok {
					return
				}
				logger.Warn("udev monitor error", "err", err)
			case dev, ok := <-deviceCh:
				if !ok {
					return
				}
				select {
				case out <- HotplugEvent{DevicePath: dev.Devnode(), Added: dev.Action() != "remove"}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
