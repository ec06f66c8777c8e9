package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mculink/bridge/internal/discovery"
	"github.com/mculink/bridge/internal/frame"
	"github.com/mculink/bridge/internal/link"
	"github.com/mculink/bridge/internal/mqttbridge"
	"github.com/mculink/bridge/internal/spool"
	"github.com/mculink/bridge/internal/state"
	"github.com/mculink/bridge/internal/watchdog"
)

// SerialReader is the capability the serial-RX task needs; *serialio.Port
// satisfies it without this package importing serialio directly (daemon
// stays at the capability-interface level, per spec.md §9's design note).
type SerialReader interface {
	ReadByte() (byte, error)
}

// Deps is everything BuildGroup needs to assemble the eight supervised
// tasks of spec.md §4.5. cmd/bridged constructs each field and hands the
// whole struct to BuildGroup; BuildGroup itself stays ignorant of how any
// dependency is configured.
type Deps struct {
	Logger *log.Logger

	Serial SerialReader
	Link   *link.Link

	TickInterval time.Duration

	MQTT *mqttbridge.Client

	Spool             *spool.Spool
	SpoolDrainBackoff time.Duration

	State              *state.RuntimeState
	StatusInterval     time.Duration
	SnapshotPath       string
	SummaryTopic       string
	PublishStatus      func(snapshot state.RuntimeState)
	IsMQTTConnected    func() bool

	MetricsEnabled bool
	MetricsAddr    string
	MetricsHandler http.Handler

	Watchdog *watchdog.Watchdog

	DiscoveryEnabled bool
	DiscoveryName    string
	DiscoveryPort    int
}

// BuildGroup assembles the eight supervised tasks: serial RX/decode/
// dispatch, serial ARQ tick, MQTT connection hold, MQTT outbound
// publisher, spool drainer, status writer, metrics HTTP server, and
// watchdog keepalive. Each is one goroutine yielding only at its own
// blocking point, matching spec.md §5's cooperative-scheduler model.
func BuildGroup(d Deps) *Group {
	tasks := []Task{
		serialRXTask(d),
		linkTickTask(d),
		mqttConnectionTask(d),
		mqttOutboundTask(d),
		spoolDrainTask(d),
		statusWriterTask(d),
		watchdogTask(d),
	}
	if d.MetricsEnabled {
		tasks = append(tasks, metricsServerTask(d))
	}
	if d.DiscoveryEnabled {
		tasks = append(tasks, discoveryTask(d))
	}
	return NewGroup(d.Logger, tasks...)
}

// discoveryTask advertises the bridge over mDNS for the lifetime of the
// group, gated by discovery_enabled — spec.md §4's supplemented LAN
// discovery feature.
func discoveryTask(d Deps) Task {
	return Task{Name: "discovery", Run: func(ctx context.Context) error {
		return discovery.Advertise(ctx, d.Logger, d.DiscoveryName, d.DiscoveryPort)
	}}
}

// serialRXTask reads one byte at a time off the serial port, feeds
// internal/frame's decoder, and on a completed frame hands it to the
// link state machine — C6 task 1, "serial RX -> frame decode -> link ->
// service dispatch."
func serialRXTask(d Deps) Task {
	return Task{Name: "serial-rx", Run: func(ctx context.Context) error {
		dec := frame.NewDecoder()
		errs := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				b, err := d.Serial.ReadByte()
				if err != nil {
					errs <- fmt.Errorf("serial read: %w", err)
					return
				}
				ev := dec.Feed(b)
				if !ev.Ready {
					continue
				}
				if ev.Err != nil {
					d.State.IncSerialDecodeError()
					continue
				}
				if err := d.Link.HandleFrame(ev.Frame); err != nil {
					d.Logger.Warn("link frame handling failed", "err", err)
				}
			}
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		}
	}}
}

// linkTickTask evaluates ACK timeouts at a fixed cadence — an explicit
// scheduler yield point, not a background timer driving the link
// directly (spec.md §5's "awaiting a configured interval" category).
func linkTickTask(d Deps) Task {
	interval := d.TickInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return Task{Name: "link-tick", Run: func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				if err := d.Link.Tick(now); err != nil {
					d.Logger.Warn("link tick failed", "err", err)
				}
			}
		}
	}}
}

// mqttConnectionTask opens the auto-reconnecting MQTT connection and
// holds it for the task group's lifetime; inbound dispatch runs inside
// mqttbridge's own OnPublishReceived callback, set up by the caller that
// built d.MQTT.
func mqttConnectionTask(d Deps) Task {
	return Task{Name: "mqtt-connection", Run: func(ctx context.Context) error {
		if err := d.MQTT.Connect(ctx); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		<-ctx.Done()
		return d.MQTT.Disconnect(context.Background())
	}}
}

// mqttOutboundTask drains the bounded publish queue — C6 task 4.
func mqttOutboundTask(d Deps) Task {
	return Task{Name: "mqtt-outbound", Run: func(ctx context.Context) error {
		return d.MQTT.Run(ctx, func(m mqttbridge.Message) {
			if err := d.Spool.Enqueue(m); err != nil {
				d.Logger.Error("spool enqueue failed", "topic", m.Topic, "err", err)
			}
			degraded, reason := d.Spool.Degraded()
			d.State.SetSpool(true, degraded, reason)
		})
	}}
}

// spoolDrainTask replays spooled publications only while the broker is
// connected — C6 task 5.
func spoolDrainTask(d Deps) Task {
	backoff := d.SpoolDrainBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return Task{Name: "spool-drain", Run: func(ctx context.Context) error {
		ticker := time.NewTicker(backoff)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if d.IsMQTTConnected != nil && !d.IsMQTTConnected() {
					continue
				}
				if d.Spool.Pending() == 0 {
					continue
				}
				n, err := d.Spool.Drain(func(m mqttbridge.Message) error {
					d.MQTT.Publish(m)
					return nil
				})
				if err != nil {
					d.Logger.Warn("spool drain stopped early", "drained", n, "err", err)
				}
			}
		}
	}}
}

// statusWriterTask periodically serialises RuntimeState to a tmpfs path
// and republishes snapshot topics — C6 task 6.
func statusWriterTask(d Deps) Task {
	interval := d.StatusInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return Task{Name: "status-writer", Run: func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := d.State.WriteSnapshot(d.SnapshotPath); err != nil {
					d.Logger.Error("status snapshot write failed", "err", err)
					continue
				}
				if d.PublishStatus != nil {
					d.PublishStatus(d.State.Snapshot())
				}
			}
		}
	}}
}

// metricsServerTask serves the Prometheus exposition endpoint — C6 task
// for "metrics HTTP server," gated by metrics_enabled.
func metricsServerTask(d Deps) Task {
	return Task{Name: "metrics-server", Run: func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.MetricsHandler)
		srv := &http.Server{Addr: d.MetricsAddr, Handler: mux}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			return ctx.Err()
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return fmt.Errorf("metrics server: %w", err)
		}
	}}
}

// watchdogTask emits the supervisor keepalive — C6 task 8.
func watchdogTask(d Deps) Task {
	return Task{Name: "watchdog", Run: func(ctx context.Context) error {
		if d.Watchdog == nil {
			<-ctx.Done()
			return ctx.Err()
		}
		return d.Watchdog.Run(ctx)
	}}
}
