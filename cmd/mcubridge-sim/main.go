// Command mcubridge-sim is a simulated MCU peer: it speaks the same
// authenticated wire protocol as the real firmware, against an in-memory
// pin bank, so bridged can be developed and tested without hardware
// attached. It is deliberately not a clone of bridged — it sits on the
// opposite, MCU-resident side of the link and only ever answers requests,
// never initiates GPIO reads, matching the real firmware's role.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mculink/bridge/internal/frame"
	"github.com/mculink/bridge/internal/gpio"
	"github.com/mculink/bridge/internal/link"
	"github.com/mculink/bridge/internal/mcuproto"
	"github.com/mculink/bridge/internal/obs"
	"github.com/mculink/bridge/internal/serialio"
	"github.com/mculink/bridge/internal/service"
	"golang.org/x/sync/errgroup"
)

// capability bits reported by GET_CAPABILITIES_RESP: this peer answers
// system identity, GPIO, and console commands, but none of the MPU-side
// families (datastore/mailbox/file/process belong to the real MPU, never
// to firmware).
const (
	capSystem  uint32 = 1 << 0
	capGPIO    uint32 = 1 << 1
	capConsole uint32 = 1 << 2
)

func main() {
	os.Exit(run())
}

func run() int {
	serialDevice := flag.String("serial", "", "serial device or pty slave path to speak the bridge protocol on")
	baud := flag.Int("baud", 0, "baud rate to set on the serial device (0 = leave as-is, e.g. for a pty)")
	secret := flag.String("secret", "", "shared handshake secret (must match bridged's serial_shared_secret)")
	version := flag.Uint("fw-version", 1, "reported firmware version")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	logJSON := flag.Bool("log-json", false, "emit structured JSON logs")
	flag.Parse()

	logger := obs.New("mcubridge-sim", obs.Options{Level: *logLevel, JSON: *logJSON})

	if *serialDevice == "" {
		logger.Error("-serial is required")
		return 1
	}

	if err := runSim(*serialDevice, *baud, *secret, uint16(*version), logger); err != nil {
		logger.Error("simulated MCU exited", "err", err)
		return 1
	}
	return 0
}

func runSim(serialDevice string, baud int, secret string, version uint16, logger *log.Logger) error {
	port, err := serialio.Open(serialDevice, baud)
	if err != nil {
		return fmt.Errorf("opening serial device %s: %w", serialDevice, err)
	}
	defer port.Close()

	engine := service.NewEngine(uint16(mcuproto.StatusCmdUnknown.Frame()))

	linkCfg := link.Config{
		Secret:     []byte(secret),
		NonceLen:   mcuproto.NonceLen,
		TagLen:     mcuproto.TagLen,
		AckTimeout: time.Duration(mcuproto.DefaultAckTimeoutMS) * time.Millisecond,
		RetryLimit: mcuproto.DefaultRetryLimit,
	}
	lnk := link.New(linkCfg, mcuProtocolIDs(), mcuProtocolRules, port, engine, link.NopRecorder{})

	pins := gpio.NewSimulated()
	gpioHandler := service.NewGPIO(service.GPIOIDs{
		DigitalReadResp: uint16(mcuproto.DigitalReadResp),
		AnalogReadResp:  uint16(mcuproto.AnalogReadResp),
	}, pins)
	gpioHandler.RegisterOn(engine,
		uint16(mcuproto.SetPinMode), uint16(mcuproto.DigitalRead),
		uint16(mcuproto.DigitalWrite), uint16(mcuproto.AnalogRead), uint16(mcuproto.AnalogWrite))

	console := service.NewConsole(uint16(mcuproto.ConsoleWrite), 4096, mcuproto.MaxPayload, lnk, lnk)
	console.RegisterOn(engine, uint16(mcuproto.Xon), uint16(mcuproto.Xoff))

	sys := service.NewSystem(service.SystemIDs{
		GetVersionResp:      uint16(mcuproto.GetVersionResp),
		GetCapabilitiesResp: uint16(mcuproto.GetCapabilitiesResp),
		GetFreeMemoryResp:   uint16(mcuproto.GetFreeMemoryResp),
		SetBaudrateResp:     uint16(mcuproto.SetBaudrateResp),
	}, version, capSystem|capGPIO|capConsole, freeHeapBytes, port)
	sys.RegisterOn(engine,
		uint16(mcuproto.GetVersion), uint16(mcuproto.GetCapabilities),
		uint16(mcuproto.GetFreeMemory), uint16(mcuproto.SetBaudrate))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return serialRXLoop(gctx, port, lnk, logger) })
	eg.Go(func() error { return linkTickLoop(gctx, lnk, logger) })
	eg.Go(func() error { return consoleFlushLoop(gctx, console, logger) })

	logger.Info("simulated MCU peer ready", "serial", serialDevice, "fw_version", version)
	err = eg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// freeHeapBytes reports this process's own idle heap as a stand-in for a
// firmware's free-memory figure; there is no real constrained-memory MCU
// behind this binary to query.
func freeHeapBytes() uint32 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return uint32(m.HeapIdle)
}

func serialRXLoop(ctx context.Context, port *serialio.Port, lnk *link.Link, logger *log.Logger) error {
	dec := frame.NewDecoder()
	errs := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			b, err := port.ReadByte()
			if err != nil {
				errs <- fmt.Errorf("serial read: %w", err)
				return
			}
			ev := dec.Feed(b)
			if !ev.Ready {
				continue
			}
			if ev.Err != nil {
				logger.Warn("frame decode error", "err", ev.Err)
				continue
			}
			if err := lnk.HandleFrame(ev.Frame); err != nil {
				logger.Warn("link frame handling failed", "err", err)
			}
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return err
	}
}

func linkTickLoop(ctx context.Context, lnk *link.Link, logger *log.Logger) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := lnk.Tick(now); err != nil {
				logger.Warn("link tick failed", "err", err)
			}
		}
	}
}

// consoleFlushLoop drains Console's outbound backlog at a fixed cadence —
// the sim's analogue of a local application writing to the console and
// expecting it to reach the wire promptly.
func consoleFlushLoop(ctx context.Context, console *service.Console, logger *log.Logger) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := console.Flush(); err != nil {
				logger.Warn("console flush failed", "err", err)
			}
		}
	}
}
