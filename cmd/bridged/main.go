// Command bridged is the MPU-resident bridge daemon: it terminates the
// authenticated serial link to the MCU, owns the filesystem/datastore/
// mailbox/process subsystems, and exposes all of it over MQTT.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mculink/bridge/internal/config"
	"github.com/mculink/bridge/internal/daemon"
	"github.com/mculink/bridge/internal/link"
	"github.com/mculink/bridge/internal/mqttbridge"
	"github.com/mculink/bridge/internal/obs"
	"github.com/mculink/bridge/internal/protocol"
	"github.com/mculink/bridge/internal/security"
	"github.com/mculink/bridge/internal/serialio"
	"github.com/mculink/bridge/internal/service"
	"github.com/mculink/bridge/internal/spool"
	"github.com/mculink/bridge/internal/state"
	"github.com/mculink/bridge/internal/watchdog"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "/etc/bridge/bridge.yaml", "path to bridge.yaml")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	logJSON := flag.Bool("log-json", false, "emit structured JSON logs")
	flag.Parse()

	logger := obs.New("bridged", obs.Options{Level: *logLevel, JSON: *logJSON})

	if err := security.SelfTest(); err != nil {
		logger.Error("cryptographic self-test failed", "err", err)
		return int(config.ExitCryptoSelfTestFailed)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration rejected", "err", err)
		return int(config.ExitConfigRejected)
	}

	if err := watchdog.NotifyReady(); err != nil {
		logger.Debug("sd_notify READY skipped", "err", err)
	}

	if err := runDaemon(cfg, logger); err != nil {
		logger.Error("supervised task group exited", "err", err)
		_ = watchdog.NotifyStopping()
		return int(config.ExitTaskFailure)
	}
	_ = watchdog.NotifyStopping()
	return int(config.ExitClean)
}

// runDaemon builds every component SPEC_FULL's C1-C13 modules name and
// runs them to completion under daemon.RunSupervised. The construction
// order matters: engine must exist (empty) before Link, since Link holds
// it only as a link.Handler interface reference; the handlers that send
// frames of their own (GPIORequester, Filesystem) are then built with Link
// as their ConsoleSender, and every handler is registered into engine's
// table afterward, which is how a handler that needs to
// send wire frames and a link that needs a handler table are wired
// without a circular constructor dependency.
func runDaemon(cfg *config.RuntimeConfig, logger *log.Logger) error {
	baud, err := strconv.Atoi(cfg.SerialBaud)
	if err != nil {
		return fmt.Errorf("serial_baud: %w", err)
	}

	port, err := serialio.Open(cfg.SerialPort, baud)
	if err != nil {
		return fmt.Errorf("opening serial port %s: %w", cfg.SerialPort, err)
	}
	defer port.Close()

	runtimeState := state.New()

	engine := service.NewEngine(uint16(protocol.StatusCmdUnknown.Frame()))

	linkCfg := link.Config{
		Secret:     []byte(cfg.SerialSharedSecret),
		NonceLen:   protocol.NonceLen,
		TagLen:     protocol.TagLen,
		AckTimeout: time.Duration(cfg.AckTimeoutMS) * time.Millisecond,
		RetryLimit: cfg.RetryLimit,
	}
	lnk := link.New(linkCfg, daemon.ProtocolIDs(), daemon.ProtocolRules, port, engine, runtimeState)

	policy := cfg.Policy()

	gpioRequester := service.NewGPIORequester(uint16(protocol.DigitalRead), uint16(protocol.AnalogRead), cfg.PendingPinRequestLimit, lnk)
	gpioRequester.RegisterOn(engine, uint16(protocol.DigitalReadResp), uint16(protocol.AnalogReadResp))

	datastore := service.NewDatastore(uint16(protocol.DatastoreGetResp))
	datastore.RegisterOn(engine, uint16(protocol.DatastorePut), uint16(protocol.DatastoreGet))

	mailbox := service.NewMailbox(uint16(protocol.MailboxReadResp), uint16(protocol.MailboxAvailableResp), cfg.MailboxQueueLimit, cfg.MailboxQueueBytesLimit)
	mailbox.RegisterOn(engine, uint16(protocol.MailboxPush), uint16(protocol.MailboxRead), uint16(protocol.MailboxAvailable))

	filesystem := service.NewFilesystem(service.FilesystemIDs{
		FileReadResp: uint16(protocol.FileReadResp),
		StatusError:  uint16(protocol.StatusError.Frame()),
	}, cfg.FileSystemRoot, cfg.FileWriteMaxBytes, cfg.FileStorageQuotaBytes, protocol.MaxPayload, lnk)
	filesystem.RegisterOn(engine, uint16(protocol.FileRead), uint16(protocol.FileWrite), uint16(protocol.FileRemove))

	process := service.NewProcess(service.ProcessIDs{
		RunResp:      uint16(protocol.ProcessRunResp),
		RunAsyncResp: uint16(protocol.ProcessRunAsyncResp),
		PollResp:     uint16(protocol.ProcessPollResp),
	}, cfg.AllowedCommandList(), 4096, 4096)
	process.RegisterOn(engine, uint16(protocol.ProcessRun), uint16(protocol.ProcessRunAsync), uint16(protocol.ProcessPoll), uint16(protocol.ProcessKill))

	registerSystemResponses(engine, runtimeState)

	topics := mqttbridge.Topics{Prefix: cfg.MQTTTopicPrefix}

	b := &bridge{
		logger:    logger,
		topics:    topics,
		policy:    policy,
		link:      lnk,
		engine:    engine,
		gpio:      gpioRequester,
		datastore: datastore,
		mailbox:   mailbox,
	}
	gpioRequester.OnDigitalResult = b.onPinResult
	gpioRequester.OnAnalogResult = b.onPinResult

	mqttClient := mqttbridge.New(mqttbridge.Config{
		Host:        cfg.MQTTHost,
		Port:        cfg.MQTTPort,
		ClientID:    "bridged",
		User:        cfg.MQTTUser,
		Pass:        cfg.MQTTPass,
		TLS:         cfg.MQTTTLS,
		TLSInsecure: cfg.MQTTTLSInsecure,
		CAFile:      cfg.MQTTCAFile,
		CertFile:    cfg.MQTTCertFile,
		KeyFile:     cfg.MQTTKeyFile,
		QueueLimit:  cfg.MQTTQueueLimit,
	}, topics, logger, b.inboundHandler, runtimeState.IncMQTTDropped)
	b.mqtt = mqttClient

	spl := spool.New(cfg.MQTTSpoolDir)

	wdInterval, wdErr := watchdog.Detect()
	if wdErr != nil {
		logger.Warn("watchdog detection failed", "err", wdErr)
	}
	var wd *watchdog.Watchdog
	if wdInterval > 0 {
		wd = watchdog.New(wdInterval, func(ms int64) {
			runtimeState.SetWatchdog(true, int(wdInterval/time.Millisecond), ms)
		})
	}

	const metricsPort = 9090
	exporter := state.NewExporter("bridge", runtimeState)

	deps := daemon.Deps{
		Logger:       logger,
		Serial:       port,
		Link:         lnk,
		TickInterval: 50 * time.Millisecond,

		MQTT: mqttClient,

		Spool:             spl,
		SpoolDrainBackoff: time.Second,

		State:           runtimeState,
		StatusInterval:  time.Duration(cfg.BridgeSummaryInterval) * time.Second,
		SnapshotPath:    cfg.MQTTSpoolDir + "/status.json",
		SummaryTopic:    topics.SystemSummaryValue(),
		IsMQTTConnected: mqttClient.IsConnected,
		PublishStatus: func(snap state.RuntimeState) {
			data, err := json.Marshal(snap)
			if err != nil {
				return
			}
			mqttClient.Publish(mqttbridge.Message{Topic: topics.SystemSummaryValue(), Payload: data})
		},

		MetricsEnabled: cfg.MetricsEnabled,
		MetricsAddr:    ":9090",
		MetricsHandler: exporter.Handler(),

		Watchdog: wd,

		DiscoveryEnabled: cfg.DiscoveryEnabled,
		DiscoveryName:    "",
		DiscoveryPort:    metricsPort,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := lnk.StartHandshake(); err != nil {
		logger.Warn("initial handshake send failed", "err", err)
	}

	return daemon.RunSupervised(ctx, logger, 3, func() *daemon.Group { return daemon.BuildGroup(deps) })
}

// registerSystemResponses wires the four GET_*/SET_BAUDRATE response ids
// so that such a frame is consumed rather than answered with CMD_UNKNOWN;
// the daemon sends none of the matching requests itself. GET_VERSION_RESP
// records the MCU version in last_mcu_version; the other three are
// accepted and ignored.
func registerSystemResponses(engine *service.Engine, st *state.RuntimeState) {
	engine.RegisterFunc(uint16(protocol.GetVersionResp), func(payload []byte) link.Outcome {
		if len(payload) >= 2 {
			st.SetLastMCUVersion(uint16(payload[0])<<8 | uint16(payload[1]))
		}
		return link.Outcome{}
	})
	engine.RegisterFunc(uint16(protocol.GetCapabilitiesResp), func(payload []byte) link.Outcome {
		return link.Outcome{}
	})
	engine.RegisterFunc(uint16(protocol.GetFreeMemoryResp), func(payload []byte) link.Outcome {
		return link.Outcome{}
	})
	engine.RegisterFunc(uint16(protocol.SetBaudrateResp), func(payload []byte) link.Outcome {
		return link.Outcome{}
	})
}
