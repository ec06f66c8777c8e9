package state

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter is a prometheus.Collector that reads a live RuntimeState
// snapshot at scrape time, rather than mirroring every Set/Inc call into a
// separate metric object — this keeps RuntimeState itself free of a
// Prometheus dependency (internal/state's other consumer, the JSON
// snapshot writer, has no use for it).
type Exporter struct {
	prefix string
	state  *RuntimeState
}

// NewExporter prefixes every metric name with prefix + "_" (e.g. "bridge").
func NewExporter(prefix string, s *RuntimeState) *Exporter {
	return &Exporter{prefix: prefix, state: s}
}

func (e *Exporter) name(key string) string { return e.prefix + "_" + key }

// Describe satisfies prometheus.Collector without pre-declaring every
// metric, matching the dynamic-info-gauge shape spec.md §4.7 requires.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.state.Snapshot()

	gauge := func(key string, help string, value float64) {
		ch <- prometheus.MustNewConstMetric(
			prometheus.NewDesc(e.name(key), help, nil, nil),
			prometheus.GaugeValue, value,
		)
	}
	counter := func(key string, help string, value float64) {
		ch <- prometheus.MustNewConstMetric(
			prometheus.NewDesc(e.name(key), help, nil, nil),
			prometheus.CounterValue, value,
		)
	}
	info := func(key, value string) {
		desc := prometheus.NewDesc(e.name("info"), "non-numeric bridge fact", []string{"key", "value"}, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 1, key, value)
	}

	info("link_state", s.LinkState)
	counter("handshake_successes", "successful link handshakes", float64(s.HandshakeSuccesses))
	counter("handshake_failures", "failed link handshakes", float64(s.HandshakeFailures))
	gauge("last_mcu_version", "last reported MCU firmware version", float64(s.LastMCUVersion))

	counter("serial_decode_errors", "COBS/CRC framing decode errors", float64(s.SerialDecodeErrors))
	counter("serial_crc_errors", "frames rejected for CRC mismatch", float64(s.SerialCRCErrors))
	counter("serial_malformed_errors", "frames rejected as malformed", float64(s.SerialMalformedErrors))
	counter("serial_overflow_errors", "frames dropped for exceeding max payload", float64(s.SerialOverflowErrors))

	gauge("mqtt_queue_size", "current depth of the outbound MQTT publish queue", float64(s.MQTTQueueSize))
	gauge("mqtt_queue_limit", "configured outbound MQTT publish queue limit", float64(s.MQTTQueueLimit))
	counter("mqtt_dropped_messages", "messages dropped for exceeding the publish queue limit", float64(s.MQTTDroppedMessages))

	gauge("mqtt_spool_enabled", "1 if the on-disk spool is enabled", boolToFloat(s.MQTTSpoolEnabled))
	gauge("mqtt_spool_degraded", "1 if the spool has hit a filesystem error", boolToFloat(s.MQTTSpoolDegraded))
	if s.MQTTSpoolFailureReason != "" {
		info("mqtt_spool_failure_reason", s.MQTTSpoolFailureReason)
	}

	gauge("console_queue_size", "current console RX ring depth", float64(s.ConsoleQueueSize))
	counter("console_dropped_chunks", "console bytes dropped for exceeding the RX ring", float64(s.ConsoleDroppedChunks))
	gauge("mailbox_queue_size", "total mailbox messages queued across both directions", float64(s.MailboxQueueSize))
	gauge("mailbox_in_queue_size", "mailbox messages queued toward the MCU", float64(s.MailboxInQueueSize))
	gauge("mailbox_out_queue_size", "mailbox messages queued toward MQTT consumers", float64(s.MailboxOutQueueSize))
	counter("mailbox_truncated_bytes", "mailbox bytes dropped for exceeding queue limits", float64(s.MailboxTruncatedBytes))

	gauge("file_storage_bytes_used", "bytes currently stored under the sandbox root", float64(s.FileStorageBytesUsed))
	counter("file_write_limit_rejections", "writes rejected for exceeding the per-write byte limit", float64(s.FileWriteLimitRejections))
	counter("file_storage_limit_rejections", "writes rejected for exceeding the total storage quota", float64(s.FileStorageLimitRejections))

	gauge("pending_pin_requests", "outstanding GPIO read requests awaiting a response", float64(s.PendingPinRequests))
	gauge("pending_pin_request_limit", "configured pending GPIO read request limit", float64(s.PendingPinRequestLimit))
	counter("pending_pin_overflows", "GPIO read requests rejected for exceeding the pending limit", float64(s.PendingPinOverflows))

	gauge("watchdog_enabled", "1 if supervisor watchdog keepalive is active", boolToFloat(s.WatchdogEnabled))
	gauge("watchdog_interval_ms", "configured supervisor watchdog interval", float64(s.WatchdogIntervalMS))
	gauge("watchdog_last_heartbeat_ms", "unix millis of the last watchdog trigger", float64(s.WatchdogLastHeartbeatMS))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Handler returns the Prometheus text-exposition HTTP handler (C6's
// optional metrics server registers this at /metrics).
func (e *Exporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(e)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
