package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// snapshot mirrors internal/state/snapshot.go's on-disk JSON shape. It is
// redeclared here rather than imported, since that type is unexported —
// bridgectl only ever reads the file a running bridged has already
// written, it never shares state with the daemon process.
type snapshot struct {
	LinkState          string `json:"link_state"`
	HandshakeSuccesses uint64 `json:"handshake_successes"`
	HandshakeFailures  uint64 `json:"handshake_failures"`
	LastMCUVersion     uint16 `json:"last_mcu_version"`

	SerialDecodeErrors    uint64 `json:"serial_decode_errors"`
	SerialCRCErrors       uint64 `json:"serial_crc_errors"`
	SerialMalformedErrors uint64 `json:"serial_malformed_errors"`
	SerialOverflowErrors  uint64 `json:"serial_overflow_errors"`

	MQTTQueueSize       int    `json:"mqtt_queue_size"`
	MQTTQueueLimit      int    `json:"mqtt_queue_limit"`
	MQTTDroppedMessages uint64 `json:"mqtt_dropped_messages"`

	MQTTSpoolEnabled       bool   `json:"mqtt_spool_enabled"`
	MQTTSpoolDegraded      bool   `json:"mqtt_spool_degraded"`
	MQTTSpoolFailureReason string `json:"mqtt_spool_failure_reason"`

	ConsoleQueueSize      int    `json:"console_queue_size"`
	ConsoleDroppedChunks  uint64 `json:"console_dropped_chunks"`
	MailboxQueueSize      int    `json:"mailbox_queue_size"`
	MailboxTruncatedBytes uint64 `json:"mailbox_truncated_bytes"`
	MailboxInQueueSize    int    `json:"mailbox_in_queue_size"`
	MailboxOutQueueSize   int    `json:"mailbox_out_queue_size"`

	FileStorageBytesUsed       int    `json:"file_storage_bytes_used"`
	FileWriteLimitRejections   uint64 `json:"file_write_limit_rejections"`
	FileStorageLimitRejections uint64 `json:"file_storage_limit_rejections"`

	PendingPinRequests     int    `json:"pending_pin_requests"`
	PendingPinRequestLimit int    `json:"pending_pin_request_limit"`
	PendingPinOverflows    uint64 `json:"pending_pin_overflows"`

	WatchdogEnabled         bool  `json:"watchdog_enabled"`
	WatchdogIntervalMS      int   `json:"watchdog_interval_ms"`
	WatchdogLastHeartbeatMS int64 `json:"watchdog_last_heartbeat_ms"`
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	file := fs.String("file", "/tmp/bridge-spool/status.json", "path to the daemon's status snapshot file")
	raw := fs.Bool("json", false, "print the raw JSON instead of a formatted summary")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: reading %s: %v\n", *file, err)
		return 1
	}

	if *raw {
		os.Stdout.Write(data)
		fmt.Println()
		return 0
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: parsing %s: %v\n", *file, err)
		return 1
	}

	fmt.Printf("link:     %s (mcu fw %d, handshakes %d ok / %d failed)\n",
		snap.LinkState, snap.LastMCUVersion, snap.HandshakeSuccesses, snap.HandshakeFailures)
	fmt.Printf("serial:   %d decode errs, %d crc errs, %d malformed, %d overflow\n",
		snap.SerialDecodeErrors, snap.SerialCRCErrors, snap.SerialMalformedErrors, snap.SerialOverflowErrors)
	fmt.Printf("mqtt:     queue %d/%d, %d dropped\n",
		snap.MQTTQueueSize, snap.MQTTQueueLimit, snap.MQTTDroppedMessages)
	if snap.MQTTSpoolEnabled {
		fmt.Printf("spool:    degraded=%v reason=%q\n", snap.MQTTSpoolDegraded, snap.MQTTSpoolFailureReason)
	}
	fmt.Printf("console:  queue %d, %d dropped chunks\n", snap.ConsoleQueueSize, snap.ConsoleDroppedChunks)
	fmt.Printf("mailbox:  in %d / out %d (queue depth %d, %d bytes truncated)\n",
		snap.MailboxInQueueSize, snap.MailboxOutQueueSize, snap.MailboxQueueSize, snap.MailboxTruncatedBytes)
	fmt.Printf("files:    %d bytes used, %d write rejections, %d quota rejections\n",
		snap.FileStorageBytesUsed, snap.FileWriteLimitRejections, snap.FileStorageLimitRejections)
	fmt.Printf("pins:     %d/%d pending, %d overflowed\n",
		snap.PendingPinRequests, snap.PendingPinRequestLimit, snap.PendingPinOverflows)
	if snap.WatchdogEnabled {
		fmt.Printf("watchdog: interval %dms, last heartbeat %dms\n", snap.WatchdogIntervalMS, snap.WatchdogLastHeartbeatMS)
	}
	return 0
}
