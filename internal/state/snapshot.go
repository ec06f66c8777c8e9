package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotJSON is the on-disk shape; it mirrors RuntimeState's exported
// fields directly rather than embedding the unexported mutex.
type snapshotJSON struct {
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

func toJSON(s RuntimeState) snapshotJSON {
	return snapshotJSON{
		LinkState:                  s.LinkState,
		HandshakeSuccesses:         s.HandshakeSuccesses,
		HandshakeFailures:          s.HandshakeFailures,
		LastMCUVersion:             s.LastMCUVersion,
		SerialDecodeErrors:         s.SerialDecodeErrors,
		SerialCRCErrors:            s.SerialCRCErrors,
		SerialMalformedErrors:      s.SerialMalformedErrors,
		SerialOverflowErrors:       s.SerialOverflowErrors,
		MQTTQueueSize:              s.MQTTQueueSize,
		MQTTQueueLimit:             s.MQTTQueueLimit,
		MQTTDroppedMessages:        s.MQTTDroppedMessages,
		MQTTSpoolEnabled:           s.MQTTSpoolEnabled,
		MQTTSpoolDegraded:          s.MQTTSpoolDegraded,
		MQTTSpoolFailureReason:     s.MQTTSpoolFailureReason,
		ConsoleQueueSize:           s.ConsoleQueueSize,
		ConsoleDroppedChunks:       s.ConsoleDroppedChunks,
		MailboxQueueSize:           s.MailboxQueueSize,
		MailboxTruncatedBytes:      s.MailboxTruncatedBytes,
		MailboxInQueueSize:         s.MailboxInQueueSize,
		MailboxOutQueueSize:        s.MailboxOutQueueSize,
		FileStorageBytesUsed:       s.FileStorageBytesUsed,
		FileWriteLimitRejections:   s.FileWriteLimitRejections,
		FileStorageLimitRejections: s.FileStorageLimitRejections,
		PendingPinRequests:         s.PendingPinRequests,
		PendingPinRequestLimit:     s.PendingPinRequestLimit,
		PendingPinOverflows:        s.PendingPinOverflows,
		WatchdogEnabled:            s.WatchdogEnabled,
		WatchdogIntervalMS:         s.WatchdogIntervalMS,
		WatchdogLastHeartbeatMS:    s.WatchdogLastHeartbeatMS,
	}
}

// WriteSnapshot serialises the current state to path, writing to a
// sibling temp file first and renaming over the target so a reader never
// observes a partial write (spec.md §4.7's "rewritten atomically").
func (s *RuntimeState) WriteSnapshot(path string) error {
	snap := s.Snapshot()
	data, err := json.MarshalIndent(toJSON(snap), "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("state: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: rename temp snapshot: %w", err)
	}
	return nil
}
