// Package state implements RuntimeState (C8, spec.md §4.7): every counter
// and gauge the bridge exposes, mutated only from the daemon's scheduler
// and exported as a consistent snapshot to both a JSON file and a
// Prometheus text endpoint.
package state

import (
	"sync"

	"github.com/mculink/bridge/internal/link"
)

// RuntimeState holds every telemetry key spec.md §4.7 enumerates. It
// implements link.Recorder so the link layer can report directly into it.
// A mutex guards concurrent reads from the metrics HTTP handler goroutine
// against the scheduler's own mutations; spec.md's "mutation and export
// never interleave" is honoured by taking the lock around every mutation
// and around the snapshot the exporters take.
type RuntimeState struct {
	mu sync.RWMutex

	LinkState          string
	HandshakeSuccesses uint64
	HandshakeFailures  uint64
	LastMCUVersion     uint16

	SerialDecodeErrors    uint64
	SerialCRCErrors       uint64
	SerialMalformedErrors uint64
	SerialOverflowErrors  uint64

	MQTTQueueSize       int
	MQTTQueueLimit      int
	MQTTDroppedMessages uint64

	MQTTSpoolEnabled       bool
	MQTTSpoolDegraded      bool
	MQTTSpoolFailureReason string

	ConsoleQueueSize     int
	ConsoleDroppedChunks uint64
	MailboxQueueSize     int
	MailboxTruncatedBytes uint64
	MailboxInQueueSize   int
	MailboxOutQueueSize  int

	FileStorageBytesUsed      int
	FileWriteLimitRejections  uint64
	FileStorageLimitRejections uint64

	PendingPinRequests     int
	PendingPinRequestLimit int
	PendingPinOverflows    uint64

	WatchdogEnabled         bool
	WatchdogIntervalMS      int
	WatchdogLastHeartbeatMS int64
}

// New returns a zero-valued RuntimeState with LinkState seeded to the
// link layer's initial state name.
func New() *RuntimeState {
	return &RuntimeState{LinkState: link.Unsynchronized.String()}
}

// --- link.Recorder ---

func (s *RuntimeState) HandshakeSucceeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HandshakeSuccesses++
}

func (s *RuntimeState) HandshakeFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HandshakeFailures++
}

// DuplicateHandshake is intentionally not counted as an additional success
// (see internal/link's handshake replay handling) — it has no dedicated
// telemetry key in spec.md §4.7, so it is a no-op here by design.
func (s *RuntimeState) DuplicateHandshake() {}

func (s *RuntimeState) DuplicateFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SerialMalformedErrors++
}

func (s *RuntimeState) RetransmitAttempted() {}

func (s *RuntimeState) LinkStateChanged(from, to link.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LinkState = to.String()
}

func (s *RuntimeState) LinkFault(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SerialMalformedErrors++
	_ = reason
}

var _ link.Recorder = (*RuntimeState)(nil)

// --- scheduler-side setters for the counters link.Recorder doesn't cover ---

func (s *RuntimeState) SetLastMCUVersion(v uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastMCUVersion = v
}

func (s *RuntimeState) IncSerialDecodeError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SerialDecodeErrors++
}

func (s *RuntimeState) IncSerialCRCError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SerialCRCErrors++
}

func (s *RuntimeState) IncSerialOverflowError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SerialOverflowErrors++
}

func (s *RuntimeState) SetMQTTQueue(size, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MQTTQueueSize = size
	s.MQTTQueueLimit = limit
}

func (s *RuntimeState) IncMQTTDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MQTTDroppedMessages++
}

func (s *RuntimeState) SetSpool(enabled, degraded bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MQTTSpoolEnabled = enabled
	s.MQTTSpoolDegraded = degraded
	s.MQTTSpoolFailureReason = reason
}

func (s *RuntimeState) SetConsole(queueSize int, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConsoleQueueSize = queueSize
	s.ConsoleDroppedChunks = dropped
}

func (s *RuntimeState) SetMailbox(inDepth, outDepth int, truncatedBytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MailboxInQueueSize = inDepth
	s.MailboxOutQueueSize = outDepth
	s.MailboxQueueSize = inDepth + outDepth
	s.MailboxTruncatedBytes = truncatedBytes
}

func (s *RuntimeState) SetFileStorage(bytesUsed int, writeRejections, storageRejections uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FileStorageBytesUsed = bytesUsed
	s.FileWriteLimitRejections = writeRejections
	s.FileStorageLimitRejections = storageRejections
}

func (s *RuntimeState) SetPendingPins(requests, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PendingPinRequests = requests
	s.PendingPinRequestLimit = limit
}

func (s *RuntimeState) IncPendingPinOverflow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PendingPinOverflows++
}

func (s *RuntimeState) SetWatchdog(enabled bool, intervalMS int, lastHeartbeatMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WatchdogEnabled = enabled
	s.WatchdogIntervalMS = intervalMS
	s.WatchdogLastHeartbeatMS = lastHeartbeatMS
}

// Snapshot returns a value copy safe to serialise without holding the lock.
func (s *RuntimeState) Snapshot() RuntimeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *s
	cp.mu = sync.RWMutex{}
	return cp
}
