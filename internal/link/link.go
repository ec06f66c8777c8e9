// Package link implements the link state machine (C4): the mutual
// authentication handshake, stop-and-wait ARQ with retransmit and dedup,
// and the XON/XOFF flow-control plumbing that rides on the same ARQ.
//
// link depends only on small capability interfaces (Transport, Rules,
// Handler, Recorder) rather than on any concrete generated protocol
// package, so the identical state machine drives both the daemon
// (internal/protocol) and the simulated MCU peer (internal/mcuproto) — the
// "observer/registry" shape used to break the cyclic link/service
// ownership that a direct port would otherwise carry forward.
package link

import (
	"crypto/rand"
	"fmt"
	"time"
)

// State is one of the four link states. Entry to Unsynchronized or Fault
// drops all pending-request state on both sides.
type State int

const (
	Unsynchronized State = iota
	Idle
	AwaitingAck
	Fault
)

func (s State) String() string {
	switch s {
	case Unsynchronized:
		return "UNSYNCHRONIZED"
	case Idle:
		return "IDLE"
	case AwaitingAck:
		return "AWAITING_ACK"
	case Fault:
		return "FAULT"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IDs carries the numeric command/status identifiers the link layer itself
// needs to recognise or emit. Callers fill this in from whichever generated
// binding (internal/protocol or internal/mcuproto) they are wired to; link
// never imports either package directly.
type IDs struct {
	LinkReset    uint16
	LinkSync     uint16
	LinkSyncResp uint16

	StatusOK          uint16
	StatusAck         uint16
	StatusMalformed   uint16
	StatusCRCMismatch uint16
	StatusTimeout     uint16

	XON  uint16
	XOFF uint16
}

// Rules abstracts the per-command metadata a generated protocol package
// exposes (ack-required, idempotent, human name), so link can be driven by
// either generated binding without importing it.
type Rules interface {
	RequiresAck(id uint16) bool
	IsIdempotent(id uint16) bool
	Name(id uint16) string
}

// Transport is the capability link needs to put an encoded packet on the
// wire. internal/serialio implements it; link never sees a serial port.
type Transport interface {
	WritePacket(packet []byte) error
}

// Outcome is what a Handler returns after processing an inbound
// command/status frame that the link layer itself doesn't own.
type Outcome struct {
	HasResp     bool
	RespID      uint16
	RespPayload []byte
}

// Handler is the service engine's (C5) capability surface, as seen by
// link. It never calls back into a concrete *Link; link calls it.
type Handler interface {
	Handle(id uint16, payload []byte) Outcome
}

// Recorder receives link-layer telemetry events. internal/state implements
// it to update RuntimeState counters; link never imports internal/state,
// keeping the runtime-state singleton an explicitly-passed handle owned by
// the daemon rather than something the link layer reaches into.
type Recorder interface {
	HandshakeSucceeded()
	HandshakeFailed()
	DuplicateHandshake()
	DuplicateFrame()
	RetransmitAttempted()
	LinkStateChanged(from, to State)
	LinkFault(reason string)
}

// NopRecorder discards every event; useful in tests and for a peer that
// doesn't track telemetry (e.g. the simulated MCU).
type NopRecorder struct{}

func (NopRecorder) HandshakeSucceeded()        {}
func (NopRecorder) HandshakeFailed()           {}
func (NopRecorder) DuplicateHandshake()        {}
func (NopRecorder) DuplicateFrame()            {}
func (NopRecorder) RetransmitAttempted()       {}
func (NopRecorder) LinkStateChanged(_, _ State) {}
func (NopRecorder) LinkFault(_ string)          {}

// Config carries the handshake secret and ARQ timing. Zero Secret disables
// tag verification (lab/dev mode); production deployments always set one.
type Config struct {
	Secret     []byte
	NonceLen   int
	TagLen     int
	AckTimeout time.Duration
	RetryLimit int
	// FollowupQueueSize bounds the queue of sends buffered while
	// AwaitingAck; spec default is 4.
	FollowupQueueSize int
}

// queuedSend is a buffered outbound send waiting for the current
// AwaitingAck cycle to clear.
type queuedSend struct {
	id      uint16
	payload []byte
}

// pendingTX is the single in-flight acknowledged transmission.
type pendingTX struct {
	packet  []byte
	id      uint16
	sentAt  time.Time
	retries int
}

// Link is the C4 state machine. A single Link instance serves one serial
// peer; it is not safe for concurrent use — the daemon's cooperative
// scheduler is the only caller.
type Link struct {
	cfg       Config
	ids       IDs
	rules     Rules
	transport Transport
	handler   Handler
	rec       Recorder

	state State

	pending *pendingTX
	queue   []queuedSend

	lastRecvCRC  uint32
	lastRecvAt   time.Time
	haveLastRecv bool

	handshakeNonce    []byte // nonce this side sent as LINK_SYNC initiator
	peerSyncNonce     []byte // last nonce accepted from a peer LINK_SYNC
	handshakeComplete bool
}

// New constructs a Link in the Unsynchronized state.
func New(cfg Config, ids IDs, rules Rules, transport Transport, handler Handler, rec Recorder) *Link {
	if cfg.FollowupQueueSize <= 0 {
		cfg.FollowupQueueSize = 4
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Link{
		cfg:       cfg,
		ids:       ids,
		rules:     rules,
		transport: transport,
		handler:   handler,
		rec:       rec,
		state:     Unsynchronized,
	}
}

// State returns the current link state.
func (l *Link) State() State { return l.state }

func (l *Link) setState(next State) {
	if next == l.state {
		return
	}
	prev := l.state
	l.state = next
	l.rec.LinkStateChanged(prev, next)
	if next == Unsynchronized || next == Fault {
		l.pending = nil
		l.queue = nil
		l.handshakeComplete = false
	}
}

// StartHandshake emits LINK_SYNC with a fresh random nonce (and, when a
// secret is configured, an HMAC tag over it) and resets to Unsynchronized
// so the peer's reply is evaluated from a clean slate.
func (l *Link) StartHandshake() error {
	l.setState(Unsynchronized)
	nonce := make([]byte, l.cfg.NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("link: generating handshake nonce: %w", err)
	}
	l.handshakeNonce = nonce
	payload := l.syncPayload(nonce)
	return l.transport.WritePacket(l.mustPacket(l.ids.LinkSync, payload))
}

// Send queues id/payload for transmission. Commands in requiresAck enter
// the stop-and-wait cycle: if the link is Idle the packet goes out
// immediately and the link moves to AwaitingAck; otherwise it is appended
// to the bounded follow-up queue. Commands that don't require ACK (status
// frames, responses) bypass the ARQ entirely and are written immediately.
func (l *Link) Send(id uint16, payload []byte) error {
	if !l.rules.RequiresAck(id) {
		return l.transport.WritePacket(l.mustPacket(id, payload))
	}
	if l.state == Idle {
		return l.transmit(id, payload)
	}
	if len(l.queue) >= l.cfg.FollowupQueueSize {
		return fmt.Errorf("link: follow-up queue full (%d), dropping %s", l.cfg.FollowupQueueSize, l.rules.Name(id))
	}
	l.queue = append(l.queue, queuedSend{id: id, payload: payload})
	return nil
}

func (l *Link) transmit(id uint16, payload []byte) error {
	packet, err := l.encode(id, payload)
	if err != nil {
		return err
	}
	l.pending = &pendingTX{packet: packet, id: id, sentAt: l.now(), retries: 0}
	l.setState(AwaitingAck)
	return l.transport.WritePacket(packet)
}

func (l *Link) retransmit(now time.Time) error {
	if l.pending == nil {
		return nil
	}
	l.pending.sentAt = now
	l.pending.retries++
	l.rec.RetransmitAttempted()
	return l.transport.WritePacket(l.pending.packet)
}

// Tick is called periodically by the daemon's scheduler (an explicit yield
// point, never a background timer) to evaluate ACK timeouts. now is
// threaded through explicitly rather than read from the wall clock so the
// caller's scheduler loop is the only source of time.
func (l *Link) Tick(now time.Time) error {
	if l.state != AwaitingAck || l.pending == nil {
		return nil
	}
	if now.Sub(l.pending.sentAt) < l.cfg.AckTimeout {
		return nil
	}
	if l.pending.retries < l.cfg.RetryLimit {
		return l.retransmit(now)
	}
	l.rec.LinkFault("ack timeout, retry limit exhausted")
	l.setState(Unsynchronized)
	return nil
}

func (l *Link) now() time.Time { return time.Now() }

func (l *Link) drainOne() error {
	if len(l.queue) == 0 {
		return nil
	}
	next := l.queue[0]
	l.queue = l.queue[1:]
	return l.transmit(next.id, next.payload)
}

func (l *Link) encode(id uint16, payload []byte) ([]byte, error) {
	return packetEncode(id, payload)
}

func (l *Link) mustPacket(id uint16, payload []byte) []byte {
	p, err := packetEncode(id, payload)
	if err != nil {
		// id/payload are always internally constructed and within bounds;
		// a failure here means a protocol-layer invariant broke.
		panic(fmt.Sprintf("link: encoding %s: %v", l.rules.Name(id), err))
	}
	return p
}
