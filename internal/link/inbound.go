package link

import (
	"fmt"
	"time"

	"github.com/mculink/bridge/internal/frame"
)

// HandleFrame processes one fully-decoded inbound frame (C1 has already
// verified CRC and framing). It is the single entry point the daemon's
// serial-RX task calls.
func (l *Link) HandleFrame(f frame.Frame) error {
	switch f.CommandID {
	case l.ids.LinkReset:
		l.handshakeComplete = false
		l.setState(Unsynchronized)
		return nil
	case l.ids.LinkSync:
		return l.handleLinkSync(f.Payload)
	case l.ids.LinkSyncResp:
		return l.handleLinkSyncResp(f.Payload)
	}

	if !l.handshakeComplete && !l.isStatusID(f.CommandID) {
		return fmt.Errorf("link: rejecting %s before handshake completes", l.rules.Name(f.CommandID))
	}

	if l.isStatusID(f.CommandID) {
		return l.handleStatus(f.CommandID, f.Payload)
	}
	return l.handleCommand(f.CommandID, f.Payload, f.CRC)
}

func (l *Link) isStatusID(id uint16) bool {
	switch id {
	case l.ids.StatusOK, l.ids.StatusAck, l.ids.StatusMalformed, l.ids.StatusCRCMismatch, l.ids.StatusTimeout:
		return true
	}
	return false
}

// handleStatus processes an inbound status frame. ACK and MALFORMED drive
// the ARQ directly; every other status is handed to the service engine in
// case it tracks per-request outcomes (e.g. a TIMEOUT reported by the MCU).
func (l *Link) handleStatus(id uint16, payload []byte) error {
	switch id {
	case l.ids.StatusAck:
		if l.state != AwaitingAck || l.pending == nil {
			return nil // stray or duplicate ACK, ignore
		}
		if len(payload) < 2 || payload[1] != byte(l.pending.id) {
			return nil // ACK for a command we aren't waiting on
		}
		l.pending = nil
		l.setState(Idle)
		return l.drainOne()
	case l.ids.StatusMalformed:
		if l.state != AwaitingAck || l.pending == nil {
			return nil
		}
		if l.pending.retries < l.cfg.RetryLimit {
			return l.retransmit(l.now())
		}
		l.rec.LinkFault("malformed response, retry limit exhausted")
		l.setState(Unsynchronized)
		return nil
	default:
		return l.respond(l.handler.Handle(id, payload))
	}
}

// handleCommand applies the dedup window, invokes the service handler
// exactly once per distinct frame, and ACKs when the command requires it.
func (l *Link) handleCommand(id uint16, payload []byte, crc uint32) error {
	if l.isReplay(crc) {
		l.rec.DuplicateFrame()
		if l.rules.RequiresAck(id) {
			return l.transport.WritePacket(l.mustPacket(l.ids.StatusAck, ackPayload(id)))
		}
		return nil
	}
	l.lastRecvCRC = crc
	l.lastRecvAt = l.now()
	l.haveLastRecv = true

	out := l.handler.Handle(id, payload)
	if l.rules.RequiresAck(id) {
		if err := l.transport.WritePacket(l.mustPacket(l.ids.StatusAck, ackPayload(id))); err != nil {
			return err
		}
	}
	return l.respond(out)
}

// isReplay implements the dedup window from spec §3: a frame whose CRC
// matches the last-seen CRC is a replay when the elapsed time lies in
// (ack_timeout, ack_timeout*(retry_limit+1)).
func (l *Link) isReplay(crc uint32) bool {
	if !l.haveLastRecv || crc != l.lastRecvCRC {
		return false
	}
	elapsed := l.now().Sub(l.lastRecvAt)
	upper := l.cfg.AckTimeout * time.Duration(l.cfg.RetryLimit+1)
	return elapsed > l.cfg.AckTimeout && elapsed < upper
}

func (l *Link) respond(out Outcome) error {
	if !out.HasResp {
		return nil
	}
	return l.transport.WritePacket(l.mustPacket(out.RespID, out.RespPayload))
}

// ackPayload matches the E1 scenario's literal wire shape: a reserved
// status byte followed by the acknowledged command id's low byte.
func ackPayload(id uint16) []byte {
	return []byte{0x00, byte(id)}
}
