package service

import (
	"encoding/binary"
	"fmt"

	"github.com/mculink/bridge/internal/link"
)

// mailboxQueue is a FIFO of messages bounded by both count and total
// bytes (spec.md §4.4: "independent byte and message-count limits").
type mailboxQueue struct {
	messages  [][]byte
	bytes     int
	msgLimit  int
	byteLimit int
}

func newMailboxQueue(msgLimit, byteLimit int) *mailboxQueue {
	return &mailboxQueue{msgLimit: msgLimit, byteLimit: byteLimit}
}

func (q *mailboxQueue) push(msg []byte) error {
	if len(q.messages) >= q.msgLimit {
		return fmt.Errorf("mailbox: message count limit %d reached", q.msgLimit)
	}
	if q.bytes+len(msg) > q.byteLimit {
		return fmt.Errorf("mailbox: byte limit %d reached", q.byteLimit)
	}
	q.messages = append(q.messages, append([]byte(nil), msg...))
	q.bytes += len(msg)
	return nil
}

func (q *mailboxQueue) pop() ([]byte, bool) {
	if len(q.messages) == 0 {
		return nil, false
	}
	m := q.messages[0]
	q.messages = q.messages[1:]
	q.bytes -= len(m)
	return m, true
}

func (q *mailboxQueue) depth() int { return len(q.messages) }

// Mailbox implements the two independent FIFOs from spec.md §4.4: "in"
// carries messages toward the MCU (MAILBOX_READ consumes from it), "out"
// carries messages the MCU pushed (MAILBOX_PUSH appends to it) for MQTT
// consumers to drain.
type Mailbox struct {
	readRespID, availableRespID uint16
	in, out                     *mailboxQueue
}

// NewMailbox bounds both FIFOs identically; callers needing asymmetric
// limits can construct the queues directly.
func NewMailbox(readRespID, availableRespID uint16, msgLimit, byteLimit int) *Mailbox {
	return &Mailbox{
		readRespID:      readRespID,
		availableRespID: availableRespID,
		in:              newMailboxQueue(msgLimit, byteLimit),
		out:             newMailboxQueue(msgLimit, byteLimit),
	}
}

// RegisterOn wires MAILBOX_PUSH/READ/AVAILABLE into engine.
func (m *Mailbox) RegisterOn(e *Engine, push, read, available uint16) {
	e.RegisterFunc(push, m.handlePush)
	e.RegisterFunc(read, m.handleRead)
	e.RegisterFunc(available, m.handleAvailable)
}

func (m *Mailbox) handlePush(payload []byte) link.Outcome {
	m.out.push(payload)
	return link.Outcome{}
}

func (m *Mailbox) handleRead([]byte) link.Outcome {
	msg, _ := m.in.pop()
	return link.Outcome{HasResp: true, RespID: m.readRespID, RespPayload: msg}
}

func (m *Mailbox) handleAvailable([]byte) link.Outcome {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(m.in.depth()))
	return link.Outcome{HasResp: true, RespID: m.availableRespID, RespPayload: payload}
}

// PushIn enqueues an MQTT-originated message for the MCU to read.
func (m *Mailbox) PushIn(msg []byte) error { return m.in.push(msg) }

// PopOut dequeues a message the MCU pushed, for an MQTT publisher to send.
func (m *Mailbox) PopOut() ([]byte, bool) { return m.out.pop() }

// InDepth / OutDepth back the mailbox_queue_size telemetry keys.
func (m *Mailbox) InDepth() int  { return m.in.depth() }
func (m *Mailbox) OutDepth() int { return m.out.depth() }
