package service

import (
	"github.com/mculink/bridge/internal/link"
)

// ConsoleSender is the capability Console needs to chunk outbound bytes
// onto the wire — satisfied by *link.Link.
type ConsoleSender interface {
	Send(id uint16, payload []byte) error
}

// Console implements the bidirectional text stream (spec.md §4.4):
// inbound CONSOLE_WRITE payloads land in a bounded RX ring (truncating
// and counting drops past capacity, per spec); XON/XOFF received from the
// peer pause/resume this side's own outbound flushing; outbound bytes are
// chunked into at-most-MaxPayload frames.
type Console struct {
	ids struct {
		consoleWrite uint16
	}
	rx         *link.WatermarkRing
	sender     ConsoleSender
	maxPayload int

	txQueue  []byte
	txPaused bool

	dropped int
}

// NewConsole wires consoleWrite (the id used both for inbound frames and
// for chunked outbound writes) to an RX ring sized rxCapacity, signalling
// XON/XOFF through signal, and bounding outbound chunks to maxPayload.
func NewConsole(consoleWrite uint16, rxCapacity, maxPayload int, signal link.FlowSignal, sender ConsoleSender) *Console {
	c := &Console{sender: sender, maxPayload: maxPayload}
	c.ids.consoleWrite = consoleWrite
	c.rx = link.NewWatermarkRing(rxCapacity, signal)
	return c
}

// RegisterOn wires CONSOLE_WRITE (inbound) and XON/XOFF into engine.
func (c *Console) RegisterOn(e *Engine, xon, xoff uint16) {
	e.RegisterFunc(c.ids.consoleWrite, c.handleConsoleWrite)
	e.RegisterFunc(xon, c.handleXON)
	e.RegisterFunc(xoff, c.handleXOFF)
}

func (c *Console) handleConsoleWrite(payload []byte) link.Outcome {
	before := c.rx.Dropped()
	_ = c.rx.Push(payload)
	c.dropped += c.rx.Dropped() - before
	return link.Outcome{}
}

func (c *Console) handleXON([]byte) link.Outcome {
	c.txPaused = false
	return link.Outcome{}
}

func (c *Console) handleXOFF([]byte) link.Outcome {
	c.txPaused = true
	return link.Outcome{}
}

// Read drains up to n bytes the peer has written into our RX ring (the
// local application's view of incoming console data).
func (c *Console) Read(n int) ([]byte, error) {
	return c.rx.Consume(n)
}

// Dropped reports bytes discarded because the RX ring was full.
func (c *Console) Dropped() int { return c.dropped }

// Write appends data to the outbound backlog; Flush drains it onto the
// wire in maxPayload-sized chunks once unpaused.
func (c *Console) Write(data []byte) {
	c.txQueue = append(c.txQueue, data...)
}

// Flush is called by the daemon's scheduler loop (an explicit yield
// point) to drain as much of the outbound backlog as the link will
// currently accept. It stops as soon as the peer has asked us to pause.
func (c *Console) Flush() error {
	for !c.txPaused && len(c.txQueue) > 0 {
		n := c.maxPayload
		if n > len(c.txQueue) {
			n = len(c.txQueue)
		}
		chunk := c.txQueue[:n]
		if err := c.sender.Send(c.ids.consoleWrite, chunk); err != nil {
			return err
		}
		c.txQueue = c.txQueue[n:]
	}
	return nil
}
