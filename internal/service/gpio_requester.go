package service

import "github.com/mculink/bridge/internal/link"

// PinRequest correlates an MQTT-originated GPIO read with the eventual
// *_READ_RESP frame the MCU sends back.
type PinRequest struct {
	Pin         int
	Correlation any
}

// PinResult is delivered once the MCU answers a pending read.
type PinResult struct {
	Pin         int
	Value       uint16
	Correlation any
}

// GPIORequester is the MPU-side half of GPIO reads: it owns the pending
// tables from spec.md §3 ("GPIO read table: FIFO of (pin, requester
// correlation) entries awaiting a *_READ_RESP") and is the only thing
// that ever sends DIGITAL_READ/ANALOG_READ — the MCU-side GPIO handler
// (GPIO, in gpio_handler.go) never initiates one, which is how "the MCU
// rejects MCU-initiated read requests" holds structurally rather than by
// a runtime check.
type GPIORequester struct {
	digitalReadID, analogReadID     uint16
	digitalPending, analogPending   *PendingTable[PinRequest]
	sender                          ConsoleSender

	OnDigitalResult func(PinResult)
	OnAnalogResult  func(PinResult)
}

// NewGPIORequester bounds each pending table to limit outstanding reads.
func NewGPIORequester(digitalReadID, analogReadID uint16, limit int, sender ConsoleSender) *GPIORequester {
	return &GPIORequester{
		digitalReadID:  digitalReadID,
		analogReadID:   analogReadID,
		digitalPending: NewPendingTable[PinRequest](limit, "pending-pin-overflow"),
		analogPending:  NewPendingTable[PinRequest](limit, "pending-pin-overflow"),
		sender:         sender,
	}
}

// RequestDigitalRead queues a correlation entry and emits DIGITAL_READ.
// Returns the pending-table error (pending-pin-overflow) without sending
// anything when the table is already full.
func (g *GPIORequester) RequestDigitalRead(pin int, corr any) error {
	if err := g.digitalPending.Push(PinRequest{Pin: pin, Correlation: corr}); err != nil {
		return err
	}
	return g.sender.Send(g.digitalReadID, []byte{byte(pin)})
}

// RequestAnalogRead is RequestDigitalRead's analog-pin counterpart.
func (g *GPIORequester) RequestAnalogRead(pin int, corr any) error {
	if err := g.analogPending.Push(PinRequest{Pin: pin, Correlation: corr}); err != nil {
		return err
	}
	return g.sender.Send(g.analogReadID, []byte{byte(pin)})
}

// PendingDigitalReads / PendingAnalogReads expose current queue depth for
// telemetry (spec's pending_pin_requests / pending_pin_request_limit).
func (g *GPIORequester) PendingDigitalReads() int { return g.digitalPending.Len() }
func (g *GPIORequester) PendingAnalogReads() int  { return g.analogPending.Len() }

// RegisterOn wires the *_RESP ids into engine.
func (g *GPIORequester) RegisterOn(e *Engine, digitalReadResp, analogReadResp uint16) {
	e.RegisterFunc(digitalReadResp, g.handleDigitalResp)
	e.RegisterFunc(analogReadResp, g.handleAnalogResp)
}

func (g *GPIORequester) handleDigitalResp(payload []byte) link.Outcome {
	req, ok := g.digitalPending.Pop()
	if !ok || len(payload) < 3 {
		return link.Outcome{}
	}
	value := uint16(payload[1])<<8 | uint16(payload[2])
	if g.OnDigitalResult != nil {
		g.OnDigitalResult(PinResult{Pin: req.Pin, Value: value, Correlation: req.Correlation})
	}
	return link.Outcome{}
}

func (g *GPIORequester) handleAnalogResp(payload []byte) link.Outcome {
	req, ok := g.analogPending.Pop()
	if !ok || len(payload) < 3 {
		return link.Outcome{}
	}
	value := uint16(payload[1])<<8 | uint16(payload[2])
	if g.OnAnalogResult != nil {
		g.OnAnalogResult(PinResult{Pin: req.Pin, Value: value, Correlation: req.Correlation})
	}
	return link.Outcome{}
}
