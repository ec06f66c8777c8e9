package service

import (
	"github.com/mculink/bridge/internal/gpio"
	"github.com/mculink/bridge/internal/link"
)

// GPIOIDs carries the response identifiers the GPIO handler emits.
type GPIOIDs struct {
	DigitalReadResp uint16
	AnalogReadResp  uint16
}

// GPIO executes SET_PIN_MODE/DIGITAL_*/ANALOG_* against a backend
// (simulated pin bank or real gpiochip). Reads are always MPU-initiated;
// this handler has no code path for emitting an unsolicited read, which is
// how "the MCU rejects MCU-initiated read requests" (spec.md §4.4) holds —
// there's simply no trigger that would produce one.
type GPIO struct {
	ids     GPIOIDs
	backend gpio.Backend
}

// NewGPIO wraps backend behind the wire protocol's pin commands.
func NewGPIO(ids GPIOIDs, backend gpio.Backend) *GPIO {
	return &GPIO{ids: ids, backend: backend}
}

// RegisterOn wires every GPIO command into engine.
func (g *GPIO) RegisterOn(e *Engine, setPinMode, digitalRead, digitalWrite, analogRead, analogWrite uint16) {
	e.RegisterFunc(setPinMode, g.handleSetPinMode)
	e.RegisterFunc(digitalRead, g.handleDigitalRead)
	e.RegisterFunc(digitalWrite, g.handleDigitalWrite)
	e.RegisterFunc(analogRead, g.handleAnalogRead)
	e.RegisterFunc(analogWrite, g.handleAnalogWrite)
}

func pinValuePayload(pin byte, value uint16) []byte {
	return []byte{pin, byte(value >> 8), byte(value)}
}

func (g *GPIO) handleSetPinMode(payload []byte) link.Outcome {
	if len(payload) < 2 {
		return link.Outcome{}
	}
	mode := gpio.ModeInput
	if payload[1] != 0 {
		mode = gpio.ModeOutput
	}
	g.backend.SetMode(int(payload[0]), mode)
	return link.Outcome{}
}

func (g *GPIO) handleDigitalRead(payload []byte) link.Outcome {
	if len(payload) < 1 {
		return link.Outcome{}
	}
	pin := payload[0]
	v, err := g.backend.DigitalRead(int(pin))
	value := uint16(0)
	if err == nil && v {
		value = 1
	}
	return link.Outcome{HasResp: true, RespID: g.ids.DigitalReadResp, RespPayload: pinValuePayload(pin, value)}
}

func (g *GPIO) handleDigitalWrite(payload []byte) link.Outcome {
	if len(payload) < 2 {
		return link.Outcome{}
	}
	g.backend.DigitalWrite(int(payload[0]), payload[1] != 0)
	return link.Outcome{}
}

func (g *GPIO) handleAnalogRead(payload []byte) link.Outcome {
	if len(payload) < 1 {
		return link.Outcome{}
	}
	pin := payload[0]
	v, _ := g.backend.AnalogRead(int(pin))
	return link.Outcome{HasResp: true, RespID: g.ids.AnalogReadResp, RespPayload: pinValuePayload(pin, v)}
}

func (g *GPIO) handleAnalogWrite(payload []byte) link.Outcome {
	if len(payload) < 3 {
		return link.Outcome{}
	}
	value := uint16(payload[1])<<8 | uint16(payload[2])
	g.backend.AnalogWrite(int(payload[0]), value)
	return link.Outcome{}
}
