// Package gpio abstracts the pin-level backend the MCU-side service engine
// (internal/service) drives for SET_PIN_MODE/DIGITAL_*/ANALOG_* commands.
// Two backends are provided: an in-memory simulated pin bank (the default,
// used by cmd/mcubridge-sim when no real hardware is attached) and a real
// Linux GPIO character-device backend for lab setups with actual wiring.
package gpio

import "fmt"

// Mode is a pin's direction/role.
type Mode int

const (
	ModeInput Mode = iota
	ModeOutput
)

// Backend is the capability internal/service needs from whatever owns the
// physical (or simulated) pins.
type Backend interface {
	SetMode(pin int, mode Mode) error
	DigitalRead(pin int) (bool, error)
	DigitalWrite(pin int, value bool) error
	AnalogRead(pin int) (uint16, error)
	AnalogWrite(pin int, value uint16) error
	Close() error
}

// ErrUnknownPin is returned by a backend for a pin number it doesn't model.
var ErrUnknownPin = fmt.Errorf("gpio: unknown pin")
