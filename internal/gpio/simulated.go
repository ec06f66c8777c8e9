package gpio

// Simulated is an in-memory pin bank: digital pins hold a bool, analog
// pins hold a uint16 duty/level. It never errors on an unknown pin —
// instead it lazily adopts the pin at its zero value — since the
// simulated MCU peer has no fixed pinout to validate against.
type Simulated struct {
	modes   map[int]Mode
	digital map[int]bool
	analog  map[int]uint16
}

// NewSimulated returns a ready-to-use simulated pin bank.
func NewSimulated() *Simulated {
	return &Simulated{
		modes:   make(map[int]Mode),
		digital: make(map[int]bool),
		analog:  make(map[int]uint16),
	}
}

func (s *Simulated) SetMode(pin int, mode Mode) error {
	s.modes[pin] = mode
	return nil
}

func (s *Simulated) DigitalRead(pin int) (bool, error) {
	return s.digital[pin], nil
}

func (s *Simulated) DigitalWrite(pin int, value bool) error {
	s.digital[pin] = value
	return nil
}

func (s *Simulated) AnalogRead(pin int) (uint16, error) {
	return s.analog[pin], nil
}

func (s *Simulated) AnalogWrite(pin int, value uint16) error {
	s.analog[pin] = value
	return nil
}

func (s *Simulated) Close() error { return nil }
