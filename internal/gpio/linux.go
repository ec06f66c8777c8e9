package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// Linux drives real pins through a GPIO character-device chip
// (/dev/gpiochipN), the way the teacher drives PTT through libgpiod —
// generalized here from a single fixed PTT line to an arbitrary pin set
// requested on demand as SET_PIN_MODE commands arrive. There is
// no portable analog API on a GPIO chardev chip, so AnalogRead/AnalogWrite
// report an error: a deployment that needs analog I/O must route it
// through a dedicated ADC/PWM chip outside this backend.
type Linux struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewLinux opens chipName (e.g. "gpiochip0") for on-demand line requests.
func NewLinux(chipName string) (*Linux, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("gpio: opening %s: %w", chipName, err)
	}
	return &Linux{chip: chip, lines: make(map[int]*gpiocdev.Line)}, nil
}

func (l *Linux) SetMode(pin int, mode Mode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.lines[pin]; ok {
		existing.Close()
		delete(l.lines, pin)
	}
	var opt gpiocdev.LineReqOption
	if mode == ModeOutput {
		opt = gpiocdev.AsOutput(0)
	} else {
		opt = gpiocdev.AsInput
	}
	line, err := l.chip.RequestLine(pin, opt)
	if err != nil {
		return fmt.Errorf("gpio: requesting pin %d: %w", pin, err)
	}
	l.lines[pin] = line
	return nil
}

func (l *Linux) line(pin int) (*gpiocdev.Line, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line, ok := l.lines[pin]
	if !ok {
		return nil, fmt.Errorf("%w: %d (no SET_PIN_MODE received yet)", ErrUnknownPin, pin)
	}
	return line, nil
}

func (l *Linux) DigitalRead(pin int) (bool, error) {
	line, err := l.line(pin)
	if err != nil {
		return false, err
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("gpio: reading pin %d: %w", pin, err)
	}
	return v != 0, nil
}

func (l *Linux) DigitalWrite(pin int, value bool) error {
	line, err := l.line(pin)
	if err != nil {
		return err
	}
	v := 0
	if value {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("gpio: writing pin %d: %w", pin, err)
	}
	return nil
}

func (l *Linux) AnalogRead(pin int) (uint16, error) {
	return 0, fmt.Errorf("gpio: pin %d: analog read not supported on a gpiochip backend", pin)
}

func (l *Linux) AnalogWrite(pin int, value uint16) error {
	return fmt.Errorf("gpio: pin %d: analog write not supported on a gpiochip backend", pin)
}

func (l *Linux) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		line.Close()
	}
	return l.chip.Close()
}
