// Package serialio is the physical serial transport: raw-mode line
// discipline, baud rate changes, and hot-plug reconnect, generalizing the
// teacher's serial_port_open/_write/_get1 trio (src/serial_port.go) from a
// fixed-speed-at-open-time TNC connection to the bridge's scheduled
// SET_BAUDRATE semantics and its link.Transport/service.BaudSetter
// capabilities.
package serialio

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/term"
)

var supportedBauds = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true, 19200: true,
	38400: true, 57600: true, 115200: true, 230400: true, 250000: true,
}

// Port wraps a pkg/term.Term, satisfying link.Transport (WritePacket) and
// service.BaudSetter (ScheduleBaudChange).
type Port struct {
	mu     sync.Mutex
	device string
	fd     *term.Term
	timers []*time.Timer
}

// Open opens device at baud (0 leaves the current speed alone, matching
// the teacher's serial_port_open switch).
func Open(device string, baud int) (*Port, error) {
	fd, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serialio: open %s: %w", device, err)
	}
	p := &Port{device: device, fd: fd}
	if baud != 0 {
		if err := p.setSpeedLocked(baud); err != nil {
			fd.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *Port) setSpeedLocked(baud int) error {
	if !supportedBauds[baud] {
		return fmt.Errorf("serialio: unsupported baud rate %d", baud)
	}
	return p.fd.SetSpeed(baud)
}

// WritePacket satisfies link.Transport: one already-COBS-framed packet per
// call, written as a single write syscall.
func (p *Port) WritePacket(packet []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.fd.Write(packet)
	if err != nil {
		return fmt.Errorf("serialio: write: %w", err)
	}
	if n != len(packet) {
		return fmt.Errorf("serialio: short write: %d of %d bytes", n, len(packet))
	}
	return nil
}

// ReadByte blocks for a single byte, feeding internal/frame.Decoder.
func (p *Port) ReadByte() (byte, error) {
	buf := make([]byte, 1)
	n, err := p.fd.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("serialio: read: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("serialio: read returned zero bytes")
	}
	return buf[0], nil
}

// ScheduleBaudChange satisfies service.BaudSetter: the switch happens
// after, not during, the response frame's transmission, per spec.md §4.4's
// 50 ms settling delay.
func (p *Port) ScheduleBaudChange(baud uint32, after time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers = append(p.timers, time.AfterFunc(after, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		_ = p.setSpeedLocked(int(baud))
	}))
}

// Close releases the underlying file descriptor and pending baud timers.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.timers {
		t.Stop()
	}
	return p.fd.Close()
}
