package link

import "fmt"

// FlowSignal is the capability a watermark ring needs to tell its peer to
// pause or resume. *Link implements it by routing XON/XOFF through the
// same ARQ as any other ack-required command.
type FlowSignal interface {
	SendXOFF() error
	SendXON() error
}

// SendXOFF queues the configured XOFF command through the ARQ.
func (l *Link) SendXOFF() error { return l.Send(l.ids.XOFF, nil) }

// SendXON queues the configured XON command through the ARQ.
func (l *Link) SendXON() error { return l.Send(l.ids.XON, nil) }

// WatermarkRing is a bounded byte ring with 3/4-capacity high and
// 1/4-capacity low watermarks (spec §4.3 flow control). Crossing the high
// watermark emits exactly one XOFF; draining back below the low watermark
// emits exactly one XON. internal/service embeds one per RX direction
// (console, mailbox).
type WatermarkRing struct {
	buf      []byte
	capacity int
	high     int
	low      int
	xoffSent bool
	signal   FlowSignal

	dropped int
}

// NewWatermarkRing returns a ring of the given byte capacity, signalling
// flow control through signal.
func NewWatermarkRing(capacity int, signal FlowSignal) *WatermarkRing {
	return &WatermarkRing{
		capacity: capacity,
		high:     capacity * 3 / 4,
		low:      capacity / 4,
		signal:   signal,
	}
}

// Push appends b, truncating (and counting drops) if it would exceed
// capacity, then re-evaluates the high watermark.
func (r *WatermarkRing) Push(b []byte) error {
	room := r.capacity - len(r.buf)
	if room <= 0 {
		r.dropped += len(b)
		return fmt.Errorf("watermark ring: full, dropped %d bytes", len(b))
	}
	n := len(b)
	if n > room {
		r.dropped += n - room
		n = room
	}
	r.buf = append(r.buf, b[:n]...)
	if !r.xoffSent && len(r.buf) >= r.high {
		r.xoffSent = true
		if err := r.signal.SendXOFF(); err != nil {
			return err
		}
	}
	if n < len(b) {
		return fmt.Errorf("watermark ring: truncated, dropped %d bytes", len(b)-n)
	}
	return nil
}

// Consume removes up to n bytes from the front of the ring and
// re-evaluates the low watermark.
func (r *WatermarkRing) Consume(n int) ([]byte, error) {
	if n > len(r.buf) {
		n = len(r.buf)
	}
	out := append([]byte(nil), r.buf[:n]...)
	r.buf = r.buf[n:]
	if r.xoffSent && len(r.buf) <= r.low {
		r.xoffSent = false
		if err := r.signal.SendXON(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Len reports the number of bytes currently buffered.
func (r *WatermarkRing) Len() int { return len(r.buf) }

// Dropped reports the cumulative number of bytes discarded for capacity.
func (r *WatermarkRing) Dropped() int { return r.dropped }
