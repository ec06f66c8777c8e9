package serialio

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// There is no real serial hardware in a test environment, so these tests
// open a pseudo-terminal pair the way the teacher's own kisspt_open_pt
// does (github.com/creack/pty) and point Port at the slave's device node.
// Baud changes are exercised against the validation table only — a pty
// has no physical UART, so SetSpeed against one is not representative of
// real hardware and is left untested here.

func openTestPort(t *testing.T) (*Port, func()) {
	t.Helper()
	ptmx, pts, err := pty.Open()
	require.NoError(t, err)

	p, err := Open(pts.Name(), 0)
	require.NoError(t, err)

	return p, func() {
		p.Close()
		ptmx.Close()
		pts.Close()
	}
}

func TestPortWritePacketRoundTrip(t *testing.T) {
	p, closeAll := openTestPort(t)
	defer closeAll()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 3)
		n, _ := p.fd.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, p.WritePacket([]byte{1, 2, 3}))

	select {
	case got := <-done:
		assert.Equal(t, []byte{1, 2, 3}, got)
	case <-time.After(time.Second):
		t.Fatal("did not observe written bytes")
	}
}

func TestSetSpeedLockedRejectsUnsupportedBaud(t *testing.T) {
	p, closeAll := openTestPort(t)
	defer closeAll()

	err := p.setSpeedLocked(1234567)
	assert.Error(t, err)
}

func TestScheduleBaudChangeRecordsTimer(t *testing.T) {
	p, closeAll := openTestPort(t)
	defer closeAll()

	p.ScheduleBaudChange(9600, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.timers, 1)
}
