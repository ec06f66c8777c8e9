package link

import (
	"testing"
	"time"

	"github.com/mculink/bridge/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDuplicateCommandFrameAppliesOnce exercises the dedup window from
// spec §3: a command frame resent with an identical CRC inside the replay
// window gets ACKed again (the sender needs that to stop retransmitting)
// but must not reach the handler a second time.
func TestDuplicateCommandFrameAppliesOnce(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, tr, h, rec := newTestLink(secret)
	nonce := make([]byte, 16)
	handshakeAsResponder(t, l, tr, secret, nonce)

	f := frame.Frame{CommandID: idDigitalWrite, Payload: []byte{13, 1}, CRC: 0xdeadbeef}
	require.NoError(t, l.HandleFrame(f))
	assert.Equal(t, []uint16{idDigitalWrite}, h.calls)
	acksAfterFirst := len(tr.packets)

	// Wait past ack_timeout (50ms) but within ack_timeout*(retry_limit+1)
	// (200ms) so isReplay recognises the resend as a replay, not a fresh
	// frame arriving long after the window closed.
	time.Sleep(75 * time.Millisecond)

	require.NoError(t, l.HandleFrame(f))
	assert.Equal(t, []uint16{idDigitalWrite}, h.calls, "handler must not be invoked twice for a replayed frame")
	assert.Equal(t, 1, rec.duplicateFrames)
	assert.Equal(t, acksAfterFirst+1, len(tr.packets), "a replay of an ack-required command still gets ACKed")
	resp := tr.lastFrame(t)
	assert.Equal(t, uint16(statusAck), resp.CommandID)
}
