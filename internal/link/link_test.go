package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mculink/bridge/internal/frame"
	"github.com/mculink/bridge/internal/security"
)

func tagFor(secret, nonce []byte) []byte {
	return security.Tag(secret, nonce, 16)
}

// fakeTransport records every packet written, exposing it for decoding in
// assertions instead of a real serial port.
type fakeTransport struct {
	packets [][]byte
}

func (t *fakeTransport) WritePacket(p []byte) error {
	t.packets = append(t.packets, append([]byte(nil), p...))
	return nil
}

func (t *fakeTransport) lastFrame(tb testing.TB) frame.Frame {
	tb.Helper()
	require.NotEmpty(tb, t.packets)
	last := t.packets[len(t.packets)-1]
	dec := frame.NewDecoder()
	var ev frame.Event
	for _, b := range last {
		if e := dec.Feed(b); e.Ready {
			ev = e
		}
	}
	require.True(tb, ev.Ready)
	require.NoError(tb, ev.Err)
	return ev.Frame
}

// fakeRules treats a fixed set of ids as ack-required; everything else
// (statuses, responses) is fire-and-forget, mirroring internal/protocol's
// RequiresAck table without importing it.
type fakeRules struct {
	ack map[uint16]bool
}

func (r fakeRules) RequiresAck(id uint16) bool  { return r.ack[id] }
func (r fakeRules) IsIdempotent(id uint16) bool { return true }
func (r fakeRules) Name(id uint16) string       { return "cmd" }

type fakeHandler struct {
	calls []uint16
	resp  map[uint16]Outcome
}

func (h *fakeHandler) Handle(id uint16, payload []byte) Outcome {
	h.calls = append(h.calls, id)
	if h.resp == nil {
		return Outcome{}
	}
	return h.resp[id]
}

type fakeRecorder struct {
	NopRecorder
	handshakeSuccesses int
	handshakeFailures  int
	duplicateHandshake int
	duplicateFrames    int
	retransmits        int
	faults             int
}

func (r *fakeRecorder) HandshakeSucceeded()  { r.handshakeSuccesses++ }
func (r *fakeRecorder) HandshakeFailed()     { r.handshakeFailures++ }
func (r *fakeRecorder) DuplicateHandshake()  { r.duplicateHandshake++ }
func (r *fakeRecorder) DuplicateFrame()      { r.duplicateFrames++ }
func (r *fakeRecorder) RetransmitAttempted() { r.retransmits++ }
func (r *fakeRecorder) LinkFault(string)     { r.faults++ }

const (
	idLinkReset    = 0x01
	idLinkSync     = 0x02
	idLinkSyncResp = 0x03
	idDigitalWrite = 0x23
	idXON          = 0x31
	idXOFF         = 0x32

	statusOK       = 0x8000
	statusAck      = 0x8003
	statusMal      = 0x8004
	statusCRC      = 0x8005
	statusTimeout  = 0x8007
)

func testIDs() IDs {
	return IDs{
		LinkReset:         idLinkReset,
		LinkSync:          idLinkSync,
		LinkSyncResp:      idLinkSyncResp,
		StatusOK:          statusOK,
		StatusAck:         statusAck,
		StatusMalformed:   statusMal,
		StatusCRCMismatch: statusCRC,
		StatusTimeout:     statusTimeout,
		XON:               idXON,
		XOFF:              idXOFF,
	}
}

func testConfig(secret []byte) Config {
	return Config{
		Secret:     secret,
		NonceLen:   16,
		TagLen:     16,
		AckTimeout: 50 * time.Millisecond,
		RetryLimit: 3,
	}
}

func newTestLink(secret []byte) (*Link, *fakeTransport, *fakeHandler, *fakeRecorder) {
	tr := &fakeTransport{}
	h := &fakeHandler{}
	rec := &fakeRecorder{}
	rules := fakeRules{ack: map[uint16]bool{idDigitalWrite: true, idXON: true, idXOFF: true}}
	l := New(testConfig(secret), testIDs(), rules, tr, h, rec)
	return l, tr, h, rec
}

func handshakeAsResponder(t *testing.T, l *Link, tr *fakeTransport, secret []byte, nonce []byte) {
	t.Helper()
	tag := make([]byte, 0)
	if len(secret) > 0 {
		tag = tagFor(secret, nonce)
	}
	payload := append(append([]byte(nil), nonce...), tag...)
	require.NoError(t, l.HandleFrame(frame.Frame{CommandID: idLinkSync, Payload: payload}))
	assert.Equal(t, Idle, l.State())
	resp := tr.lastFrame(t)
	assert.Equal(t, uint16(idLinkSyncResp), resp.CommandID)
}

func TestHandshakeSuccess(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, tr, _, rec := newTestLink(secret)
	nonce := make([]byte, 16)
	for i := range nonce {
		nonce[i] = byte(i)
	}
	handshakeAsResponder(t, l, tr, secret, nonce)
	assert.Equal(t, 1, rec.handshakeSuccesses)
}

func TestHandshakeBadTagFaults(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, _, _, rec := newTestLink(secret)
	nonce := make([]byte, 16)
	badTag := make([]byte, 16)
	badTag[0] = 0xff
	payload := append(append([]byte(nil), nonce...), badTag...)
	err := l.HandleFrame(frame.Frame{CommandID: idLinkSync, Payload: payload})
	require.Error(t, err)
	assert.Equal(t, Fault, l.State())
	assert.Equal(t, 1, rec.handshakeFailures)
}

func TestHandshakeReplayIsNotReCounted(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, tr, _, rec := newTestLink(secret)
	nonce := make([]byte, 16)
	handshakeAsResponder(t, l, tr, secret, nonce)
	require.NoError(t, l.HandleFrame(frame.Frame{
		CommandID: idLinkSync,
		Payload:   append(append([]byte(nil), nonce...), tagFor(secret, nonce)...),
	}))
	assert.Equal(t, 1, rec.handshakeSuccesses)
	assert.Equal(t, 1, rec.duplicateHandshake)
}

func TestStopAndWaitBlocksFollowupUntilAck(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, tr, _, _ := newTestLink(secret)
	nonce := make([]byte, 16)
	handshakeAsResponder(t, l, tr, secret, nonce)

	require.NoError(t, l.Send(idDigitalWrite, []byte{13, 1}))
	assert.Equal(t, AwaitingAck, l.State())
	sentAfterFirst := len(tr.packets)

	require.NoError(t, l.Send(idDigitalWrite, []byte{14, 0}))
	assert.Equal(t, sentAfterFirst, len(tr.packets), "second send must queue, not transmit")

	require.NoError(t, l.HandleFrame(frame.Frame{CommandID: statusAck, Payload: []byte{0x00, idDigitalWrite}}))
	assert.Equal(t, sentAfterFirst+1, len(tr.packets), "queued follow-up should drain on ACK")
}

func TestRetransmitOnTimeoutThenUnsynchronizedOnExhaustion(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, tr, _, rec := newTestLink(secret)
	nonce := make([]byte, 16)
	handshakeAsResponder(t, l, tr, secret, nonce)

	require.NoError(t, l.Send(idDigitalWrite, []byte{13, 1}))
	sent := len(tr.packets)

	base := time.Now()
	for i := 0; i < l.cfg.RetryLimit; i++ {
		require.NoError(t, l.Tick(base.Add(time.Duration(i+1)*l.cfg.AckTimeout+time.Millisecond)))
	}
	assert.Equal(t, sent+l.cfg.RetryLimit, len(tr.packets))
	assert.Equal(t, AwaitingAck, l.State())

	require.NoError(t, l.Tick(base.Add(time.Duration(l.cfg.RetryLimit+2)*l.cfg.AckTimeout)))
	assert.Equal(t, Unsynchronized, l.State())
	assert.Equal(t, 1, rec.faults)
}

func TestFlowControlHysteresis(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, tr, _, _ := newTestLink(secret)
	nonce := make([]byte, 16)
	handshakeAsResponder(t, l, tr, secret, nonce)

	ring := NewWatermarkRing(100, l)
	before := len(tr.packets)
	require.NoError(t, ring.Push(make([]byte, 76)))
	assert.Equal(t, before+1, len(tr.packets), "crossing the high watermark emits exactly one XOFF")

	// Ack the XOFF so the link returns to Idle before the next ack-required
	// send (XON) is attempted.
	require.NoError(t, l.HandleFrame(frame.Frame{CommandID: statusAck, Payload: []byte{0x00, idXOFF}}))

	require.NoError(t, ring.Push([]byte{1}))
	assert.Equal(t, before+1, len(tr.packets), "staying above the high watermark must not re-emit XOFF")

	_, err := ring.Consume(70)
	require.NoError(t, err)
	assert.Equal(t, before+2, len(tr.packets), "dropping below the low watermark emits exactly one XON")
}

func TestLinkResetDropsPendingState(t *testing.T) {
	secret := []byte("shared-secret-value")
	l, tr, _, _ := newTestLink(secret)
	nonce := make([]byte, 16)
	handshakeAsResponder(t, l, tr, secret, nonce)

	require.NoError(t, l.Send(idDigitalWrite, []byte{13, 1}))
	require.NoError(t, l.Send(idDigitalWrite, []byte{14, 0}))
	require.NoError(t, l.HandleFrame(frame.Frame{CommandID: idLinkReset}))
	assert.Equal(t, Unsynchronized, l.State())
	assert.Nil(t, l.pending)
	assert.Empty(t, l.queue)
}
