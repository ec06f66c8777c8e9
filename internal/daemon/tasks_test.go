package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mculink/bridge/internal/frame"
	"github.com/mculink/bridge/internal/link"
	"github.com/mculink/bridge/internal/protocol"
	"github.com/mculink/bridge/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu      sync.Mutex
	packets [][]byte
}

func (t *fakeTransport) WritePacket(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]byte(nil), p...)
	t.packets = append(t.packets, cp)
	return nil
}

type nopHandler struct{}

func (nopHandler) Handle(id uint16, payload []byte) link.Outcome { return link.Outcome{} }

func newTestLinkForTasks() (*link.Link, *fakeTransport) {
	tr := &fakeTransport{}
	l := link.New(link.Config{
		NonceLen: 16, TagLen: 16,
		AckTimeout: 20 * time.Millisecond, RetryLimit: 2,
	}, ProtocolIDs(), ProtocolRules, tr, nopHandler{}, nil)
	return l, tr
}

// byteFeeder is a SerialReader that yields bytes from a fixed slice, then
// blocks until the context is cancelled.
type byteFeeder struct {
	bytes []byte
	pos   int
	done  chan struct{}
}

func (f *byteFeeder) ReadByte() (byte, error) {
	if f.pos < len(f.bytes) {
		b := f.bytes[f.pos]
		f.pos++
		if f.pos == len(f.bytes) {
			close(f.done)
		}
		return b, nil
	}
	<-f.done
	select {}
}

func TestSerialRXTaskDecodesEncodedPacketWithoutError(t *testing.T) {
	l, _ := newTestLinkForTasks()
	packet, err := frame.EncodePacket(uint16(protocol.Xon), nil)
	require.NoError(t, err)

	st := state.New()
	feeder := &byteFeeder{bytes: packet, done: make(chan struct{})}
	d := Deps{Logger: testLogger(), Serial: feeder, Link: l, State: st}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	task := serialRXTask(d)
	err = task.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, st.Snapshot().SerialDecodeErrors)
}

func TestSerialRXTaskCountsDecodeErrors(t *testing.T) {
	l, _ := newTestLinkForTasks()
	st := state.New()
	// A lone non-zero byte followed by a delimiter with no valid COBS
	// structure decodes to a malformed/overflow event often enough across
	// inputs; use a guaranteed-bad input: an all-zero-stuffed packet that
	// is too short to contain a valid header.
	bad := []byte{0x01, 0x00}
	feeder := &byteFeeder{bytes: bad, done: make(chan struct{})}
	d := Deps{Logger: testLogger(), Serial: feeder, Link: l, State: st}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = serialRXTask(d).Run(ctx)

	snap := st.Snapshot()
	assert.GreaterOrEqual(t, snap.SerialDecodeErrors, uint64(1))
}

func TestLinkTickTaskRunsUntilCancelled(t *testing.T) {
	l, _ := newTestLinkForTasks()
	d := Deps{Logger: testLogger(), Link: l, TickInterval: 5 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err := linkTickTask(d).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchdogTaskWithNilWatchdogBlocksUntilCancelled(t *testing.T) {
	d := Deps{Logger: testLogger(), Watchdog: nil}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := watchdogTask(d).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusWriterTaskWritesSnapshotAndPublishes(t *testing.T) {
	dir := t.TempDir()
	st := state.New()
	published := make(chan state.RuntimeState, 1)

	d := Deps{
		Logger:         testLogger(),
		State:          st,
		StatusInterval: 10 * time.Millisecond,
		SnapshotPath:   dir + "/status.json",
		PublishStatus:  func(s state.RuntimeState) { published <- s },
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = statusWriterTask(d).Run(ctx)

	select {
	case <-published:
	default:
		t.Fatal("expected at least one status publish")
	}
}

func TestSpoolDrainTaskSkipsWhenDisconnected(t *testing.T) {
	called := false
	d := Deps{
		Logger:            testLogger(),
		SpoolDrainBackoff: 5 * time.Millisecond,
		IsMQTTConnected:   func() bool { called = true; return false },
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = spoolDrainTask(d).Run(ctx)
	assert.True(t, called)
}
