package service

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxPushThenRead(t *testing.T) {
	m := NewMailbox(0x8401, 0x8402, 8, 256)
	require.NoError(t, m.PushIn([]byte("hi mcu")))

	e := NewEngine(0x8000)
	m.RegisterOn(e, 0x50, 0x51, 0x52)

	out := e.Handle(0x51, nil)
	assert.Equal(t, "hi mcu", string(out.RespPayload))
}

func TestMailboxMCUPushIsReadableByMQTT(t *testing.T) {
	m := NewMailbox(0x8401, 0x8402, 8, 256)
	e := NewEngine(0x8000)
	m.RegisterOn(e, 0x50, 0x51, 0x52)

	e.Handle(0x50, []byte("from mcu"))

	msg, ok := m.PopOut()
	require.True(t, ok)
	assert.Equal(t, "from mcu", string(msg))
}

func TestMailboxAvailableReportsInDepth(t *testing.T) {
	m := NewMailbox(0x8401, 0x8402, 8, 256)
	require.NoError(t, m.PushIn([]byte("a")))
	require.NoError(t, m.PushIn([]byte("b")))

	e := NewEngine(0x8000)
	m.RegisterOn(e, 0x50, 0x51, 0x52)

	out := e.Handle(0x52, nil)
	assert.Equal(t, uint16(2), binary.BigEndian.Uint16(out.RespPayload))
}

func TestMailboxMessageLimitRejectsOverflow(t *testing.T) {
	m := NewMailbox(0x8401, 0x8402, 2, 256)
	require.NoError(t, m.PushIn([]byte("a")))
	require.NoError(t, m.PushIn([]byte("b")))
	assert.Error(t, m.PushIn([]byte("c")))
}

func TestMailboxByteLimitRejectsOverflow(t *testing.T) {
	m := NewMailbox(0x8401, 0x8402, 8, 4)
	require.NoError(t, m.PushIn([]byte("abcd")))
	assert.Error(t, m.PushIn([]byte("e")))
}
