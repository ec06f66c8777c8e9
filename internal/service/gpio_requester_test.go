package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPIORequesterDigitalRoundTrip(t *testing.T) {
	sender := &fakeSender{}
	g := NewGPIORequester(0x60, 0x61, 4, sender)

	var got PinResult
	g.OnDigitalResult = func(r PinResult) { got = r }

	require.NoError(t, g.RequestDigitalRead(3, "corr-1"))
	assert.Equal(t, []uint16{0x60}, sender.ids)
	assert.Equal(t, 1, g.PendingDigitalReads())

	e := NewEngine(0x8000)
	g.RegisterOn(e, 0x62, 0x63)
	e.Handle(0x62, []byte{3, 0x00, 0x01})

	assert.Equal(t, 3, got.Pin)
	assert.Equal(t, uint16(1), got.Value)
	assert.Equal(t, "corr-1", got.Correlation)
	assert.Equal(t, 0, g.PendingDigitalReads())
}

func TestGPIORequesterPendingLimitRejectsOverflow(t *testing.T) {
	sender := &fakeSender{}
	g := NewGPIORequester(0x60, 0x61, 1, sender)

	require.NoError(t, g.RequestDigitalRead(1, nil))
	assert.Error(t, g.RequestDigitalRead(2, nil))
}

func TestGPIORequesterAnalogRoundTrip(t *testing.T) {
	sender := &fakeSender{}
	g := NewGPIORequester(0x60, 0x61, 4, sender)

	var got PinResult
	g.OnAnalogResult = func(r PinResult) { got = r }
	require.NoError(t, g.RequestAnalogRead(9, 42))

	e := NewEngine(0x8000)
	g.RegisterOn(e, 0x62, 0x63)
	e.Handle(0x63, []byte{9, 0x02, 0x00})

	assert.Equal(t, uint16(512), got.Value)
	assert.Equal(t, 42, got.Correlation)
}

func TestGPIORequesterUnmatchedRespIsIgnored(t *testing.T) {
	sender := &fakeSender{}
	g := NewGPIORequester(0x60, 0x61, 4, sender)
	called := false
	g.OnDigitalResult = func(PinResult) { called = true }

	e := NewEngine(0x8000)
	g.RegisterOn(e, 0x62, 0x63)
	e.Handle(0x62, []byte{1, 0, 1})

	assert.False(t, called)
}
