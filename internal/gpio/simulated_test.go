package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedDigitalRoundTrip(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.SetMode(13, ModeOutput))
	require.NoError(t, s.DigitalWrite(13, true))
	v, err := s.DigitalRead(13)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestSimulatedAnalogRoundTrip(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.AnalogWrite(9, 512))
	v, err := s.AnalogRead(9)
	require.NoError(t, err)
	assert.Equal(t, uint16(512), v)
}

func TestSimulatedUnreadPinDefaultsToZeroValue(t *testing.T) {
	s := NewSimulated()
	v, err := s.DigitalRead(2)
	require.NoError(t, err)
	assert.False(t, v)
}
