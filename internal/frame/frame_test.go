package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mculink/bridge/internal/protocol"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Uint16().Draw(t, "id")
		payload := rapid.SliceOfN(rapid.Byte(), 0, protocol.MaxPayload).Draw(t, "payload")

		raw, err := Encode(id, payload)
		require.NoError(t, err)

		got, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, id, got.CommandID)
		assert.Equal(t, payload, got.Payload)
	})
}

func TestPacketRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Uint16().Draw(t, "id")
		payload := rapid.SliceOfN(rapid.Byte(), 0, protocol.MaxPayload).Draw(t, "payload")

		packet, err := EncodePacket(id, payload)
		require.NoError(t, err)
		require.Equal(t, byte(0x00), packet[len(packet)-1])

		dec := NewDecoder()
		var last Event
		for _, b := range packet {
			ev := dec.Feed(b)
			if ev.Ready {
				last = ev
			}
		}
		require.True(t, last.Ready)
		require.NoError(t, last.Err)
		assert.Equal(t, id, last.Frame.CommandID)
		assert.Equal(t, payload, last.Frame.Payload)
	})
}

func TestPacketNeverContainsInteriorZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Uint16().Draw(t, "id")
		payload := rapid.SliceOfN(rapid.Byte(), 0, protocol.MaxPayload).Draw(t, "payload")

		packet, err := EncodePacket(id, payload)
		require.NoError(t, err)

		for i, b := range packet[:len(packet)-1] {
			assert.NotEqual(t, byte(0x00), b, "interior zero at offset %d", i)
		}
	})
}

func TestCRCMismatchOnSingleByteMutation(t *testing.T) {
	raw, err := Encode(uint16(protocol.DigitalWrite), []byte{13, 1})
	require.NoError(t, err)

	for i := range raw {
		mutated := append([]byte(nil), raw...)
		mutated[i] ^= 0x01
		_, err := Decode(mutated)
		require.Error(t, err, "mutating byte %d should have invalidated the frame", i)
		// Depending on which byte flipped, either the length/version header
		// disagrees with the buffer (Malformed) or only the CRC does.
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	raw, err := Encode(uint16(protocol.GetVersion), nil)
	require.NoError(t, err)
	raw[0] = protocol.Version + 1
	_, err = Decode(raw)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	_, err := Encode(uint16(protocol.ConsoleWrite), make([]byte, protocol.MaxPayload+1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestDecoderSkipsRepeatedDelimiters(t *testing.T) {
	packet, err := EncodePacket(uint16(protocol.LinkSync), []byte{1, 2, 3})
	require.NoError(t, err)

	dec := NewDecoder()
	var last Event
	dec.Feed(0x00) // stray leading delimiter
	dec.Feed(0x00)
	for _, b := range packet {
		ev := dec.Feed(b)
		if ev.Ready {
			last = ev
		}
	}
	require.True(t, last.Ready)
	require.NoError(t, last.Err)
	assert.Equal(t, uint16(protocol.LinkSync), last.Frame.CommandID)
}

func TestCOBSEncodeKnownVectors(t *testing.T) {
	// Standard COBS test vectors (Cheshire/Baker paper, widely reused).
	cases := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{}, []byte{0x01}},
		{[]byte{0x00}, []byte{0x01, 0x01}},
		{[]byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33}},
		{[]byte{0x11, 0x22, 0x33, 0x44}, []byte{0x05, 0x11, 0x22, 0x33, 0x44}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, cobsEncode(c.in))
		back, err := cobsDecode(c.want)
		require.NoError(t, err)
		assert.Equal(t, c.in, back)
	}
}
