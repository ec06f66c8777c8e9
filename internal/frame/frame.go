// Package frame implements the wire codec (C1): a 5-byte header, CRC32
// trailer, and COBS byte-stuffing terminated by a single zero delimiter.
// The codec is pure and re-entrant — no package-level mutable state.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/mculink/bridge/internal/protocol"
)

// Header layout: version(1) | payload_length(2 BE) | command_id(2 BE).
const headerLen = 5

// trailerLen is the CRC32 trailer appended after the payload.
const trailerLen = 4

// MaxRawFrameSize bounds a decoded (post-COBS, pre-CRC-check) frame:
// header + max payload + trailer.
const MaxRawFrameSize = headerLen + protocol.MaxPayload + trailerLen

var (
	// ErrMalformed covers a bad version, a declared length that disagrees
	// with the buffer, or a header shorter than required.
	ErrMalformed = errors.New("frame: malformed")
	// ErrCRCMismatch means the trailing CRC32 did not match the computed one.
	ErrCRCMismatch = errors.New("frame: crc mismatch")
	// ErrOverflow means a decoded raw frame exceeded MaxRawFrameSize, or an
	// encoded payload exceeded protocol.MaxPayload.
	ErrOverflow = errors.New("frame: overflow")
)

// Frame is a fully decoded wire unit. CommandID is the raw wire value;
// frame is peer-agnostic and does not know which generated binding
// (internal/protocol or internal/mcuproto) the caller uses to interpret it.
type Frame struct {
	Version   byte
	CommandID uint16
	Payload   []byte
	CRC       uint32
}

// Encode serialises id/payload into a raw (pre-COBS) frame: the exact bytes
// that CRC32 is computed over, followed by the CRC32 itself.
func Encode(id uint16, payload []byte) ([]byte, error) {
	if len(payload) > protocol.MaxPayload {
		return nil, fmt.Errorf("%w: payload %d bytes exceeds max %d", ErrOverflow, len(payload), protocol.MaxPayload)
	}
	raw := make([]byte, headerLen+len(payload)+trailerLen)
	raw[0] = protocol.Version
	binary.BigEndian.PutUint16(raw[1:3], uint16(len(payload)))
	binary.BigEndian.PutUint16(raw[3:5], id)
	copy(raw[headerLen:], payload)
	sum := crc32.ChecksumIEEE(raw[:headerLen+len(payload)])
	binary.BigEndian.PutUint32(raw[headerLen+len(payload):], sum)
	return raw, nil
}

// EncodePacket encodes id/payload into a raw frame, COBS-stuffs it and
// appends the single zero-byte delimiter — the complete unit that is
// written to the wire.
func EncodePacket(id uint16, payload []byte) ([]byte, error) {
	raw, err := Encode(id, payload)
	if err != nil {
		return nil, err
	}
	encoded := cobsEncode(raw)
	return append(encoded, 0x00), nil
}

// Decode parses a raw (post-COBS-removal) frame, verifying the header and
// CRC32. It is the inverse of Encode.
func Decode(raw []byte) (Frame, error) {
	if len(raw) > MaxRawFrameSize {
		return Frame{}, fmt.Errorf("%w: raw frame %d bytes exceeds max %d", ErrOverflow, len(raw), MaxRawFrameSize)
	}
	if len(raw) < headerLen+trailerLen {
		return Frame{}, fmt.Errorf("%w: frame shorter than header+trailer", ErrMalformed)
	}
	version := raw[0]
	if version != protocol.Version {
		return Frame{}, fmt.Errorf("%w: version %d, want %d", ErrMalformed, version, protocol.Version)
	}
	declaredLen := int(binary.BigEndian.Uint16(raw[1:3]))
	cmdID := binary.BigEndian.Uint16(raw[3:5])
	payloadEnd := headerLen + declaredLen
	if payloadEnd+trailerLen != len(raw) {
		return Frame{}, fmt.Errorf("%w: declared payload length %d disagrees with frame size", ErrMalformed, declaredLen)
	}
	if declaredLen > protocol.MaxPayload {
		return Frame{}, fmt.Errorf("%w: declared payload length %d exceeds max %d", ErrOverflow, declaredLen, protocol.MaxPayload)
	}
	payload := raw[headerLen:payloadEnd]
	wantCRC := binary.BigEndian.Uint32(raw[payloadEnd:])
	gotCRC := crc32.ChecksumIEEE(raw[:payloadEnd])
	if wantCRC != gotCRC {
		return Frame{}, fmt.Errorf("%w: got 0x%08x want 0x%08x", ErrCRCMismatch, gotCRC, wantCRC)
	}
	return Frame{Version: version, CommandID: cmdID, Payload: payload, CRC: wantCRC}, nil
}

// cobsEncode implements Consistent Overhead Byte Stuffing: zero bytes never
// appear in the output, so a single 0x00 can delimit packets on the wire.
func cobsEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/254+2)
	codeIdx := 0
	out = append(out, 0) // placeholder for first code byte
	code := byte(1)

	flush := func() {
		out[codeIdx] = code
		codeIdx = len(out)
		out = append(out, 0)
		code = 1
	}

	for _, b := range data {
		if b == 0 {
			flush()
			continue
		}
		out = append(out, b)
		code++
		if code == 0xff {
			flush()
		}
	}
	out[codeIdx] = code
	return out
}

// cobsDecode reverses cobsEncode. It expects data with no trailing
// delimiter (the caller strips the 0x00 before calling).
func cobsDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		code := int(data[i])
		if code == 0 {
			return nil, fmt.Errorf("%w: zero code byte in cobs stream", ErrMalformed)
		}
		i++
		end := i + code - 1
		if end > len(data) {
			return nil, fmt.Errorf("%w: cobs code %d runs past end of buffer", ErrMalformed, code)
		}
		out = append(out, data[i:end]...)
		i = end
		if code != 0xff && i < len(data) {
			out = append(out, 0)
		}
	}
	return out, nil
}
