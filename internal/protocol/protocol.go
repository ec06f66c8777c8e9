// Package protocol defines the wire-level command/status vocabulary shared
// by the daemon and the simulated MCU peer. The numeric tables in
// generated.go are produced by cmd/protogen from protocol/spec.txt; this
// file holds the hand-written helpers built on top of them.
package protocol

import "fmt"

// CommandID is the wire command identifier. Bit 15 (StatusBit) marks the
// value as a status code rather than a command; bit 14 (CompressedBit)
// marks a command as carrying an RLE-compressed payload.
type CommandID uint16

const (
	StatusBit     CommandID = 0x8000
	CompressedBit CommandID = 0x4000
	idMask        CommandID = 0x3fff
)

// IsStatus reports whether id falls in the status range.
func (id CommandID) IsStatus() bool { return id&StatusBit != 0 }

// IsCompressed reports whether the compressed-payload bit is set.
func (id CommandID) IsCompressed() bool { return id&CompressedBit != 0 }

// WithCompressed returns id with the compressed-payload bit set or cleared.
func (id CommandID) WithCompressed(v bool) CommandID {
	if v {
		return id | CompressedBit
	}
	return id &^ CompressedBit
}

// Base strips the compressed bit, returning the plain command number.
func (id CommandID) Base() CommandID { return id &^ CompressedBit }

// AsStatus converts a status-range CommandID into a StatusCode.
func (id CommandID) AsStatus() StatusCode { return StatusCode(id &^ StatusBit) }

func (id CommandID) String() string {
	if id.IsStatus() {
		return id.AsStatus().String()
	}
	if name, ok := commandNames[id.Base()]; ok {
		if id.IsCompressed() {
			return name + "+compressed"
		}
		return name
	}
	return fmt.Sprintf("CommandID(0x%04x)", uint16(id))
}

// StatusCode is the wire status identifier (the low 15 bits of a
// status-range CommandID).
type StatusCode uint16

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(0x%04x)", uint16(s))
}

// Frame returns the CommandID used on the wire to carry this status.
func (s StatusCode) Frame() CommandID { return CommandID(s) | StatusBit }

// RequiresAck reports whether a sender must retain the packet and await an
// ACK before another critical command may be sent.
func RequiresAck(id CommandID) bool {
	return ackRequired[id.Base()]
}

// IsIdempotent reports whether re-executing the command's side effect for a
// deduplicated retransmission would be safe.
func IsIdempotent(id CommandID) bool {
	v, ok := idempotent[id.Base()]
	return !ok || v
}

// ResponseFor returns the response CommandID for a request command, if any.
func ResponseFor(id CommandID) (CommandID, bool) {
	r, ok := responseOf[id.Base()]
	return r, ok
}

// Name returns the generated mnemonic for a command, or "" if unknown.
func Name(id CommandID) string {
	return commandNames[id.Base()]
}

// Known reports whether id.Base() names a generated command.
func Known(id CommandID) bool {
	_, ok := commandNames[id.Base()]
	return ok
}
