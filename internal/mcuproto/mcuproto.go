// Package mcuproto is the MCU-side mirror of internal/protocol. Both are
// generated by cmd/protogen from the single protocol/spec.txt source; they
// are kept as independent packages (rather than one shared package) because
// in a real deployment the MCU binding targets a different language
// entirely. cmd/protogen -guard verifies the two stay numerically identical.
package mcuproto

import "fmt"

type CommandID uint16

const (
	StatusBit     CommandID = 0x8000
	CompressedBit CommandID = 0x4000
)

func (id CommandID) IsStatus() bool     { return id&StatusBit != 0 }
func (id CommandID) IsCompressed() bool { return id&CompressedBit != 0 }
func (id CommandID) Base() CommandID    { return id &^ CompressedBit }
func (id CommandID) AsStatus() StatusCode {
	return StatusCode(id &^ StatusBit)
}

func (id CommandID) String() string {
	if id.IsStatus() {
		return id.AsStatus().String()
	}
	if name, ok := commandNames[id.Base()]; ok {
		return name
	}
	return fmt.Sprintf("CommandID(0x%04x)", uint16(id))
}

type StatusCode uint16

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(0x%04x)", uint16(s))
}

func (s StatusCode) Frame() CommandID { return CommandID(s) | StatusBit }

func RequiresAck(id CommandID) bool { return ackRequired[id.Base()] }

func IsIdempotent(id CommandID) bool {
	v, ok := idempotent[id.Base()]
	return !ok || v
}

func ResponseFor(id CommandID) (CommandID, bool) {
	r, ok := responseOf[id.Base()]
	return r, ok
}

func Name(id CommandID) string { return commandNames[id.Base()] }
