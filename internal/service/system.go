package service

import (
	"encoding/binary"
	"time"

	"github.com/mculink/bridge/internal/link"
)

// SystemIDs carries the response identifiers the System handler emits.
type SystemIDs struct {
	GetVersionResp      uint16
	GetCapabilitiesResp uint16
	GetFreeMemoryResp   uint16
	SetBaudrateResp     uint16
}

// BaudSetter applies a baud rate change after the 50ms delay spec.md
// §4.4 requires (so the ACK/response traverses the wire at the old rate
// before the switch). internal/serialio implements it.
type BaudSetter interface {
	ScheduleBaudChange(baud uint32, after time.Duration)
}

// System answers GET_VERSION/GET_CAPABILITIES/GET_FREE_MEMORY/
// SET_BAUDRATE, the four MCU-identity queries the MPU issues at startup
// and on demand.
type System struct {
	ids     SystemIDs
	version uint16
	caps    uint32
	freeMem func() uint32
	baud    BaudSetter
}

// NewSystem constructs a System handler. freeMem is called fresh on every
// GET_FREE_MEMORY so the reported value reflects current state.
func NewSystem(ids SystemIDs, version uint16, caps uint32, freeMem func() uint32, baud BaudSetter) *System {
	return &System{ids: ids, version: version, caps: caps, freeMem: freeMem, baud: baud}
}

// RegisterOn wires every System command into engine.
func (s *System) RegisterOn(e *Engine, getVersion, getCapabilities, getFreeMemory, setBaudrate uint16) {
	e.RegisterFunc(getVersion, s.handleGetVersion)
	e.RegisterFunc(getCapabilities, s.handleGetCapabilities)
	e.RegisterFunc(getFreeMemory, s.handleGetFreeMemory)
	e.RegisterFunc(setBaudrate, s.handleSetBaudrate)
}

func (s *System) handleGetVersion([]byte) link.Outcome {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, s.version)
	return link.Outcome{HasResp: true, RespID: s.ids.GetVersionResp, RespPayload: payload}
}

func (s *System) handleGetCapabilities([]byte) link.Outcome {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, s.caps)
	return link.Outcome{HasResp: true, RespID: s.ids.GetCapabilitiesResp, RespPayload: payload}
}

func (s *System) handleGetFreeMemory([]byte) link.Outcome {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, s.freeMem())
	return link.Outcome{HasResp: true, RespID: s.ids.GetFreeMemoryResp, RespPayload: payload}
}

const baudChangeDelay = 50 * time.Millisecond

func (s *System) handleSetBaudrate(payload []byte) link.Outcome {
	resp := append([]byte(nil), payload...)
	if len(payload) >= 4 {
		baud := binary.BigEndian.Uint32(payload)
		if s.baud != nil {
			s.baud.ScheduleBaudChange(baud, baudChangeDelay)
		}
	}
	return link.Outcome{HasResp: true, RespID: s.ids.SetBaudrateResp, RespPayload: resp}
}
