package service

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeBaudSetter struct {
	baud  uint32
	after time.Duration
}

func (f *fakeBaudSetter) ScheduleBaudChange(baud uint32, after time.Duration) {
	f.baud = baud
	f.after = after
}

func testSystemIDs() SystemIDs {
	return SystemIDs{
		GetVersionResp:      0x8101,
		GetCapabilitiesResp: 0x8102,
		GetFreeMemoryResp:   0x8103,
		SetBaudrateResp:     0x8104,
	}
}

func TestSystemGetVersionViaEngine(t *testing.T) {
	e := NewEngine(0x8000)
	baud := &fakeBaudSetter{}
	s := NewSystem(testSystemIDs(), 0x0102, 0xCAFEBABE, func() uint32 { return 4096 }, baud)
	s.RegisterOn(e, 0x10, 0x11, 0x12, 0x13)

	out := e.Handle(0x10, nil)
	assert.True(t, out.HasResp)
	assert.Equal(t, uint16(0x8101), out.RespID)
	assert.Equal(t, uint16(0x0102), binary.BigEndian.Uint16(out.RespPayload))
}

func TestSystemGetCapabilities(t *testing.T) {
	e := NewEngine(0x8000)
	s := NewSystem(testSystemIDs(), 1, 0xCAFEBABE, func() uint32 { return 0 }, nil)
	s.RegisterOn(e, 0x10, 0x11, 0x12, 0x13)

	out := e.Handle(0x11, nil)
	assert.Equal(t, uint32(0xCAFEBABE), binary.BigEndian.Uint32(out.RespPayload))
}

func TestSystemGetFreeMemoryCallsFuncFresh(t *testing.T) {
	e := NewEngine(0x8000)
	calls := 0
	s := NewSystem(testSystemIDs(), 1, 0, func() uint32 { calls++; return uint32(calls * 100) }, nil)
	s.RegisterOn(e, 0x10, 0x11, 0x12, 0x13)

	first := e.Handle(0x12, nil)
	second := e.Handle(0x12, nil)
	assert.Equal(t, uint32(100), binary.BigEndian.Uint32(first.RespPayload))
	assert.Equal(t, uint32(200), binary.BigEndian.Uint32(second.RespPayload))
}

func TestSystemSetBaudrateSchedulesAfterDelay(t *testing.T) {
	e := NewEngine(0x8000)
	baud := &fakeBaudSetter{}
	s := NewSystem(testSystemIDs(), 1, 0, func() uint32 { return 0 }, baud)
	s.RegisterOn(e, 0x10, 0x11, 0x12, 0x13)

	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, 115200)
	out := e.Handle(0x13, payload)

	assert.Equal(t, uint16(0x8104), out.RespID)
	assert.Equal(t, uint32(115200), baud.baud)
	assert.Equal(t, 50*time.Millisecond, baud.after)
}

func TestSystemSetBaudrateIgnoresShortPayload(t *testing.T) {
	e := NewEngine(0x8000)
	baud := &fakeBaudSetter{}
	s := NewSystem(testSystemIDs(), 1, 0, func() uint32 { return 0 }, baud)
	s.RegisterOn(e, 0x10, 0x11, 0x12, 0x13)

	e.Handle(0x13, []byte{0x01})
	assert.Equal(t, uint32(0), baud.baud)
}
