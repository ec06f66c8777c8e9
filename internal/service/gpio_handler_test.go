package service

import (
	"testing"

	"github.com/mculink/bridge/internal/gpio"
	"github.com/stretchr/testify/assert"
)

func testGPIOIDs() GPIOIDs {
	return GPIOIDs{DigitalReadResp: 0x8201, AnalogReadResp: 0x8202}
}

func TestGPIODigitalWriteThenRead(t *testing.T) {
	e := NewEngine(0x8000)
	backend := gpio.NewSimulated()
	g := NewGPIO(testGPIOIDs(), backend)
	g.RegisterOn(e, 0x20, 0x21, 0x23, 0x22, 0x24)

	e.Handle(0x20, []byte{5, 1}) // set pin mode output
	e.Handle(0x23, []byte{5, 1}) // digital write pin 5 high

	out := e.Handle(0x21, []byte{5})
	assert.True(t, out.HasResp)
	assert.Equal(t, uint16(0x8201), out.RespID)
	assert.Equal(t, []byte{5, 0x00, 0x01}, out.RespPayload)
}

func TestGPIOAnalogWriteThenRead(t *testing.T) {
	e := NewEngine(0x8000)
	backend := gpio.NewSimulated()
	g := NewGPIO(testGPIOIDs(), backend)
	g.RegisterOn(e, 0x20, 0x21, 0x23, 0x22, 0x24)

	e.Handle(0x24, []byte{9, 0x02, 0x00}) // analog write pin 9 = 512

	out := e.Handle(0x22, []byte{9})
	assert.Equal(t, []byte{9, 0x02, 0x00}, out.RespPayload)
}

func TestGPIOShortPayloadsAreNoOps(t *testing.T) {
	e := NewEngine(0x8000)
	backend := gpio.NewSimulated()
	g := NewGPIO(testGPIOIDs(), backend)
	g.RegisterOn(e, 0x20, 0x21, 0x23, 0x22, 0x24)

	out := e.Handle(0x20, []byte{1})
	assert.False(t, out.HasResp)
	out = e.Handle(0x23, nil)
	assert.False(t, out.HasResp)
	out = e.Handle(0x24, []byte{1, 2})
	assert.False(t, out.HasResp)
}
