package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatastorePutGetViaWire(t *testing.T) {
	e := NewEngine(0x8000)
	d := NewDatastore(0x8301)
	d.RegisterOn(e, 0x40, 0x41)

	key := "led"
	payload := append([]byte{byte(len(key))}, append([]byte(key), []byte("on")...)...)
	e.Handle(0x40, payload)

	out := e.Handle(0x41, []byte(key))
	assert.True(t, out.HasResp)
	assert.Equal(t, "on", string(out.RespPayload))
}

func TestDatastoreGetMissingKeyReturnsNil(t *testing.T) {
	e := NewEngine(0x8000)
	d := NewDatastore(0x8301)
	d.RegisterOn(e, 0x40, 0x41)

	out := e.Handle(0x41, []byte("missing"))
	assert.Nil(t, out.RespPayload)
}

func TestDatastoreDirectAccessBypassesWire(t *testing.T) {
	d := NewDatastore(0x8301)
	d.Put("k", []byte("v"))
	v, ok := d.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}
