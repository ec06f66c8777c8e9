package service

import "github.com/mculink/bridge/internal/link"

// Datastore is the MPU-resident key/value store (spec.md §4.4). PUT is
// idempotent (a repeated identical PUT has no additional observable
// effect beyond the overwrite, satisfying dedup semantics for free). GET
// is answered identically whether it arrived over the wire from the MCU
// or directly from an MQTT request — the MQTT path never touches the
// wire, per spec's explicit carve-out.
type Datastore struct {
	getRespID uint16
	store     map[string][]byte
}

// NewDatastore returns an empty store.
func NewDatastore(getRespID uint16) *Datastore {
	return &Datastore{getRespID: getRespID, store: make(map[string][]byte)}
}

// RegisterOn wires DATASTORE_PUT/DATASTORE_GET into engine. PUT's payload
// is [keyLen(1) | key | value]; GET's payload is the bare key.
func (d *Datastore) RegisterOn(e *Engine, put, get uint16) {
	e.RegisterFunc(put, d.handlePut)
	e.RegisterFunc(get, d.handleGet)
}

func (d *Datastore) handlePut(payload []byte) link.Outcome {
	if len(payload) < 1 {
		return link.Outcome{}
	}
	klen := int(payload[0])
	if len(payload) < 1+klen {
		return link.Outcome{}
	}
	key := string(payload[1 : 1+klen])
	d.Put(key, payload[1+klen:])
	return link.Outcome{}
}

func (d *Datastore) handleGet(payload []byte) link.Outcome {
	value, _ := d.Get(string(payload))
	return link.Outcome{HasResp: true, RespID: d.getRespID, RespPayload: value}
}

// Get resolves key purely from the local map — the direct MQTT-facing
// entry point, never touching the wire.
func (d *Datastore) Get(key string) ([]byte, bool) {
	v, ok := d.store[key]
	return v, ok
}

// Put resolves a PUT purely locally — used both by the wire handler above
// and, symmetrically, by an MQTT-originated put request.
func (d *Datastore) Put(key string, value []byte) {
	d.store[key] = append([]byte(nil), value...)
}
