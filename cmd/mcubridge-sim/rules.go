package main

import (
	"github.com/mculink/bridge/internal/link"
	"github.com/mculink/bridge/internal/mcuproto"
)

// mcuprotoRules adapts internal/mcuproto's generated free functions to
// link.Rules, the MCU-side mirror of internal/daemon's protocolRules —
// *link.Link drives both peers through the same interface and never
// imports either generated package directly.
type mcuprotoRules struct{}

func (mcuprotoRules) RequiresAck(id uint16) bool {
	return mcuproto.RequiresAck(mcuproto.CommandID(id))
}
func (mcuprotoRules) IsIdempotent(id uint16) bool {
	return mcuproto.IsIdempotent(mcuproto.CommandID(id))
}
func (mcuprotoRules) Name(id uint16) string { return mcuproto.Name(mcuproto.CommandID(id)) }

var mcuProtocolRules link.Rules = mcuprotoRules{}

// mcuProtocolIDs builds the link.IDs the state machine needs from the
// generated mcuproto constants.
func mcuProtocolIDs() link.IDs {
	return link.IDs{
		LinkReset:    uint16(mcuproto.LinkReset),
		LinkSync:     uint16(mcuproto.LinkSync),
		LinkSyncResp: uint16(mcuproto.LinkSyncResp),

		StatusOK:          uint16(mcuproto.StatusOK.Frame()),
		StatusAck:         uint16(mcuproto.StatusAck.Frame()),
		StatusMalformed:   uint16(mcuproto.StatusMalformed.Frame()),
		StatusCRCMismatch: uint16(mcuproto.StatusCRCMismatch.Frame()),
		StatusTimeout:     uint16(mcuproto.StatusTimeout.Frame()),

		XON:  uint16(mcuproto.Xon),
		XOFF: uint16(mcuproto.Xoff),
	}
}
