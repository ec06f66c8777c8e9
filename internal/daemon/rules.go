package daemon

import (
	"github.com/mculink/bridge/internal/protocol"
	"github.com/mculink/bridge/internal/link"
)

// protocolRules adapts the generated internal/protocol package's
// free functions to link.Rules, so *link.Link never imports
// internal/protocol directly (the observer/registry shape spec.md §9
// calls for).
type protocolRules struct{}

func (protocolRules) RequiresAck(id uint16) bool  { return protocol.RequiresAck(protocol.CommandID(id)) }
func (protocolRules) IsIdempotent(id uint16) bool { return protocol.IsIdempotent(protocol.CommandID(id)) }
func (protocolRules) Name(id uint16) string       { return protocol.Name(protocol.CommandID(id)) }

// ProtocolRules is the shared link.Rules implementation for the MPU
// daemon side.
var ProtocolRules link.Rules = protocolRules{}

// ProtocolIDs builds the link.IDs the state machine needs out of the
// generated protocol constants, so cmd/bridged never hand-assembles the
// struct literal itself.
func ProtocolIDs() link.IDs {
	return link.IDs{
		LinkReset:    uint16(protocol.LinkReset),
		LinkSync:     uint16(protocol.LinkSync),
		LinkSyncResp: uint16(protocol.LinkSyncResp),

		StatusOK:          uint16(protocol.StatusOK.Frame()),
		StatusAck:         uint16(protocol.StatusAck.Frame()),
		StatusMalformed:   uint16(protocol.StatusMalformed.Frame()),
		StatusCRCMismatch: uint16(protocol.StatusCRCMismatch.Frame()),
		StatusTimeout:     uint16(protocol.StatusTimeout.Frame()),

		XON:  uint16(protocol.Xon),
		XOFF: uint16(protocol.Xoff),
	}
}
