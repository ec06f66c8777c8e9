package link

import "github.com/mculink/bridge/internal/frame"

// packetEncode wraps the peer-agnostic frame codec (C1) so the rest of
// this package never imports internal/frame directly outside this file.
func packetEncode(id uint16, payload []byte) ([]byte, error) {
	return frame.EncodePacket(id, payload)
}
