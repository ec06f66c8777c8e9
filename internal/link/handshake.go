package link

import (
	"bytes"
	"fmt"

	"github.com/mculink/bridge/internal/security"
)

// syncPayload builds the LINK_SYNC / LINK_SYNC_RESP payload: the nonce,
// followed by an HMAC-SHA256 tag over it when a secret is configured.
func (l *Link) syncPayload(nonce []byte) []byte {
	if len(l.cfg.Secret) == 0 {
		return nonce
	}
	tag := security.Tag(l.cfg.Secret, nonce, l.cfg.TagLen)
	out := make([]byte, 0, len(nonce)+len(tag))
	out = append(out, nonce...)
	out = append(out, tag...)
	return out
}

func (l *Link) splitSyncPayload(payload []byte) (nonce, tag []byte, err error) {
	if len(payload) < l.cfg.NonceLen {
		return nil, nil, fmt.Errorf("link: handshake payload %d bytes shorter than nonce length %d", len(payload), l.cfg.NonceLen)
	}
	nonce = payload[:l.cfg.NonceLen]
	tag = payload[l.cfg.NonceLen:]
	return nonce, tag, nil
}

// handleLinkSync processes an inbound LINK_SYNC as the responder side: it
// verifies the tag in constant time and, on success, echoes LINK_SYNC_RESP
// and transitions to Idle. A resend of an already-accepted nonce is a
// handshake replay (E3): it is re-acknowledged without moving counters.
func (l *Link) handleLinkSync(payload []byte) error {
	nonce, tag, err := l.splitSyncPayload(payload)
	if err != nil {
		l.setState(Fault)
		l.rec.HandshakeFailed()
		return err
	}

	if l.handshakeComplete && bytes.Equal(nonce, l.peerSyncNonce) {
		l.rec.DuplicateHandshake()
		return l.transport.WritePacket(l.mustPacket(l.ids.LinkSyncResp, l.syncPayload(nonce)))
	}

	if len(l.cfg.Secret) > 0 {
		want := security.Tag(l.cfg.Secret, nonce, l.cfg.TagLen)
		if !security.ConstantTimeEqual(tag, want) {
			l.setState(Fault)
			l.rec.HandshakeFailed()
			return fmt.Errorf("link: handshake tag verification failed")
		}
	}

	l.peerSyncNonce = append([]byte(nil), nonce...)
	l.handshakeComplete = true
	l.rec.HandshakeSucceeded()
	l.setState(Idle)
	return l.transport.WritePacket(l.mustPacket(l.ids.LinkSyncResp, l.syncPayload(nonce)))
}

// handleLinkSyncResp processes an inbound LINK_SYNC_RESP as the initiator
// side: it verifies the echoed nonce and the peer's tag, and on success
// transitions to Idle.
func (l *Link) handleLinkSyncResp(payload []byte) error {
	if l.handshakeNonce == nil {
		return fmt.Errorf("link: unexpected LINK_SYNC_RESP with no outstanding handshake")
	}
	nonce, tag, err := l.splitSyncPayload(payload)
	if err != nil {
		l.setState(Fault)
		l.rec.HandshakeFailed()
		return err
	}
	if !bytes.Equal(nonce, l.handshakeNonce) {
		return fmt.Errorf("link: LINK_SYNC_RESP nonce mismatch")
	}
	if len(l.cfg.Secret) > 0 {
		want := security.Tag(l.cfg.Secret, nonce, l.cfg.TagLen)
		if !security.ConstantTimeEqual(tag, want) {
			l.setState(Fault)
			l.rec.HandshakeFailed()
			return fmt.Errorf("link: handshake tag verification failed")
		}
	}
	l.handshakeComplete = true
	l.rec.HandshakeSucceeded()
	l.setState(Idle)
	return nil
}
