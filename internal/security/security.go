// Package security implements the handshake's cryptographic primitives
// (C3): HMAC-SHA256 tag derivation, HKDF-SHA256 session-tag derivation,
// constant-time tag comparison, secure zeroisation of key material, and the
// known-answer self-tests the daemon runs once at startup.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Tag computes an HMAC-SHA256 over msg keyed by secret, truncated to
// tagLen bytes. The handshake uses this to authenticate a LINK_SYNC /
// LINK_SYNC_RESP nonce.
func Tag(secret, msg []byte, tagLen int) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)
	full := mac.Sum(nil)
	if tagLen > len(full) {
		tagLen = len(full)
	}
	return full[:tagLen]
}

// ConstantTimeEqual compares two byte slices in constant time: it always
// examines every byte of both slices regardless of where they first
// differ, and branches only once at the very end. Slices of unequal
// length are rejected at once, before any byte is compared.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// DeriveSessionTag runs HKDF-SHA256 over secret with the handshake nonce as
// salt and label as the HKDF "info" context string, returning outLen bytes.
// Used to derive a tag distinct from the raw HMAC handshake tag for any
// component that needs a session-scoped secret (e.g. a future rekey).
func DeriveSessionTag(secret, nonce []byte, label string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nonce, []byte(label))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Zero overwrites buf with zeroes through an indirection that the compiler
// cannot prove is dead, so it cannot elide the wipe even though buf is
// about to go out of scope. Callers hold key material in a buf they alone
// own and call Zero on every exit path (including error returns).
func Zero(buf []byte) {
	for i := range buf {
		volatileZero(&buf[i])
	}
}

// volatileZero is a separate, never-inlined function: writing through a
// pointer argument in a function the compiler cannot inline defeats the
// store-elimination that a plain `buf[i] = 0` loop is vulnerable to.
//
//go:noinline
func volatileZero(p *byte) {
	*p = 0
}
