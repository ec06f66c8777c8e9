package security

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// SelfTest runs the known-answer tests for SHA-256 and HMAC-SHA256 the
// daemon must pass before it will start (spec C3, exit code 2 on failure).
// Vectors are from NIST FIPS 180-4 (SHA-256) and RFC 4231 (HMAC-SHA256
// test case 1).
func SelfTest() error {
	if err := sha256KAT(); err != nil {
		return fmt.Errorf("sha256 self-test failed: %w", err)
	}
	if err := hmacKAT(); err != nil {
		return fmt.Errorf("hmac-sha256 self-test failed: %w", err)
	}
	return nil
}

func sha256KAT() error {
	sum := sha256.Sum256([]byte("abc"))
	want := mustHex("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if !bytes.Equal(sum[:], want) {
		return fmt.Errorf("sha256(\"abc\") mismatch: got %x", sum)
	}
	return nil
}

func hmacKAT() error {
	// RFC 4231 test case 1.
	key := bytes.Repeat([]byte{0x0b}, 20)
	data := []byte("Hi There")
	want := mustHex("b0344c61d8db38535ca8afceaf0bf12b881dc200c9833da726e9376c2e32cff7")

	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	got := mac.Sum(nil)
	if !bytes.Equal(got, want) {
		return fmt.Errorf("hmac-sha256 RFC4231#1 mismatch: got %x", got)
	}
	return nil
}

func mustHex(s string) []byte {
	out := make([]byte, 0, len(s)/2)
	hi := byte(0)
	haveHi := false
	for _, c := range []byte(s) {
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		default:
			panic("mustHex: bad hex digit")
		}
		if !haveHi {
			hi = v
			haveHi = true
		} else {
			out = append(out, hi<<4|v)
			haveHi = false
		}
	}
	return out
}
