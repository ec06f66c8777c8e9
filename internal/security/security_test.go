package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfTestPasses(t *testing.T) {
	require.NoError(t, SelfTest())
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("ab")))
	assert.True(t, ConstantTimeEqual(nil, nil))
}

func TestTagVerification(t *testing.T) {
	secret := []byte("shared-secret")
	nonce := []byte("0123456789abcdef")

	tag := Tag(secret, nonce, 16)
	require.Len(t, tag, 16)

	again := Tag(secret, nonce, 16)
	assert.True(t, ConstantTimeEqual(tag, again))

	mutated := append([]byte(nil), tag...)
	mutated[0] ^= 0x01
	assert.False(t, ConstantTimeEqual(tag, mutated))
}

func TestDeriveSessionTagDeterministic(t *testing.T) {
	secret := []byte("shared-secret")
	nonce := []byte("0123456789abcdef")

	a, err := DeriveSessionTag(secret, nonce, "console", 32)
	require.NoError(t, err)
	b, err := DeriveSessionTag(secret, nonce, "console", 32)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := DeriveSessionTag(secret, nonce, "datastore", 32)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestZeroWipesBuffer(t *testing.T) {
	buf := []byte("top-secret-key-material")
	Zero(buf)
	for i, b := range buf {
		assert.Equal(t, byte(0), b, "byte %d was not wiped", i)
	}
}
