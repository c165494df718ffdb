package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	c := NewCipher("s3cret")
	require.True(t, c.Enabled())

	enc, err := c.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, enc, "hunter2")

	enc2, err := c.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2, "nonce must differ per call")

	plain, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestCipher_WrongKeyOrGarbage(t *testing.T) {
	enc, err := NewCipher("a").Encrypt("x")
	require.NoError(t, err)

	_, err = NewCipher("b").Decrypt(enc)
	assert.Error(t, err)

	_, err = NewCipher("a").Decrypt("not base64!")
	assert.Error(t, err)

	_, err = NewCipher("a").Decrypt("AAAA")
	assert.Error(t, err)
}

func TestCipher_NoKey(t *testing.T) {
	c := NewCipher("")
	assert.False(t, c.Enabled())

	_, err := c.Encrypt("x")
	assert.ErrorIs(t, err, ErrNoKey)
	_, err = c.Decrypt("x")
	assert.ErrorIs(t, err, ErrNoKey)
}
