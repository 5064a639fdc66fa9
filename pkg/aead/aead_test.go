package aead

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	c := New()

	k1, err := c.GenerateKey()
	require.NoError(t, err)
	require.Len(t, []byte(k1), KeySize)

	k2, err := c.GenerateKey()
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := New()
	key, err := c.GenerateKey()
	require.NoError(t, err)

	plaintext := []byte("body plaintext")
	ct, err := c.Encrypt(key, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ct)

	got, err := c.Decrypt(key, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	c := New()
	key, err := c.GenerateKey()
	require.NoError(t, err)

	ct, err := c.Encrypt(key, []byte{})
	require.NoError(t, err)

	got, err := c.Decrypt(key, ct)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	c := New()
	key, err := c.GenerateKey()
	require.NoError(t, err)

	ct, err := c.Encrypt(key, []byte("body"))
	require.NoError(t, err)

	ct[len(ct)-1] ^= 0x01
	_, err = c.Decrypt(key, ct)
	require.Error(t, err)
}

func TestDecryptWrongKey(t *testing.T) {
	c := New()
	k1, err := c.GenerateKey()
	require.NoError(t, err)
	k2, err := c.GenerateKey()
	require.NoError(t, err)

	ct, err := c.Encrypt(k1, []byte("body"))
	require.NoError(t, err)

	_, err = c.Decrypt(k2, ct)
	require.Error(t, err)
}

func TestFreshNoncePerEncrypt(t *testing.T) {
	c := New()
	key, err := c.GenerateKey()
	require.NoError(t, err)

	ct1, err := c.Encrypt(key, []byte("same"))
	require.NoError(t, err)
	ct2, err := c.Encrypt(key, []byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, ct1, ct2)
}
