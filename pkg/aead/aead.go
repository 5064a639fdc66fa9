// Package aead provides the default authenticated body cipher for the
// envelope protocol: AES-256-GCM with self-contained ciphertexts.
package aead

import (
	"crypto/rand"
	"io"

	"github.com/google/tink/go/aead/subtle"
	"github.com/pkg/errors"

	"github.com/Layr-Labs/groupseal/pkg/envelope"
)

// KeySize selects AES-256.
const KeySize = 32

// AESGCM implements envelope.Cipher. The random nonce is prepended to each
// ciphertext by the underlying primitive, so ciphertexts carry everything
// needed for decryption besides the key.
type AESGCM struct{}

func New() *AESGCM { return &AESGCM{} }

func (c *AESGCM) GenerateKey() (envelope.Key, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.Wrap(err, "read key material")
	}
	return envelope.Key(key), nil
}

func (c *AESGCM) Encrypt(key envelope.Key, plaintext []byte) ([]byte, error) {
	prim, err := subtle.NewAESGCM(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes-gcm init")
	}
	ct, err := prim.Encrypt(plaintext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt body")
	}
	return ct, nil
}

func (c *AESGCM) Decrypt(key envelope.Key, ciphertext []byte) ([]byte, error) {
	prim, err := subtle.NewAESGCM(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes-gcm init")
	}
	pt, err := prim.Decrypt(ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt body")
	}
	return pt, nil
}
