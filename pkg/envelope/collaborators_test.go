package envelope_test

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"

	"github.com/Layr-Labs/groupseal/pkg/envelope"
)

// fakeWallet is a deterministic in-memory wallet for protocol tests. Its
// wrap is real authenticated encryption (AES-GCM) under a secret derived
// from the unordered identity pair and the protocol context, so it has the
// same symmetry and tamper-detection behavior as an ECDH wallet without any
// curve math.
type fakeWallet struct {
	id envelope.Identity

	identityErr error
	wrapErr     map[string]error // keyed by counterparty hex
}

func newFakeWallet(seed byte) *fakeWallet {
	id := make(envelope.Identity, envelope.IdentityLen)
	id[0] = 0x02
	for i := 1; i < envelope.IdentityLen; i++ {
		id[i] = seed
	}
	return &fakeWallet{id: id, wrapErr: make(map[string]error)}
}

func (w *fakeWallet) Identity() (envelope.Identity, error) {
	if w.identityErr != nil {
		return nil, w.identityErr
	}
	return w.id, nil
}

func (w *fakeWallet) Wrap(pctx envelope.ProtocolContext, counterparty envelope.Identity, plaintext []byte) ([]byte, error) {
	if err := w.wrapErr[counterparty.String()]; err != nil {
		return nil, err
	}
	gcm, err := w.pairCipher(pctx, counterparty)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (w *fakeWallet) Unwrap(pctx envelope.ProtocolContext, counterparty envelope.Identity, ciphertext []byte) ([]byte, error) {
	gcm, err := w.pairCipher(pctx, counterparty)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("wrapped key too short")
	}
	return gcm.Open(nil, ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():], nil)
}

// pairCipher derives the same key for (a, b) and (b, a).
func (w *fakeWallet) pairCipher(pctx envelope.ProtocolContext, counterparty envelope.Identity) (cipher.AEAD, error) {
	lo, hi := w.id, counterparty
	if bytes.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	mat := sha256.New()
	mat.Write([]byte("fake-wrap\x00" + pctx.Domain + "\x00" + pctx.KeyID + "\x00"))
	mat.Write(lo)
	mat.Write(hi)
	block, err := aes.NewCipher(mat.Sum(nil))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// fakeCipher wraps the test body cipher with injectable failures.
type fakeCipher struct {
	generateErr error
	encryptErr  error
}

func (c *fakeCipher) GenerateKey() (envelope.Key, error) {
	if c.generateErr != nil {
		return nil, c.generateErr
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *fakeCipher) Encrypt(key envelope.Key, plaintext []byte) ([]byte, error) {
	if c.encryptErr != nil {
		return nil, c.encryptErr
	}
	gcm, err := bodyGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *fakeCipher) Decrypt(key envelope.Key, ciphertext []byte) ([]byte, error) {
	gcm, err := bodyGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	return gcm.Open(nil, ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():], nil)
}

func bodyGCM(key envelope.Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
