// Package wallet provides the default identity and key-wrap collaborator for
// the envelope protocol, backed by a secp256k1 keypair. Wrapping uses a
// static-static ECDH shared secret expanded with HKDF-SHA256 and sealed with
// ChaCha20-Poly1305; the ProtocolContext's domain tag and key ID feed the
// HKDF info string for domain separation.
package wallet

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"

	"github.com/Layr-Labs/groupseal/pkg/envelope"
)

const (
	identityInfoV1 = "groupseal/identity/v1"
	wrapInfoV1     = "groupseal/wrap/v1"
)

// Wallet holds a secp256k1 private key. Its public identity is the 33-byte
// compressed form of the corresponding public key.
type Wallet struct {
	priv *secp256k1.PrivateKey
}

// NewFromMnemonic derives a wallet from a BIP-39 mnemonic. Derivation is
// deterministic: the same mnemonic always yields the same identity.
func NewFromMnemonic(mnemonic string) (*Wallet, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, errors.New("mnemonic is required")
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("not a valid BIP-39 mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")
	sk := hkdfExpand32(seed, []byte(identityInfoV1))
	return &Wallet{priv: secp256k1.PrivKeyFromBytes(sk[:])}, nil
}

// NewRandom generates a wallet with a fresh random key.
func NewRandom() (*Wallet, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate secp256k1 key")
	}
	return &Wallet{priv: priv}, nil
}

func (w *Wallet) Identity() (envelope.Identity, error) {
	return envelope.Identity(w.priv.PubKey().SerializeCompressed()), nil
}

// Wrap seals plaintext for counterparty. Output is nonce || ciphertext and
// is self-contained: Unwrap needs only the same counterparty identity and
// context on the other side of the ECDH pair.
func (w *Wallet) Wrap(pctx envelope.ProtocolContext, counterparty envelope.Identity, plaintext []byte) ([]byte, error) {
	aead, err := w.wrapCipher(pctx, counterparty)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "read nonce")
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Unwrap inverts Wrap. It fails when the ciphertext was tampered with or was
// wrapped against different counterparty material or context.
func (w *Wallet) Unwrap(pctx envelope.ProtocolContext, counterparty envelope.Identity, ciphertext []byte) ([]byte, error) {
	aead, err := w.wrapCipher(pctx, counterparty)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < chacha20poly1305.NonceSize+aead.Overhead() {
		return nil, errors.Errorf("wrapped key too short: %d bytes", len(ciphertext))
	}
	nonce := ciphertext[:chacha20poly1305.NonceSize]
	pt, err := aead.Open(nil, nonce, ciphertext[chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "open wrapped key")
	}
	return pt, nil
}

// wrapCipher derives the AEAD for a (self, counterparty, context) triple.
// ECDH(a, B) == ECDH(b, A), so both sides of a wrap derive the same cipher.
func (w *Wallet) wrapCipher(pctx envelope.ProtocolContext, counterparty envelope.Identity) (cipher.AEAD, error) {
	pub, err := secp256k1.ParsePubKey(counterparty)
	if err != nil {
		return nil, errors.Wrapf(err, "counterparty %s", counterparty.Short())
	}
	shared := secp256k1.GenerateSharedSecret(w.priv, pub)
	info := wrapInfoV1 + "\x00" + pctx.Domain + "\x00" + pctx.KeyID
	rd := hkdf.New(sha256.New, shared, nil, []byte(info))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rd, key); err != nil {
		return nil, errors.Wrap(err, "derive wrap key")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "chacha20poly1305")
	}
	return aead, nil
}

func hkdfExpand32(seed, info []byte) [32]byte {
	rd := hkdf.New(sha256.New, seed, nil, info) // salt=nil; domain separation via info
	var out [32]byte
	_, _ = rd.Read(out[:])
	return out
}

// Fingerprint returns a short keccak-256 fingerprint of an identity for logs
// and CLI output.
func Fingerprint(id envelope.Identity) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(id)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
