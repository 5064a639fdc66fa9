// Package envelope implements a group encryption envelope: one message is
// encrypted once under an ephemeral symmetric key, and that key is wrapped
// individually for each recipient in a self-describing binary header
// prepended to the ciphertext body. Administrators named in the header may
// mutate group membership after the fact without re-encrypting the body.
//
// The package is a pure library. Key wrapping is delegated to a Wallet and
// body encryption to a Cipher; it has no knowledge of how either is
// implemented.
package envelope

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Wallet is the identity and key-wrap collaborator. Wrap and Unwrap are
// treated as potentially slow, fallible remote operations; the protocol
// issues per-recipient wraps concurrently during Encrypt.
type Wallet interface {
	// Identity returns the caller's own 33-byte public identity.
	Identity() (Identity, error)
	// Wrap asymmetrically encrypts plaintext for counterparty, producing a
	// self-contained ciphertext.
	Wrap(pctx ProtocolContext, counterparty Identity, plaintext []byte) ([]byte, error)
	// Unwrap inverts Wrap. It fails if counterparty or ciphertext do not
	// match what the paired Wrap call produced.
	Unwrap(pctx ProtocolContext, counterparty Identity, ciphertext []byte) ([]byte, error)
}

// Key is ephemeral symmetric key material for the body cipher. It is never
// serialized in the clear; it exists only transiently inside Encrypt,
// Decrypt and AddParticipant call frames.
type Key []byte

// Cipher is the authenticated symmetric cipher used for the message body.
type Cipher interface {
	GenerateKey() (Key, error)
	Encrypt(key Key, plaintext []byte) ([]byte, error)
	// Decrypt fails on any authentication mismatch.
	Decrypt(key Key, ciphertext []byte) ([]byte, error)
}

// ProtocolContext carries domain-separation parameters that are passed
// through to the wallet: a security-level/domain tag and a key identifier.
// Opaque to this package.
type ProtocolContext struct {
	Domain string
	KeyID  string
}

// DefaultWrapConcurrency bounds the per-recipient wrap fan-out during
// Encrypt. Recipient lists have been exercised up to ~1000 entries.
const DefaultWrapConcurrency = 16

// Protocol orchestrates encryption, decryption and membership mutation over
// envelopes. All operations are pure functions over immutable byte buffers
// plus calls into the collaborators; a Protocol is safe for concurrent use.
type Protocol struct {
	wallet          Wallet
	cipher          Cipher
	logger          log.FieldLogger
	wrapConcurrency int
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l log.FieldLogger) Option {
	return func(p *Protocol) { p.logger = l }
}

// WithWrapConcurrency overrides the wrap fan-out bound.
func WithWrapConcurrency(n int) Option {
	return func(p *Protocol) {
		if n > 0 {
			p.wrapConcurrency = n
		}
	}
}

func New(wallet Wallet, cipher Cipher, opts ...Option) *Protocol {
	silent := log.New()
	silent.SetOutput(io.Discard)
	p := &Protocol{
		wallet:          wallet,
		cipher:          cipher,
		logger:          silent,
		wrapConcurrency: DefaultWrapConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Encrypt encrypts message once for every recipient and returns the
// serialized envelope. Recipients are deduplicated preserving first
// occurrence. The creator is always an administrator of what it creates: a
// nil administrators list defaults to the caller, and the caller is
// prepended to any supplied list it is absent from.
//
// Per-recipient key wraps run concurrently over a bounded pool; entry order
// in the header always matches recipient order. Any single wrap failure
// aborts the whole call — a partial envelope is never returned.
func (p *Protocol) Encrypt(pctx ProtocolContext, message []byte, recipients, administrators []Identity) ([]byte, error) {
	recipients = dedupeIdentities(recipients)
	if len(recipients) == 0 {
		return nil, errors.Wrap(ErrValidation, "no recipients")
	}
	for _, r := range recipients {
		if err := r.Validate(); err != nil {
			return nil, errors.WithMessage(err, "recipient")
		}
	}

	own, err := p.wallet.Identity()
	if err != nil {
		return nil, errors.Wrap(err, "wallet identity")
	}
	if err := own.Validate(); err != nil {
		return nil, errors.WithMessage(err, "own identity")
	}

	var admins []Identity
	if administrators == nil {
		admins = []Identity{own}
	} else {
		admins = dedupeIdentities(administrators)
		for _, a := range admins {
			if err := a.Validate(); err != nil {
				return nil, errors.WithMessage(err, "administrator")
			}
		}
		if !containsIdentity(admins, own) {
			admins = append([]Identity{own}, admins...)
		}
	}

	key, err := p.cipher.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate body key")
	}
	body, err := p.cipher.Encrypt(key, message)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt body")
	}

	wrapped := make([][]byte, len(recipients))
	var g errgroup.Group
	g.SetLimit(p.wrapConcurrency)
	for i, r := range recipients {
		i, r := i, r
		g.Go(func() error {
			ct, err := p.wallet.Wrap(pctx, r, []byte(key))
			if err != nil {
				return errors.Wrapf(err, "wrap key for recipient %s", r.Short())
			}
			wrapped[i] = ct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]RecipientEntry, len(recipients))
	for i, r := range recipients {
		entries[i] = RecipientEntry{
			Recipient:        r,
			WrapCounterparty: own,
			WrappedKey:       wrapped[i],
		}
	}
	env, err := EncodeEnvelope(Header{
		Version:        1,
		Entries:        entries,
		Administrators: admins,
	}, body)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(log.Fields{
		"recipients":     len(entries),
		"administrators": len(admins),
		"creator":        own.Short(),
	}).Debug("encrypted group envelope")
	return env, nil
}

// Decrypt recovers the message from an envelope. The caller must hold an
// entry in the header; its wrapped key is unwrapped against the recorded
// wrap counterparty and the body is authenticated-decrypted.
func (p *Protocol) Decrypt(pctx ProtocolContext, envelope []byte) ([]byte, error) {
	h, body, err := DecodeEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	own, err := p.wallet.Identity()
	if err != nil {
		return nil, errors.Wrap(err, "wallet identity")
	}
	entry, ok := h.Entry(own)
	if !ok {
		return nil, errors.Wrapf(ErrRecipientNotFound, "identity %s", own.Short())
	}
	keyBytes, err := p.wallet.Unwrap(pctx, entry.WrapCounterparty, entry.WrappedKey)
	if err != nil {
		return nil, errors.Wrapf(ErrKeyUnwrap, "recipient %s: %v", own.Short(), err)
	}
	message, err := p.cipher.Decrypt(Key(keyBytes), body)
	if err != nil {
		return nil, errors.Wrapf(ErrBodyDecrypt, "%v", err)
	}
	p.logger.WithFields(log.Fields{
		"version":   h.Version,
		"recipient": own.Short(),
	}).Debug("decrypted group envelope")
	return message, nil
}

func dedupeIdentities(ids []Identity) []Identity {
	out := make([]Identity, 0, len(ids))
	for _, id := range ids {
		if !containsIdentity(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func containsIdentity(ids []Identity, id Identity) bool {
	for _, candidate := range ids {
		if candidate.Equal(id) {
			return true
		}
	}
	return false
}
