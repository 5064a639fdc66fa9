package envelope

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AddParticipant extends an envelope's membership with newParticipant and
// returns the re-encoded envelope. Only a current recipient may add: the
// caller must locate its own entry and unwrap the symmetric key before it
// can be wrapped for the newcomer. The new entry records the caller — the
// actual ECDH counterparty of the fresh wrap — as wrap counterparty, not the
// original creator. The header version increases by one; administrators and
// body are unchanged.
func (p *Protocol) AddParticipant(pctx ProtocolContext, envelope []byte, newParticipant Identity) ([]byte, error) {
	if err := newParticipant.Validate(); err != nil {
		return nil, errors.WithMessage(err, "new participant")
	}
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
	if _, ok := h.Entry(newParticipant); ok {
		return nil, errors.Wrapf(ErrDuplicateParticipant, "identity %s", newParticipant.Short())
	}

	keyBytes, err := p.wallet.Unwrap(pctx, entry.WrapCounterparty, entry.WrappedKey)
	if err != nil {
		return nil, errors.Wrapf(ErrKeyUnwrap, "recipient %s: %v", own.Short(), err)
	}
	wrapped, err := p.wallet.Wrap(pctx, newParticipant, keyBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "wrap key for participant %s", newParticipant.Short())
	}

	entries := make([]RecipientEntry, len(h.Entries), len(h.Entries)+1)
	copy(entries, h.Entries)
	entries = append(entries, RecipientEntry{
		Recipient:        newParticipant,
		WrapCounterparty: own,
		WrappedKey:       wrapped,
	})
	out, err := EncodeEnvelope(Header{
		Version:        h.Version + 1,
		Entries:        entries,
		Administrators: h.Administrators,
	}, body)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(log.Fields{
		"participant": newParticipant.Short(),
		"added_by":    own.Short(),
		"version":     h.Version + 1,
	}).Info("added envelope participant")
	return out, nil
}

// RemoveParticipant drops every entry for target from the envelope's header
// and returns the re-encoded envelope. Only administrators may remove. The
// administrator set itself is unchanged, even when target is an
// administrator; demotion is a separate concern with no path here.
//
// The symmetric key and body are not rotated: a removed participant that
// retained a copy of the pre-removal envelope can still decrypt that
// message. Removal only prevents the removed identity from locating itself
// in future headers.
func (p *Protocol) RemoveParticipant(envelope []byte, target Identity) ([]byte, error) {
	h, body, err := DecodeEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	own, err := p.wallet.Identity()
	if err != nil {
		return nil, errors.Wrap(err, "wallet identity")
	}
	if !h.IsAdministrator(own) {
		return nil, errors.Wrapf(ErrNotAuthorized, "identity %s", own.Short())
	}

	kept := make([]RecipientEntry, 0, len(h.Entries))
	for _, e := range h.Entries {
		if !e.Recipient.Equal(target) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(h.Entries) {
		return nil, errors.Wrapf(ErrParticipantNotFound, "identity %s", target.Short())
	}
	if len(kept) == 0 {
		return nil, errors.Wrap(ErrValidation, "removal would leave the header without recipients")
	}

	out, err := EncodeEnvelope(Header{
		Version:        h.Version + 1,
		Entries:        kept,
		Administrators: h.Administrators,
	}, body)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(log.Fields{
		"participant": target.Short(),
		"removed_by":  own.Short(),
		"version":     h.Version + 1,
	}).Info("removed envelope participant")
	return out, nil
}
