package envelope

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// RecipientEntry binds one recipient to its wrapped symmetric key and the
// identity that was used as the ECDH counterparty when the key was wrapped
// (the original sender, or whoever later ran AddParticipant).
type RecipientEntry struct {
	Recipient        Identity
	WrapCounterparty Identity
	WrappedKey       []byte
}

// Header is the decoded form of the envelope header.
//
// Wire layout, all integers little-endian, varints base-128 unsigned:
//
//	Envelope := varint(headerLen) || Header || Body
//	Header   := u32(version) || varint(recipientCount) || RecipientEntry...
//	            || varint(adminCount) || Identity...
//	RecipientEntry := recipient(33) || wrapCounterparty(33)
//	                  || varint(wrapLen) || wrappedKey
type Header struct {
	Version        uint32
	Entries        []RecipientEntry
	Administrators []Identity
}

// Entry returns the first entry for the given recipient identity.
func (h Header) Entry(id Identity) (RecipientEntry, bool) {
	for _, e := range h.Entries {
		if e.Recipient.Equal(id) {
			return e, true
		}
	}
	return RecipientEntry{}, false
}

// IsAdministrator reports whether id may mutate group membership.
func (h Header) IsAdministrator(id Identity) bool {
	for _, a := range h.Administrators {
		if a.Equal(id) {
			return true
		}
	}
	return false
}

// EncodeEnvelope serializes a header and body into the length-prefixed wire
// form. The header is validated before anything is written.
func EncodeEnvelope(h Header, body []byte) ([]byte, error) {
	hdr, err := encodeHeader(h)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, binary.MaxVarintLen64+len(hdr)+len(body))
	out = binary.AppendUvarint(out, uint64(len(hdr)))
	out = append(out, hdr...)
	out = append(out, body...)
	return out, nil
}

// DecodeEnvelope splits raw envelope bytes into header and body. Decoding is
// fail-closed: any truncated or structurally inconsistent header aborts the
// whole decode rather than skipping entries, since a silently dropped entry
// can mask truncation or tampering. A zero-length body is valid.
func DecodeEnvelope(raw []byte) (Header, []byte, error) {
	hdrLen, off, err := readUvarint(raw, 0)
	if err != nil {
		return Header{}, nil, err
	}
	if hdrLen > uint64(len(raw)-off) {
		return Header{}, nil, errors.Wrapf(ErrMalformedHeader,
			"header length %d exceeds remaining %d bytes", hdrLen, len(raw)-off)
	}
	end := off + int(hdrLen)
	h, err := decodeHeader(raw[off:end])
	if err != nil {
		return Header{}, nil, err
	}
	return h, raw[end:], nil
}

func encodeHeader(h Header) ([]byte, error) {
	if h.Version < 1 {
		return nil, errors.Wrap(ErrValidation, "header version must be at least 1")
	}
	if len(h.Entries) == 0 {
		return nil, errors.Wrap(ErrValidation, "header must contain at least one recipient")
	}
	if len(h.Administrators) == 0 {
		return nil, errors.Wrap(ErrValidation, "header must name at least one administrator")
	}
	for _, e := range h.Entries {
		if err := e.Recipient.Validate(); err != nil {
			return nil, err
		}
		if err := e.WrapCounterparty.Validate(); err != nil {
			return nil, err
		}
		if len(e.WrappedKey) == 0 {
			return nil, errors.Wrapf(ErrValidation,
				"empty wrapped key for recipient %s", e.Recipient.Short())
		}
	}
	for _, a := range h.Administrators {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, 0, headerSize(h))
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = binary.AppendUvarint(buf, uint64(len(h.Entries)))
	for _, e := range h.Entries {
		buf = append(buf, e.Recipient...)
		buf = append(buf, e.WrapCounterparty...)
		buf = binary.AppendUvarint(buf, uint64(len(e.WrappedKey)))
		buf = append(buf, e.WrappedKey...)
	}
	buf = binary.AppendUvarint(buf, uint64(len(h.Administrators)))
	for _, a := range h.Administrators {
		buf = append(buf, a...)
	}
	return buf, nil
}

func headerSize(h Header) int {
	n := 4 + binary.MaxVarintLen64*2
	for _, e := range h.Entries {
		n += 2*IdentityLen + binary.MaxVarintLen64 + len(e.WrappedKey)
	}
	n += len(h.Administrators) * IdentityLen
	return n
}

func decodeHeader(buf []byte) (Header, error) {
	version, off, err := readUint32(buf, 0)
	if err != nil {
		return Header{}, err
	}
	if version < 1 {
		return Header{}, errors.Wrapf(ErrMalformedHeader, "invalid header version %d", version)
	}

	recipientCount, off, err := readUvarint(buf, off)
	if err != nil {
		return Header{}, err
	}
	if recipientCount == 0 {
		return Header{}, errors.Wrap(ErrMalformedHeader, "header contains no recipients")
	}
	// Each entry consumes at least two identities, so the count can never
	// exceed the remaining bytes. Checked before allocating.
	if recipientCount > uint64(len(buf)-off) {
		return Header{}, errors.Wrapf(ErrMalformedHeader,
			"recipient count %d exceeds header size", recipientCount)
	}

	entries := make([]RecipientEntry, 0, recipientCount)
	for i := uint64(0); i < recipientCount; i++ {
		var rec, cp, key []byte
		rec, off, err = readBytes(buf, off, IdentityLen)
		if err != nil {
			return Header{}, err
		}
		cp, off, err = readBytes(buf, off, IdentityLen)
		if err != nil {
			return Header{}, err
		}
		var wrapLen uint64
		wrapLen, off, err = readUvarint(buf, off)
		if err != nil {
			return Header{}, err
		}
		if wrapLen > uint64(len(buf)-off) {
			return Header{}, errors.Wrapf(ErrMalformedHeader,
				"wrapped key length %d exceeds header size", wrapLen)
		}
		key, off, err = readBytes(buf, off, int(wrapLen))
		if err != nil {
			return Header{}, err
		}
		entries = append(entries, RecipientEntry{
			Recipient:        Identity(rec),
			WrapCounterparty: Identity(cp),
			WrappedKey:       key,
		})
	}

	adminCount, off, err := readUvarint(buf, off)
	if err != nil {
		return Header{}, err
	}
	if adminCount == 0 {
		return Header{}, errors.Wrap(ErrMalformedHeader, "header names no administrators")
	}
	if adminCount > uint64(len(buf)-off) {
		return Header{}, errors.Wrapf(ErrMalformedHeader,
			"administrator count %d exceeds header size", adminCount)
	}
	admins := make([]Identity, 0, adminCount)
	for i := uint64(0); i < adminCount; i++ {
		var a []byte
		a, off, err = readBytes(buf, off, IdentityLen)
		if err != nil {
			return Header{}, err
		}
		admins = append(admins, Identity(a))
	}

	if off != len(buf) {
		return Header{}, errors.Wrapf(ErrMalformedHeader,
			"%d trailing bytes after header fields", len(buf)-off)
	}
	return Header{Version: version, Entries: entries, Administrators: admins}, nil
}

// Cursor-style readers: each takes an offset into buf and returns the value
// plus the next offset. No shared mutable state.

func readUvarint(buf []byte, off int) (uint64, int, error) {
	if off > len(buf) {
		return 0, 0, errors.Wrap(ErrMalformedHeader, "truncated varint")
	}
	v, n := binary.Uvarint(buf[off:])
	if n <= 0 {
		return 0, 0, errors.Wrap(ErrMalformedHeader, "truncated varint")
	}
	return v, off + n, nil
}

func readUint32(buf []byte, off int) (uint32, int, error) {
	if len(buf)-off < 4 {
		return 0, 0, errors.Wrap(ErrMalformedHeader, "truncated u32 field")
	}
	return binary.LittleEndian.Uint32(buf[off:]), off + 4, nil
}

func readBytes(buf []byte, off, n int) ([]byte, int, error) {
	if n < 0 || len(buf)-off < n {
		return nil, 0, errors.Wrapf(ErrMalformedHeader,
			"truncated field: need %d bytes, have %d", n, len(buf)-off)
	}
	return buf[off : off+n], off + n, nil
}
