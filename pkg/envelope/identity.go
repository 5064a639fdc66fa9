package envelope

import (
	"bytes"
	"encoding/hex"

	"github.com/pkg/errors"
)

// IdentityLen is the length of a compressed secp256k1 public key.
const IdentityLen = 33

// Identity is a participant's public identity: a 33-byte compressed
// elliptic-curve public key. The codec only enforces the length; curve
// validity is the wallet's concern.
type Identity []byte

// ParseIdentity decodes the 66-character hex form of an identity.
func ParseIdentity(s string) (Identity, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrValidation, "identity %q is not valid hex", s)
	}
	id := Identity(raw)
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return id, nil
}

// Validate checks the fixed-length invariant.
func (id Identity) Validate() error {
	if len(id) != IdentityLen {
		return errors.Wrapf(ErrValidation, "identity %s must be %d bytes, got %d",
			hex.EncodeToString(id), IdentityLen, len(id))
	}
	return nil
}

func (id Identity) Equal(other Identity) bool {
	return bytes.Equal(id, other)
}

func (id Identity) String() string {
	return hex.EncodeToString(id)
}

// Short returns an abbreviated hex form for logs and error messages.
func (id Identity) Short() string {
	s := hex.EncodeToString(id)
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
