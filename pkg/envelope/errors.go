package envelope

import "github.com/pkg/errors"

// Failure taxonomy for envelope operations. All failures are terminal and
// surfaced directly to the caller; nothing is retried internally. Callers
// distinguish cases with errors.Is.
var (
	// ErrValidation indicates malformed input: a bad identity, an empty
	// recipient or administrator list, or a mutation that would leave the
	// header without recipients.
	ErrValidation = errors.New("invalid envelope input")

	// ErrMalformedHeader indicates a truncated or structurally invalid
	// header buffer.
	ErrMalformedHeader = errors.New("malformed envelope header")

	// ErrRecipientNotFound indicates the caller's identity has no entry in
	// the header. This is the expected outcome for anyone outside the
	// current membership, including removed participants.
	ErrRecipientNotFound = errors.New("caller is not a recipient")

	// ErrKeyUnwrap indicates the wallet rejected a wrapped key.
	ErrKeyUnwrap = errors.New("wrapped key unwrap failed")

	// ErrBodyDecrypt indicates authenticated decryption of the body failed.
	ErrBodyDecrypt = errors.New("body decryption failed")

	// ErrNotAuthorized indicates a non-administrator attempted removal.
	ErrNotAuthorized = errors.New("caller is not an administrator")

	// ErrDuplicateParticipant indicates the add target already has an entry.
	ErrDuplicateParticipant = errors.New("participant already present")

	// ErrParticipantNotFound indicates the remove target has no entry.
	ErrParticipantNotFound = errors.New("participant not found")
)
