package musig

import "errors"

var (
	// ErrInvalidSignature is returned when a signature fails the verification equation.
	//
	// This is a local, recoverable outcome: reject the signature, don't retry.
	ErrInvalidSignature = errors.New("musig: invalid signature")

	// ErrCommitmentMismatch is returned when a revealed nonce point does not open
	// the commitment received earlier.
	//
	// The signing session must abort, and the offending co-signer should be
	// treated as malicious or faulty.
	ErrCommitmentMismatch = errors.New("musig: revealed nonce does not match commitment")
)
