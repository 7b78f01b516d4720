package musig

import (
	"errors"
	"fmt"
	"io"

	"github.com/quorumsig/musig/pkg/hash"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/math/sample"
)

// deterministicNonceTag separates the deterministic nonce derivation hash
// from every other use of the hash function.
var deterministicNonceTag = hash.BytesWithDomain{TheDomain: "Deterministic Nonce", Bytes: []byte{2}}

// EphemeralKey is a per-session signing nonce, together with the hiding
// commitment sent to co-signers in round 1.
//
// The nonce scalar is unexported and must never be reused across sessions.
// Commitment and Decommitment are the only fields that cross the signer
// boundary: the commitment in round 1, the decommitment (blind factor)
// together with the nonce point in round 2.
type EphemeralKey struct {
	keyPair *KeyPair
	// Commitment hides the nonce point's x-coordinate until the reveal round.
	Commitment hash.Commitment
	// Decommitment is the blinding factor which opens Commitment.
	Decommitment hash.Decommitment
}

// NewEphemeralKey samples a fresh nonce key pair and commits to the
// x-coordinate of its public point.
//
// If rand is nil, crypto/rand.Reader is used.
func NewEphemeralKey(group curve.Curve, rand io.Reader) (*EphemeralKey, error) {
	keyPair, err := NewKeyPair(group, rand)
	if err != nil {
		return nil, err
	}
	return commitNonce(keyPair)
}

// NewDeterministicEphemeralKey derives the nonce as H(private key, message),
// for recoverable signing where randomness cannot be trusted.
//
// The same (key, message) pair always yields the same nonce. This is
// acceptable only because the nonce is message-bound: two different messages
// yield independent nonces. Never use this derivation with the same message
// across two concurrent sessions.
func NewDeterministicEphemeralKey(signer *KeyPair, message []byte) (*EphemeralKey, error) {
	if signer == nil {
		return nil, errors.New("musig: NewDeterministicEphemeralKey: nil signer")
	}
	if len(message) == 0 {
		return nil, errors.New("musig: NewDeterministicEphemeralKey: empty message")
	}
	h := hash.New(deterministicNonceTag)
	if err := h.WriteAny(signer.privateKey, messageHash(message)); err != nil {
		return nil, err
	}
	nonceScalar := sample.Scalar(h.Digest(), signer.group)
	keyPair, err := NewKeyPairFromScalar(nonceScalar)
	if err != nil {
		return nil, err
	}
	return commitNonce(keyPair)
}

func commitNonce(keyPair *KeyPair) (*EphemeralKey, error) {
	commitment, decommitment, err := hash.New().Commit(keyPair.publicKey.XBytes())
	if err != nil {
		return nil, err
	}
	return &EphemeralKey{
		keyPair:      keyPair,
		Commitment:   commitment,
		Decommitment: decommitment,
	}, nil
}

// PublicPoint returns the nonce's public point, revealed to co-signers in
// round 2.
func (e *EphemeralKey) PublicPoint() curve.Point {
	return e.keyPair.publicKey
}

// VerifyCommitment checks that a revealed nonce point opens the commitment
// received in round 1.
//
// Every signer must verify every co-signer's commitment before using the
// revealed point in aggregation; skipping this check reopens the rogue-nonce
// attack the commit phase exists to prevent.
func VerifyCommitment(nonce curve.Point, decommitment hash.Decommitment, commitment hash.Commitment) bool {
	if nonce == nil || nonce.IsIdentity() {
		return false
	}
	return hash.New().Decommit(commitment, decommitment, nonce.XBytes())
}

// AggregateNonces sums the revealed nonce points into the aggregate nonce R.
func AggregateNonces(points ...curve.Point) (curve.Point, error) {
	if len(points) == 0 {
		return nil, errors.New("musig: AggregateNonces: no points")
	}
	for i, p := range points {
		if p == nil || p.IsIdentity() {
			return nil, fmt.Errorf("musig: AggregateNonces: point %d is missing or the identity", i)
		}
	}
	sum := points[0].Curve().NewPoint()
	for _, p := range points {
		sum = sum.Add(p)
	}
	if sum.IsIdentity() {
		return nil, errors.New("musig: AggregateNonces: aggregate nonce is the identity")
	}
	return sum, nil
}
