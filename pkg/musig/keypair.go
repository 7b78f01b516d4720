// Package musig implements a two-round, n-of-n aggregate Schnorr signature
// scheme with commit-then-reveal nonce exchange.
//
// The scheme follows the MuSig construction:
//
//	https://eprint.iacr.org/2018/068.pdf
//	https://eprint.iacr.org/2018/483.pdf (subsection 5.1)
//
// Each signer holds an independent key pair. The signers jointly produce a
// single signature (R.x, s) which verifies against an aggregated public key.
// Nonce commitments defend against an adversarial co-signer choosing its
// nonce adaptively after seeing the others' (the rogue-nonce attack).
//
// This package is the pure protocol core: all operations are synchronous
// computations on immutable values, and every cross-signer interaction
// happens through explicit message values (commitment, revealed point,
// partial signature). The round-based session driver lives in
// protocols/musig.
package musig

import (
	cryptorand "crypto/rand"
	"errors"
	"io"

	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/math/sample"
)

// KeyPair is a signer's long-term or ephemeral key pair.
//
// The private scalar is deliberately unexported: it never leaves this
// package, and only the signing operations defined here read it.
type KeyPair struct {
	group      curve.Curve
	publicKey  curve.Point
	privateKey curve.Scalar
}

// NewKeyPair samples a fresh key pair, reading randomness from rand.
//
// If rand is nil, crypto/rand.Reader is used. Passing the source explicitly
// lets tests substitute a deterministic one.
func NewKeyPair(group curve.Curve, rand io.Reader) (*KeyPair, error) {
	if group == nil {
		return nil, errors.New("musig: NewKeyPair: nil group")
	}
	if rand == nil {
		rand = cryptorand.Reader
	}
	privateKey := sample.ScalarUnit(rand, group)
	return &KeyPair{
		group:      group,
		publicKey:  privateKey.ActOnBase(),
		privateKey: privateKey,
	}, nil
}

// NewKeyPairFromScalar derives the key pair belonging to a caller-supplied
// secret scalar.
//
// The caller is responsible for drawing the scalar from a secure source;
// this path exists for key import and testing, not for ordinary operation.
func NewKeyPairFromScalar(privateKey curve.Scalar) (*KeyPair, error) {
	if privateKey == nil {
		return nil, errors.New("musig: NewKeyPairFromScalar: nil private key")
	}
	if privateKey.IsZero() {
		return nil, errors.New("musig: NewKeyPairFromScalar: zero private key")
	}
	group := privateKey.Curve()
	// Copy, so that later mutation of the caller's scalar can't corrupt the pair.
	secret := group.NewScalar().Set(privateKey)
	return &KeyPair{
		group:      group,
		publicKey:  secret.ActOnBase(),
		privateKey: secret,
	}, nil
}

// PublicKey returns the public point of this key pair.
func (k *KeyPair) PublicKey() curve.Point {
	return k.publicKey
}

// Group returns the curve this key pair was generated over.
func (k *KeyPair) Group() curve.Curve {
	return k.group
}
