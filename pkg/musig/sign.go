package musig

import (
	"errors"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/quorumsig/musig/pkg/hash"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/math/sample"
)

// aggregateModeTag is the domain-separation prefix for challenges in
// aggregate-signature mode. The byte value 0 mirrors the integer prefix of
// the original scheme. Plain single-signer Schnorr omits the prefix, so a
// signature produced in one mode can never be replayed in the other against
// the same key.
var aggregateModeTag = hash.BytesWithDomain{TheDomain: "MuSig Mode", Bytes: []byte{0}}

// messageHash is a wrapper around bytes to provide some domain separation.
type messageHash []byte

// WriteTo makes messageHash implement the io.WriterTo interface.
func (m messageHash) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m)
	return int64(n), err
}

// Domain implements WriterToWithDomain, and separates this type within hash.Hash.
func (messageHash) Domain() string {
	return "messageHash"
}

// Challenge derives the Fiat-Shamir challenge c = H(R.x, apk, m), binding the
// aggregate nonce's x-coordinate, the compressed aggregated public key, and
// the message.
//
// aggregate selects the domain-separation prefix for aggregate-signature
// mode; all signers and the verifier must agree on it.
func Challenge(group curve.Curve, nonceX []byte, aggregatedKey curve.Point, message []byte, aggregate bool) curve.Scalar {
	h := hash.New()
	if aggregate {
		_ = h.WriteAny(aggregateModeTag)
	}
	_ = h.WriteAny(
		hash.BytesWithDomain{TheDomain: "Nonce X", Bytes: nonceX},
		aggregatedKey,
		messageHash(message),
	)
	return sample.Scalar(h.Digest(), group)
}

// PartialSign computes this signer's share sᵢ = kᵢ + c·xᵢ·aᵢ (mod q).
//
// The private key and nonce scalar never leave this method; the result is a
// pure function of this signer's secrets plus the public challenge and
// coefficient, and is safe to broadcast.
func (k *KeyPair) PartialSign(nonce *EphemeralKey, challenge, coefficient curve.Scalar) curve.Scalar {
	s := k.group.NewScalar().Set(challenge).Mul(coefficient).Mul(k.privateKey)
	return s.Add(nonce.keyPair.privateKey)
}

// VerifyPartial checks a co-signer's share against their revealed nonce point
// and public key: sᵢ·G == Rᵢ + (c·aᵢ)·Xᵢ.
//
// This identifies a faulty or malicious co-signer before combination, rather
// than discovering an invalid aggregate at the end.
func VerifyPartial(partial curve.Scalar, nonce, public curve.Point, challenge, coefficient curve.Scalar) bool {
	if partial == nil || nonce == nil || public == nil || challenge == nil || coefficient == nil {
		return false
	}
	group := partial.Curve()
	expected := group.NewScalar().Set(challenge).Mul(coefficient).Act(public)
	expected = expected.Add(nonce)
	return partial.ActOnBase().Equal(expected)
}

// CombinePartials sums the partial signatures into the final signature
// (R.x, Σᵢ sᵢ mod q).
//
// Summation is commutative and associative, so partials may be supplied in
// any order.
func CombinePartials(noncePoint curve.Point, partials ...curve.Scalar) (*Signature, error) {
	if noncePoint == nil || noncePoint.IsIdentity() {
		return nil, errors.New("musig: CombinePartials: missing aggregate nonce point")
	}
	if len(partials) == 0 {
		return nil, errors.New("musig: CombinePartials: no partial signatures")
	}
	group := noncePoint.Curve()
	s := group.NewScalar()
	for _, partial := range partials {
		if partial == nil {
			return nil, errors.New("musig: CombinePartials: nil partial signature")
		}
		s.Add(partial)
	}
	return &Signature{RX: noncePoint.XBytes(), S: s}, nil
}

// SignSingle produces a plain single-signer Schnorr signature, using the
// challenge without the aggregate-mode prefix and an implicit coefficient of
// one.
//
// If rand is nil, crypto/rand.Reader is used.
func SignSingle(rand io.Reader, key *KeyPair, message []byte) (*Signature, error) {
	nonce, err := NewEphemeralKey(key.group, rand)
	if err != nil {
		return nil, err
	}
	noncePoint := nonce.PublicPoint()
	challenge := Challenge(key.group, noncePoint.XBytes(), key.publicKey, message, false)
	one := key.group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
	s := key.PartialSign(nonce, challenge, one)
	return &Signature{RX: noncePoint.XBytes(), S: s}, nil
}
