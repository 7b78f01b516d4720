package musig

import (
	"bytes"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/quorumsig/musig/pkg/math/curve"
)

// Signature is the final aggregate signature (R.x, s).
//
// It claims to satisfy s·G = R + c·apk, where c is the Fiat-Shamir challenge
// over (R.x, apk, message). Only the x-coordinate of R is carried, as a
// canonical fixed-width encoding.
type Signature struct {
	// RX is the canonical fixed-width x-coordinate of the aggregate nonce point.
	RX []byte
	// S is the aggregate response scalar Σᵢ sᵢ.
	S curve.Scalar
}

// EmptySignature creates a Signature with a fixed group, ready for unmarshalling.
//
// This needs to be used for unmarshalling, otherwise the scalar can't be decoded.
func EmptySignature(group curve.Curve) *Signature {
	return &Signature{S: group.NewScalar()}
}

// Verify recomputes the challenge and checks the signature equation against
// the aggregated public key.
//
// The check computes S = s·G − c·apk and accepts iff S's x-coordinate equals
// RX, compared as canonical fixed-width encodings. aggregate must match the
// mode the signature was produced in.
//
// Returns ErrInvalidSignature on any mismatch.
func (sig *Signature) Verify(aggregatedKey curve.Point, message []byte, aggregate bool) error {
	if sig == nil || sig.S == nil || len(sig.RX) == 0 {
		return ErrInvalidSignature
	}
	if aggregatedKey == nil || aggregatedKey.IsIdentity() {
		return ErrInvalidSignature
	}
	group := aggregatedKey.Curve()

	c := Challenge(group, sig.RX, aggregatedKey, message, aggregate)
	point := sig.S.ActOnBase().Sub(c.Act(aggregatedKey))
	if point.IsIdentity() {
		return ErrInvalidSignature
	}
	if !bytes.Equal(point.XBytes(), sig.RX) {
		return ErrInvalidSignature
	}
	return nil
}

type signatureMarshal struct {
	RX []byte
	S  curve.Scalar
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(&signatureMarshal{RX: sig.RX, S: sig.S})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The receiver must have been created with EmptySignature.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if sig.S == nil {
		return errors.New("musig: Signature.UnmarshalBinary: no group, use EmptySignature")
	}
	sm := &signatureMarshal{S: sig.S}
	if err := cbor.Unmarshal(data, sm); err != nil {
		return err
	}
	if len(sm.RX) == 0 {
		return errors.New("musig: Signature.UnmarshalBinary: missing nonce x-coordinate")
	}
	sig.RX = sm.RX
	sig.S = sm.S
	return nil
}
