package musig

import (
	"errors"
	"fmt"

	"github.com/quorumsig/musig/pkg/hash"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/math/sample"
)

// keyAggregationTag prefixes every aggregation coefficient hash, separating it
// from the challenge hash. The byte value 1 mirrors the integer prefix of the
// original scheme.
var keyAggregationTag = hash.BytesWithDomain{TheDomain: "KeyAgg Coefficient", Bytes: []byte{1}}

// KeyAgg is the result of aggregating the participants' public keys.
//
// All participants compute the same PublicKey; the Coefficient is specific to
// the party the aggregation was run for. Coefficients depend only on public
// data, so a party needing a co-signer's coefficient can recompute it from
// the same ordered key list.
type KeyAgg struct {
	// PublicKey is the aggregated public key apk = Σᵢ aᵢ·Xᵢ.
	PublicKey curve.Point
	// Coefficient is this party's own aggregation coefficient aᵢ.
	Coefficient curve.Scalar
}

// aggregationCoefficient computes aᵢ = H(1, Xᵢ, X₁, …, Xₙ) over the
// x-coordinates of the ordered participant keys.
func aggregationCoefficient(group curve.Curve, own curve.Point, publicKeys []curve.Point) curve.Scalar {
	h := hash.New(keyAggregationTag)
	_ = h.WriteAny(own.XBytes())
	for _, pk := range publicKeys {
		_ = h.WriteAny(pk.XBytes())
	}
	return sample.Scalar(h.Digest(), group)
}

// AggregateN computes the aggregated public key for the given ordered list of
// participant keys, returning the coefficient belonging to partyIndex.
//
// Every participant must supply the identical ordering or the resulting
// aggregated keys will disagree and all signatures will fail verification.
// The ordering must be established out-of-band (for example, by sorting the
// participants' IDs); this function does not impose one.
func AggregateN(publicKeys []curve.Point, partyIndex int) (*KeyAgg, error) {
	if len(publicKeys) == 0 {
		return nil, errors.New("musig: AggregateN: no public keys")
	}
	if partyIndex < 0 || partyIndex >= len(publicKeys) {
		return nil, fmt.Errorf("musig: AggregateN: party index %d out of range for %d keys", partyIndex, len(publicKeys))
	}
	for i, pk := range publicKeys {
		if pk == nil || pk.IsIdentity() {
			return nil, fmt.Errorf("musig: AggregateN: public key %d is missing or the identity", i)
		}
	}

	group := publicKeys[0].Curve()
	apk := group.NewPoint()
	var own curve.Scalar
	for i, pk := range publicKeys {
		a := aggregationCoefficient(group, pk, publicKeys)
		apk = apk.Add(a.Act(pk))
		if i == partyIndex {
			own = a
		}
	}
	if apk.IsIdentity() {
		return nil, errors.New("musig: AggregateN: aggregated key is the identity")
	}
	return &KeyAgg{PublicKey: apk, Coefficient: own}, nil
}

// AggregateTwo is the two-party case of AggregateN, returning the coefficient
// of the first key.
//
// The same ordering contract applies: both parties must agree on which key
// comes first.
func AggregateTwo(self, other curve.Point) (*KeyAgg, error) {
	return AggregateN([]curve.Point{self, other}, 0)
}
