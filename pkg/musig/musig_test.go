package musig

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signAggregate runs the full two-phase signing flow in-process for n
// signers, and returns the signature together with the aggregated key.
func signAggregate(t *testing.T, group curve.Curve, n int, message []byte) (*Signature, curve.Point) {
	t.Helper()

	keyPairs := make([]*KeyPair, n)
	publicKeys := make([]curve.Point, n)
	for i := range keyPairs {
		keyPair, err := NewKeyPair(group, rand.Reader)
		require.NoError(t, err)
		keyPairs[i] = keyPair
		publicKeys[i] = keyPair.PublicKey()
	}

	aggs := make([]*KeyAgg, n)
	for i := range aggs {
		agg, err := AggregateN(publicKeys, i)
		require.NoError(t, err)
		aggs[i] = agg
		// all parties must agree on the aggregated key
		require.True(t, agg.PublicKey.Equal(aggs[0].PublicKey))
	}

	// phase 1: commit, then reveal
	nonces := make([]*EphemeralKey, n)
	points := make([]curve.Point, n)
	for i := range nonces {
		nonce, err := NewEphemeralKey(group, rand.Reader)
		require.NoError(t, err)
		nonces[i] = nonce
		points[i] = nonce.PublicPoint()
	}
	for i := range nonces {
		require.True(t, VerifyCommitment(points[i], nonces[i].Decommitment, nonces[i].Commitment))
	}
	noncePoint, err := AggregateNonces(points...)
	require.NoError(t, err)

	// phase 2: partial signatures
	challenge := Challenge(group, noncePoint.XBytes(), aggs[0].PublicKey, message, true)
	partials := make([]curve.Scalar, n)
	for i, keyPair := range keyPairs {
		partials[i] = keyPair.PartialSign(nonces[i], challenge, aggs[i].Coefficient)
		require.True(t, VerifyPartial(partials[i], points[i], publicKeys[i], challenge, aggs[i].Coefficient))
	}

	signature, err := CombinePartials(noncePoint, partials...)
	require.NoError(t, err)
	return signature, aggs[0].PublicKey
}

func TestSignTwoParty(t *testing.T) {
	group := curve.Secp256k1{}
	for _, message := range [][]byte{[]byte("hello"), []byte("goodbye")} {
		signature, aggregatedKey := signAggregate(t, group, 2, message)
		assert.NoError(t, signature.Verify(aggregatedKey, message, true))
	}
}

func TestSignMultiParty(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	for _, n := range []int{3, 5, 7} {
		signature, aggregatedKey := signAggregate(t, group, n, message)
		assert.NoError(t, signature.Verify(aggregatedKey, message, true))
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	group := curve.Secp256k1{}
	signature, aggregatedKey := signAggregate(t, group, 2, []byte("hello"))
	assert.ErrorIs(t, signature.Verify(aggregatedKey, []byte("goodbye"), true), ErrInvalidSignature)
}

func TestVerifyRejectsForgedScalar(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	signature, aggregatedKey := signAggregate(t, group, 2, message)

	one := group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
	forged := &Signature{
		RX: signature.RX,
		S:  group.NewScalar().Set(signature.S).Add(one),
	}
	assert.ErrorIs(t, forged.Verify(aggregatedKey, message, true), ErrInvalidSignature)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	signature, _ := signAggregate(t, group, 2, message)

	other, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)
	assert.ErrorIs(t, signature.Verify(other.PublicKey(), message, true), ErrInvalidSignature)
}

// An aggregate signature must not verify as a plain one and vice versa, since
// the challenge derivations are domain separated.
func TestModeDomainSeparation(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")

	signature, aggregatedKey := signAggregate(t, group, 2, message)
	assert.ErrorIs(t, signature.Verify(aggregatedKey, message, false), ErrInvalidSignature)

	key, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)
	plain, err := SignSingle(rand.Reader, key, message)
	require.NoError(t, err)
	assert.NoError(t, plain.Verify(key.PublicKey(), message, false))
	assert.ErrorIs(t, plain.Verify(key.PublicKey(), message, true), ErrInvalidSignature)
}

func TestAggregateTwoMatchesAggregateN(t *testing.T) {
	group := curve.Secp256k1{}
	a, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)
	b, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)

	two, err := AggregateTwo(a.PublicKey(), b.PublicKey())
	require.NoError(t, err)
	n, err := AggregateN([]curve.Point{a.PublicKey(), b.PublicKey()}, 0)
	require.NoError(t, err)

	assert.True(t, two.PublicKey.Equal(n.PublicKey))
	assert.True(t, two.Coefficient.Equal(n.Coefficient))
}

// The aggregated key must depend on the order of the participant keys.
func TestAggregateOrderSensitive(t *testing.T) {
	group := curve.Secp256k1{}
	a, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)
	b, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)

	ab, err := AggregateTwo(a.PublicKey(), b.PublicKey())
	require.NoError(t, err)
	ba, err := AggregateTwo(b.PublicKey(), a.PublicKey())
	require.NoError(t, err)

	assert.False(t, ab.PublicKey.Equal(ba.PublicKey))
}

func TestAggregateRejectsIdentity(t *testing.T) {
	group := curve.Secp256k1{}
	a, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)

	_, err = AggregateTwo(a.PublicKey(), group.NewPoint())
	assert.Error(t, err)
	_, err = AggregateN(nil, 0)
	assert.Error(t, err)
	_, err = AggregateN([]curve.Point{a.PublicKey()}, 1)
	assert.Error(t, err)
}

func TestCommitmentBinding(t *testing.T) {
	group := curve.Secp256k1{}
	nonce, err := NewEphemeralKey(group, rand.Reader)
	require.NoError(t, err)

	other, err := NewEphemeralKey(group, rand.Reader)
	require.NoError(t, err)

	// a different nonce point must not open the commitment
	assert.False(t, VerifyCommitment(other.PublicPoint(), nonce.Decommitment, nonce.Commitment))
	// a different blinding factor must not open the commitment
	assert.False(t, VerifyCommitment(nonce.PublicPoint(), other.Decommitment, nonce.Commitment))
	// nil or identity nonce points are always rejected
	assert.False(t, VerifyCommitment(nil, nonce.Decommitment, nonce.Commitment))
	assert.False(t, VerifyCommitment(group.NewPoint(), nonce.Decommitment, nonce.Commitment))
}

func TestVerifyPartialRejectsWrongCoefficient(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")

	a, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)
	b, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)
	agg, err := AggregateTwo(a.PublicKey(), b.PublicKey())
	require.NoError(t, err)

	nonce, err := NewEphemeralKey(group, rand.Reader)
	require.NoError(t, err)

	challenge := Challenge(group, nonce.PublicPoint().XBytes(), agg.PublicKey, message, true)
	partial := a.PartialSign(nonce, challenge, agg.Coefficient)
	require.True(t, VerifyPartial(partial, nonce.PublicPoint(), a.PublicKey(), challenge, agg.Coefficient))

	one := group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
	wrong := group.NewScalar().Set(agg.Coefficient).Add(one)
	assert.False(t, VerifyPartial(partial, nonce.PublicPoint(), a.PublicKey(), challenge, wrong))
}

func TestDeterministicNonce(t *testing.T) {
	group := curve.Secp256k1{}
	key, err := NewKeyPair(group, rand.Reader)
	require.NoError(t, err)

	n1, err := NewDeterministicEphemeralKey(key, []byte("hello"))
	require.NoError(t, err)
	n2, err := NewDeterministicEphemeralKey(key, []byte("hello"))
	require.NoError(t, err)
	n3, err := NewDeterministicEphemeralKey(key, []byte("goodbye"))
	require.NoError(t, err)

	// message-bound: same message gives the same nonce point, a different
	// message an independent one
	assert.True(t, n1.PublicPoint().Equal(n2.PublicPoint()))
	assert.False(t, n1.PublicPoint().Equal(n3.PublicPoint()))

	_, err = NewDeterministicEphemeralKey(key, nil)
	assert.Error(t, err)
}

func TestSignatureMarshal(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	signature, aggregatedKey := signAggregate(t, group, 3, message)

	data, err := signature.MarshalBinary()
	require.NoError(t, err)

	decoded := EmptySignature(group)
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.True(t, bytes.Equal(signature.RX, decoded.RX))
	assert.NoError(t, decoded.Verify(aggregatedKey, message, true))
}

// Partial signatures are scalars, so the combination must not depend on the
// order they are summed in.
func TestCombineOrderIndependent(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")

	keyPairs := make([]*KeyPair, 3)
	publicKeys := make([]curve.Point, 3)
	for i := range keyPairs {
		keyPair, err := NewKeyPair(group, rand.Reader)
		require.NoError(t, err)
		keyPairs[i] = keyPair
		publicKeys[i] = keyPair.PublicKey()
	}

	nonces := make([]*EphemeralKey, 3)
	points := make([]curve.Point, 3)
	for i := range nonces {
		nonce, err := NewEphemeralKey(group, rand.Reader)
		require.NoError(t, err)
		nonces[i] = nonce
		points[i] = nonce.PublicPoint()
	}
	noncePoint, err := AggregateNonces(points...)
	require.NoError(t, err)

	partials := make([]curve.Scalar, 3)
	var aggregatedKey curve.Point
	for i := range keyPairs {
		agg, err := AggregateN(publicKeys, i)
		require.NoError(t, err)
		aggregatedKey = agg.PublicKey
		challenge := Challenge(group, noncePoint.XBytes(), agg.PublicKey, message, true)
		partials[i] = keyPairs[i].PartialSign(nonces[i], challenge, agg.Coefficient)
	}

	forward, err := CombinePartials(noncePoint, partials[0], partials[1], partials[2])
	require.NoError(t, err)
	backward, err := CombinePartials(noncePoint, partials[2], partials[1], partials[0])
	require.NoError(t, err)

	assert.True(t, forward.S.Equal(backward.S))
	assert.NoError(t, forward.Verify(aggregatedKey, message, true))
	assert.NoError(t, backward.Verify(aggregatedKey, message, true))
}
