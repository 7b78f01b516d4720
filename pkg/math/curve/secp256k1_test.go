package curve

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomScalar(t *testing.T, group Curve) Scalar {
	t.Helper()
	buf := make([]byte, group.SafeScalarBytes())
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return group.NewScalar().SetNat(new(saferith.Nat).SetBytes(buf))
}

func TestScalarMarshalRoundtrip(t *testing.T) {
	group := Secp256k1{}
	s := randomScalar(t, group)

	data, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 32)

	decoded := group.NewScalar()
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.True(t, s.Equal(decoded))
}

func TestPointMarshalRoundtrip(t *testing.T) {
	group := Secp256k1{}
	p := randomScalar(t, group).ActOnBase()

	data, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 33)

	decoded := group.NewPoint()
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.True(t, p.Equal(decoded))
}

func TestPointUnmarshalIdentityCanonical(t *testing.T) {
	group := Secp256k1{}

	data := make([]byte, 33)
	decoded := group.NewPoint()
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.True(t, decoded.IsIdentity())

	data[32] = 1
	assert.Error(t, group.NewPoint().UnmarshalBinary(data))
}

func TestPointIdentity(t *testing.T) {
	group := Secp256k1{}
	identity := group.NewPoint()
	assert.True(t, identity.IsIdentity())

	p := randomScalar(t, group).ActOnBase()
	assert.True(t, p.Sub(p).IsIdentity())
}

func TestScalarArithmetic(t *testing.T) {
	group := Secp256k1{}
	a := randomScalar(t, group)
	b := randomScalar(t, group)

	// a + b - b == a
	sum := group.NewScalar().Set(a).Add(b)
	assert.True(t, sum.Sub(b).Equal(a))

	// a * a⁻¹ == 1
	inv := group.NewScalar().Set(a).Invert()
	one := group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
	assert.True(t, group.NewScalar().Set(a).Mul(inv).Equal(one))

	// a + (-a) == 0
	neg := group.NewScalar().Set(a).Negate()
	assert.True(t, group.NewScalar().Set(a).Add(neg).IsZero())
}

func TestActMatchesActOnBase(t *testing.T) {
	group := Secp256k1{}
	s := randomScalar(t, group)
	base := group.NewBasePoint()
	assert.True(t, s.Act(base).Equal(s.ActOnBase()))
}

func TestXBytesFixedWidth(t *testing.T) {
	group := Secp256k1{}
	for i := 0; i < 16; i++ {
		p := randomScalar(t, group).ActOnBase()
		assert.Len(t, p.XBytes(), 32)
	}
}

func TestFromHashTruncates(t *testing.T) {
	group := Secp256k1{}

	// 64 bytes, more than the order width
	h := make([]byte, 64)
	for i := range h {
		h[i] = 0xFF
	}
	s := FromHash(group, h)
	require.NotNil(t, s)

	// deterministic for the same input
	assert.True(t, s.Equal(FromHash(group, h)))
}
