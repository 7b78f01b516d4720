package musig

import (
	"crypto/rand"
	"sync"
	"testing"

	"github.com/quorumsig/musig/internal/test"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/party"
	"github.com/quorumsig/musig/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func do(t *testing.T, config *Config, ids party.IDSlice, message []byte, n *test.Network, wg *sync.WaitGroup) {
	defer wg.Done()

	h, err := protocol.NewMultiHandler(Sign(config, ids, message), nil)
	require.NoError(t, err)
	test.HandlerLoop(config.ID, h, n)

	signResult, err := h.Result()
	require.NoError(t, err)
	require.IsType(t, &Signature{}, signResult)
	signature := signResult.(*Signature)

	aggregatedKey, err := config.AggregatedKey()
	require.NoError(t, err)
	assert.NoError(t, signature.Verify(aggregatedKey, message, true))
}

func TestMuSig(t *testing.T) {
	message := make([]byte, 32)
	sha3.ShakeSum128(message, []byte("hello"))
	group := curve.Secp256k1{}

	for _, N := range []int{2, 5} {
		partyIDs := test.PartyIDs(N)
		configs := GenerateConfigs(group, partyIDs, rand.Reader)
		n := test.NewNetwork(partyIDs)

		var wg sync.WaitGroup
		wg.Add(N)
		for _, id := range partyIDs {
			go do(t, configs[id], partyIDs, message, n, &wg)
		}
		wg.Wait()
	}
}

func TestConfigMarshal(t *testing.T) {
	group := curve.Secp256k1{}
	partyIDs := test.PartyIDs(3)
	configs := GenerateConfigs(group, partyIDs, rand.Reader)
	c := configs[partyIDs[0]]

	data, err := c.MarshalBinary()
	require.NoError(t, err)

	decoded := EmptyConfig(group)
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.NoError(t, decoded.Validate())

	assert.Equal(t, c.ID, decoded.ID)
	assert.True(t, c.PrivateKey.Equal(decoded.PrivateKey))
	require.Len(t, decoded.Public, len(c.Public))
	for id, public := range c.Public {
		assert.True(t, public.Equal(decoded.Public[id]))
	}

	// the aggregated key only depends on the public keys, so both configs
	// must agree on it
	apk1, err := c.AggregatedKey()
	require.NoError(t, err)
	apk2, err := decoded.AggregatedKey()
	require.NoError(t, err)
	assert.True(t, apk1.Equal(apk2))
}

func TestGenerateConfigsConsistent(t *testing.T) {
	group := curve.Secp256k1{}
	partyIDs := test.PartyIDs(4)
	configs := GenerateConfigs(group, partyIDs, rand.Reader)

	apk, err := configs[partyIDs[0]].AggregatedKey()
	require.NoError(t, err)
	for _, id := range partyIDs {
		require.NoError(t, configs[id].Validate())
		other, err := configs[id].AggregatedKey()
		require.NoError(t, err)
		assert.True(t, apk.Equal(other))
	}
}
