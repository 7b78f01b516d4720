package sign

import (
	"crypto/rand"
	"testing"

	"github.com/quorumsig/musig/internal/round"
	"github.com/quorumsig/musig/internal/test"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/math/sample"
	"github.com/quorumsig/musig/pkg/musig"
	"github.com/quorumsig/musig/pkg/party"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateConfigs(t *testing.T, group curve.Curve, partyIDs party.IDSlice) map[party.ID]*Config {
	t.Helper()
	secrets := make(map[party.ID]curve.Scalar, len(partyIDs))
	public := make(map[party.ID]curve.Point, len(partyIDs))
	for _, id := range partyIDs {
		secret := sample.ScalarUnit(rand.Reader, group)
		secrets[id] = secret
		public[id] = secret.ActOnBase()
	}
	configs := make(map[party.ID]*Config, len(partyIDs))
	for _, id := range partyIDs {
		configs[id] = NewConfig(id, secrets[id], public)
		require.NoError(t, configs[id].Validate())
	}
	return configs
}

func startRounds(t *testing.T, configs map[party.ID]*Config, partyIDs party.IDSlice, message []byte) []round.Session {
	t.Helper()
	rounds := make([]round.Session, 0, len(partyIDs))
	for _, id := range partyIDs {
		r, err := StartSign(configs[id], partyIDs, message)(nil)
		require.NoError(t, err, "round creation should not result in an error")
		rounds = append(rounds, r)
	}
	return rounds
}

func checkOutput(t *testing.T, rounds []round.Session, configs map[party.ID]*Config, message []byte) {
	t.Helper()
	aggregatedKey, err := configs[rounds[0].SelfID()].AggregatedKey()
	require.NoError(t, err)

	for _, r := range rounds {
		resultRound, ok := r.(*round.Output)
		require.True(t, ok, "expected result round")
		signature, ok := resultRound.Result.(*musig.Signature)
		require.True(t, ok, "expected signature result")
		assert.NoError(t, signature.Verify(aggregatedKey, message, true))
	}
}

func TestSign(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")

	for _, n := range []int{2, 3, 5} {
		partyIDs := test.PartyIDs(n)
		configs := generateConfigs(t, group, partyIDs)
		rounds := startRounds(t, configs, partyIDs, message)

		for {
			err, done := test.Rounds(rounds, nil)
			require.NoError(t, err, "failed to process round")
			if done {
				break
			}
		}

		checkOutput(t, rounds, configs, message)
	}
}

// tamperNonce replaces every revealed nonce point with a fresh one, which
// must trip the commitment check in round 3.
type tamperNonce struct {
	group curve.Curve
}

func (tamperNonce) ModifyBefore(round.Session) {}
func (tamperNonce) ModifyAfter(round.Session)  {}
func (tn tamperNonce) ModifyContent(_ round.Session, _ party.ID, content round.Content) {
	if body, ok := content.(*broadcast3); ok {
		body.NoncePoint = sample.ScalarUnit(rand.Reader, tn.group).ActOnBase()
	}
}

func TestSignTamperedNonceAborts(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	partyIDs := test.PartyIDs(3)
	configs := generateConfigs(t, group, partyIDs)
	rounds := startRounds(t, configs, partyIDs, message)

	for {
		err, done := test.Rounds(rounds, tamperNonce{group})
		if err != nil {
			assert.ErrorIs(t, err, musig.ErrCommitmentMismatch)
			return
		}
		require.False(t, done, "expected the protocol to abort")
	}
}

// tamperPartial shifts every partial signature by one, which must trip the
// partial verification in round 4.
type tamperPartial struct {
	group curve.Curve
}

func (tamperPartial) ModifyBefore(round.Session) {}
func (tamperPartial) ModifyAfter(round.Session)  {}
func (tp tamperPartial) ModifyContent(_ round.Session, _ party.ID, content round.Content) {
	if body, ok := content.(*broadcast4); ok {
		body.PartialSignature = body.PartialSignature.Add(sample.ScalarUnit(rand.Reader, tp.group))
	}
}

func TestSignTamperedPartialAborts(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	partyIDs := test.PartyIDs(3)
	configs := generateConfigs(t, group, partyIDs)
	rounds := startRounds(t, configs, partyIDs, message)

	for {
		err, done := test.Rounds(rounds, tamperPartial{group})
		if err != nil {
			assert.ErrorContains(t, err, "partial signature")
			return
		}
		require.False(t, done, "expected the protocol to abort")
	}
}

func TestStartSignRejectsBadArguments(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	partyIDs := test.PartyIDs(3)
	configs := generateConfigs(t, group, partyIDs)
	c := configs[partyIDs[0]]

	tests := []struct {
		name    string
		signers []party.ID
		message []byte
	}{
		{"empty message", partyIDs, nil},
		{"missing self", partyIDs[1:], message},
		{"subset of signers", partyIDs[:2], message},
		{"duplicate signer", append([]party.ID{partyIDs[1]}, partyIDs...), message},
		{"unknown signer", append([]party.ID{"z"}, partyIDs[1:]...), message},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StartSign(c, tt.signers, tt.message)(nil)
			assert.Error(t, err)
		})
	}
}

func TestStartSignRejectsInvalidConfig(t *testing.T) {
	group := curve.Secp256k1{}
	message := []byte("hello")
	partyIDs := test.PartyIDs(2)
	configs := generateConfigs(t, group, partyIDs)

	// private key not matching the registered public key
	c := configs[partyIDs[0]]
	bad := NewConfig(c.ID, sample.ScalarUnit(rand.Reader, group), c.Public)
	_, err := StartSign(bad, partyIDs, message)(nil)
	assert.Error(t, err)
}
