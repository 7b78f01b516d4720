// Package sign implements the interactive rounds of the two-phase n-of-n
// aggregate signing protocol.
//
// The protocol has four rounds. In the first phase each party commits to a
// fresh ephemeral nonce (round 1) and then reveals it (round 2); the
// commit-then-reveal exchange prevents any party from choosing its nonce as a
// function of the others'. In the second phase each party derives the shared
// challenge and broadcasts its partial signature (round 3), and finally
// combines all partials into the aggregate signature (round 4).
package sign

import (
	"errors"
	"fmt"

	"github.com/quorumsig/musig/internal/round"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/musig"
	"github.com/quorumsig/musig/pkg/party"
	"github.com/quorumsig/musig/pkg/protocol"
)

// Signature is the aggregate signature produced by the protocol. It verifies
// under the group's aggregated public key.
type Signature = musig.Signature

const (
	// protocolID identifies the n-of-n aggregate signing protocol.
	protocolID = "musig/sign"
	// This protocol has 4 concrete rounds.
	protocolRounds round.Number = 4
)

// StartSign initiates the protocol for producing an aggregate signature over
// message.
//
// config contains this party's long-term key material. signers is the list of
// all participants, including this one; since the scheme is n-of-n it must be
// exactly the parties of config.
//
// The resulting signature verifies under the group's aggregated public key.
func StartSign(config *Config, signers []party.ID, message []byte) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if len(message) == 0 {
			return nil, errors.New("sign.StartSign: message is empty")
		}
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("sign.StartSign: %w", err)
		}

		sortedIDs := party.NewIDSlice(signers)
		if !sortedIDs.Valid() {
			return nil, errors.New("sign.StartSign: signers contains duplicates")
		}
		// all parties must sign
		if len(sortedIDs) != len(config.Public) {
			return nil, errors.New("sign.StartSign: signers must be exactly the parties of the config")
		}
		for _, id := range sortedIDs {
			if _, ok := config.Public[id]; !ok {
				return nil, fmt.Errorf("sign.StartSign: signer %s is not part of the group", id)
			}
		}

		info := round.Info{
			ProtocolID:       protocolID,
			FinalRoundNumber: protocolRounds,
			SelfID:           config.ID,
			PartyIDs:         sortedIDs,
			Group:            config.Group,
		}
		helper, err := round.NewSession(info, sessionID, config)
		if err != nil {
			return nil, fmt.Errorf("sign.StartSign: %w", err)
		}

		// The aggregation coefficients and the aggregated key depend on the
		// order of the public keys, so all parties derive them from the
		// sorted ID slice.
		publicKeys := make([]curve.Point, 0, len(sortedIDs))
		for _, id := range sortedIDs {
			publicKeys = append(publicKeys, config.Public[id])
		}
		coefficients := make(map[party.ID]curve.Scalar, len(sortedIDs))
		var aggregatedKey curve.Point
		for i, id := range sortedIDs {
			agg, err := musig.AggregateN(publicKeys, i)
			if err != nil {
				return nil, fmt.Errorf("sign.StartSign: %w", err)
			}
			coefficients[id] = agg.Coefficient
			aggregatedKey = agg.PublicKey
		}

		signer, err := musig.NewKeyPairFromScalar(config.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("sign.StartSign: %w", err)
		}

		return &round1{
			Helper:        helper,
			config:        config,
			signer:        signer,
			coefficients:  coefficients,
			aggregatedKey: aggregatedKey,
			message:       message,
		}, nil
	}
}
