package sign

import (
	"github.com/quorumsig/musig/internal/round"
	"github.com/quorumsig/musig/pkg/hash"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/musig"
	"github.com/quorumsig/musig/pkg/party"
)

// round1 generates this party's ephemeral nonce and broadcasts a commitment
// to it. The nonce point itself stays hidden until every commitment has been
// received, so no party can grind its nonce against the others'.
type round1 struct {
	*round.Helper

	config *Config
	// signer holds the long-term key pair derived from config.PrivateKey.
	signer *musig.KeyPair
	// coefficients maps each party to its aggregation coefficient aᵢ,
	// computed over the public keys in sorted party ID order.
	coefficients map[party.ID]curve.Scalar
	// aggregatedKey is apk = Σᵢ aᵢ·Xᵢ, the key the final signature verifies
	// under.
	aggregatedKey curve.Point
	// message is the raw message being signed.
	message []byte
}

// VerifyMessage implements round.Round.
func (round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	nonce, err := musig.NewEphemeralKey(r.Group(), nil)
	if err != nil {
		return r, err
	}

	if err = r.BroadcastMessage(out, &broadcast2{Commitment: nonce.Commitment}); err != nil {
		return r, err
	}

	return &round2{
		round1:      r,
		nonce:       nonce,
		commitments: map[party.ID]hash.Commitment{r.SelfID(): nonce.Commitment},
	}, nil
}

// MessageContent implements round.Round.
func (round1) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1) Number() round.Number { return 1 }
