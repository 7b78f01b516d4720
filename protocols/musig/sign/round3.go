package sign

import (
	"fmt"

	"github.com/quorumsig/musig/internal/round"
	"github.com/quorumsig/musig/pkg/hash"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/musig"
	"github.com/quorumsig/musig/pkg/party"
)

// round3 verifies that each revealed nonce point opens the commitment from
// round 2, aggregates the nonces into R, derives the shared challenge and
// broadcasts this party's partial signature.
type round3 struct {
	*round2

	// noncePoints[j] is party j's revealed nonce point Rⱼ.
	noncePoints map[party.ID]curve.Point
}

type broadcast3 struct {
	round.NormalBroadcastContent
	// NoncePoint is the sender's ephemeral public point Rⱼ.
	NoncePoint curve.Point
	// Decommitment opens the commitment broadcast in the previous round.
	Decommitment hash.Decommitment
}

// StoreBroadcastMessage implements round.BroadcastRound.
//
// A nonce point which does not open the stored commitment attributes the
// fault to the sender, and the protocol aborts.
func (r *round3) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.NoncePoint == nil {
		return round.ErrNilFields
	}
	if err := body.Decommitment.Validate(); err != nil {
		return err
	}
	if !musig.VerifyCommitment(body.NoncePoint, body.Decommitment, r.commitments[msg.From]) {
		return fmt.Errorf("%w: party %s", musig.ErrCommitmentMismatch, msg.From)
	}
	r.noncePoints[msg.From] = body.NoncePoint
	return nil
}

// VerifyMessage implements round.Round.
func (round3) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round3) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
func (r *round3) Finalize(out chan<- *round.Message) (round.Session, error) {
	// aggregate the nonce points in sorted party ID order
	points := make([]curve.Point, 0, r.N())
	for _, id := range r.PartyIDs() {
		points = append(points, r.noncePoints[id])
	}
	noncePoint, err := musig.AggregateNonces(points...)
	if err != nil {
		return r, err
	}

	challenge := musig.Challenge(r.Group(), noncePoint.XBytes(), r.aggregatedKey, r.message, true)
	partial := r.signer.PartialSign(r.nonce, challenge, r.coefficients[r.SelfID()])

	if err = r.BroadcastMessage(out, &broadcast4{PartialSignature: partial}); err != nil {
		return r, err
	}

	return &round4{
		round3:     r,
		noncePoint: noncePoint,
		challenge:  challenge,
		partials:   map[party.ID]curve.Scalar{r.SelfID(): partial},
	}, nil
}

// MessageContent implements round.Round.
func (round3) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast3) RoundNumber() round.Number { return 3 }

// BroadcastContent implements round.BroadcastRound.
func (r *round3) BroadcastContent() round.BroadcastContent {
	return &broadcast3{
		NoncePoint: r.Group().NewPoint(),
	}
}

// Number implements round.Round.
func (round3) Number() round.Number { return 3 }
