package sign

import (
	"fmt"

	"github.com/quorumsig/musig/internal/round"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/musig"
	"github.com/quorumsig/musig/pkg/party"
)

// round4 verifies every partial signature against its sender's nonce point
// and public key, and combines them into the aggregate signature.
type round4 struct {
	*round3

	// noncePoint is the aggregated nonce R = Σⱼ Rⱼ.
	noncePoint curve.Point
	// challenge is the shared challenge c = H(0, R.x, apk, m).
	challenge curve.Scalar
	// partials[j] is party j's partial signature sⱼ.
	partials map[party.ID]curve.Scalar
}

type broadcast4 struct {
	round.NormalBroadcastContent
	// PartialSignature is the sender's share sⱼ = kⱼ + c·aⱼ·xⱼ.
	PartialSignature curve.Scalar
}

// StoreBroadcastMessage implements round.BroadcastRound.
//
// An invalid partial signature attributes the fault to the sender, and the
// protocol aborts.
func (r *round4) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast4)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.PartialSignature == nil {
		return round.ErrNilFields
	}
	if !musig.VerifyPartial(body.PartialSignature, r.noncePoints[msg.From], r.config.Public[msg.From], r.challenge, r.coefficients[msg.From]) {
		return fmt.Errorf("failed to validate partial signature from party %s", msg.From)
	}
	r.partials[msg.From] = body.PartialSignature
	return nil
}

// VerifyMessage implements round.Round.
func (round4) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round4) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
func (r *round4) Finalize(chan<- *round.Message) (round.Session, error) {
	// combine the partial signatures in sorted party ID order
	partials := make([]curve.Scalar, 0, r.N())
	for _, id := range r.PartyIDs() {
		partials = append(partials, r.partials[id])
	}
	signature, err := musig.CombinePartials(r.noncePoint, partials...)
	if err != nil {
		return r, err
	}

	// every partial was already verified, so a bad aggregate signature means
	// something went wrong on our end
	if err = signature.Verify(r.aggregatedKey, r.message, true); err != nil {
		return r.AbortRound(fmt.Errorf("combined signature failed to verify: %w", err)), nil
	}

	return r.ResultRound(signature), nil
}

// MessageContent implements round.Round.
func (round4) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast4) RoundNumber() round.Number { return 4 }

// BroadcastContent implements round.BroadcastRound.
func (r *round4) BroadcastContent() round.BroadcastContent {
	return &broadcast4{
		PartialSignature: r.Group().NewScalar(),
	}
}

// Number implements round.Round.
func (round4) Number() round.Number { return 4 }
