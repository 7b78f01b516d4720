package sign

import (
	"github.com/quorumsig/musig/internal/round"
	"github.com/quorumsig/musig/pkg/hash"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/musig"
	"github.com/quorumsig/musig/pkg/party"
)

// round2 collects the nonce commitments of all parties, and once they have
// all arrived, reveals this party's nonce point with its decommitment.
type round2 struct {
	*round1

	// nonce is this party's ephemeral key for this session.
	nonce *musig.EphemeralKey
	// commitments[j] is party j's commitment to its nonce point.
	commitments map[party.ID]hash.Commitment
}

type broadcast2 struct {
	round.NormalBroadcastContent
	// Commitment to the x-coordinate of the sender's nonce point.
	Commitment hash.Commitment
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *round2) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if err := body.Commitment.Validate(); err != nil {
		return err
	}
	r.commitments[msg.From] = body.Commitment
	return nil
}

// VerifyMessage implements round.Round.
func (round2) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round2) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	err := r.BroadcastMessage(out, &broadcast3{
		NoncePoint:   r.nonce.PublicPoint(),
		Decommitment: r.nonce.Decommitment,
	})
	if err != nil {
		return r, err
	}

	return &round3{
		round2:      r,
		noncePoints: map[party.ID]curve.Point{r.SelfID(): r.nonce.PublicPoint()},
	}, nil
}

// MessageContent implements round.Round.
func (round2) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }

// BroadcastContent implements round.BroadcastRound.
func (r *round2) BroadcastContent() round.BroadcastContent { return &broadcast2{} }

// Number implements round.Round.
func (round2) Number() round.Number { return 2 }
