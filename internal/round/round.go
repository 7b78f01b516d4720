package round

import "errors"

var (
	// ErrInvalidContent is returned when a message's content is not the type
	// expected by the current round.
	ErrInvalidContent = errors.New("round: invalid content")
	// ErrNilFields is returned when a message's content contains nil fields.
	ErrNilFields = errors.New("round: message contains nil fields")
	// ErrOutChanFull is returned when the out channel cannot accept another
	// message; it should be buffered with enough capacity for the whole round.
	ErrOutChanFull = errors.New("round: out channel is full")
)

// Round represents a single round in a protocol.
type Round interface {
	// VerifyMessage handles an incoming Message and validates its content with
	// regard to the protocol specification. The content can be cast to the
	// appropriate type for this round without error check.
	// This function should not modify any saved state as it may be running
	// concurrently.
	VerifyMessage(msg Message) error

	// StoreMessage should be called after VerifyMessage and should only store
	// the appropriate fields from the content.
	StoreMessage(msg Message) error

	// Finalize is called after all messages from the parties have been
	// processed in the current round. Messages for the next round are sent out
	// through the out channel.
	// If a non-critical error occurs (like a failure to sample, hash, or send
	// a message), the current round can be returned so that the caller may try
	// to finalize again.
	//
	// In the last round, Finalize should return
	//   r.ResultRound(result), nil
	// where result is the output of the protocol.
	// If an abort occurs, return
	//   r.AbortRound(err, culprits...), nil
	Finalize(out chan<- *Message) (Session, error)

	// MessageContent returns an uninitialized Content for this round's P2P
	// messages, ready for unmarshalling.
	//
	// Rounds which expect no P2P messages should return nil.
	MessageContent() Content

	// Number of the current round.
	Number() Number
}

// BroadcastRound is implemented by a round that expects broadcast messages.
type BroadcastRound interface {
	// StoreBroadcastMessage must be run before Round.VerifyMessage and
	// Round.StoreMessage, since those may depend on the content from the
	// broadcast.
	StoreBroadcastMessage(msg Message) error

	// BroadcastContent returns an uninitialized BroadcastContent for this
	// round, ready for unmarshalling.
	BroadcastContent() BroadcastContent

	// Broadcast rounds must also implement Round.
	Round
}
