package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/quorumsig/musig/internal/round"
	"github.com/quorumsig/musig/pkg/hash"
	"github.com/quorumsig/musig/pkg/party"
)

// Message is a wire representation of a single protocol message, exchanged
// between a Handler and the user's network layer. Data contains the CBOR
// serialization of the underlying round.Content.
type Message struct {
	// SSID is a byte string which uniquely identifies the session this
	// message belongs to.
	SSID []byte
	// From is the party.ID of the sender.
	From party.ID
	// To is the intended recipient. If empty, the message should be sent to
	// all parties.
	To party.ID
	// Protocol identifies the protocol this message belongs to.
	Protocol string
	// RoundNumber is the index of the round this message belongs to.
	// A RoundNumber of 0 indicates an abort from the sender.
	RoundNumber round.Number
	// Data is the serialized content of the message.
	Data []byte
	// Broadcast indicates whether this message should be reliably broadcast
	// to all participants.
	Broadcast bool
	// BroadcastVerification contains a hash of all broadcast messages
	// received in the previous round.
	BroadcastVerification []byte
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("message: round %d, from: %s, to: %s, protocol: %s", m.RoundNumber, m.From, m.To, m.Protocol)
}

// IsFor returns true if the message is intended for the designated party.
func (m Message) IsFor(id party.ID) bool {
	if m.From == id {
		return false
	}
	return m.To == "" || m.To == id
}

// Hash returns a 64 byte hash of the message content, including the headers.
// Can be used to produce a signature for the message.
func (m *Message) Hash() []byte {
	var broadcast byte
	if m.Broadcast {
		broadcast = 1
	}
	h := hash.New(
		hash.BytesWithDomain{TheDomain: "SSID", Bytes: m.SSID},
		m.From,
		m.To,
		hash.BytesWithDomain{TheDomain: "Protocol", Bytes: []byte(m.Protocol)},
		m.RoundNumber,
		hash.BytesWithDomain{TheDomain: "Data", Bytes: m.Data},
		hash.BytesWithDomain{TheDomain: "Broadcast", Bytes: []byte{broadcast}},
		hash.BytesWithDomain{TheDomain: "BroadcastVerification", Bytes: m.BroadcastVerification},
	)
	return h.Sum()
}

// messageAlias hides Message's BinaryMarshaler methods so that cbor does not
// call them again while encoding the struct fields.
type messageAlias Message

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*messageAlias)(m))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Message) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*messageAlias)(m))
}
