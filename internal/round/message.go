package round

import (
	"github.com/quorumsig/musig/pkg/party"
)

// Content represents the message payload, either broadcast or P2P, returned
// by a round during finalization.
type Content interface {
	RoundNumber() Number
}

// BroadcastContent wraps a Content, but also indicates whether this content
// requires reliable broadcast.
type BroadcastContent interface {
	Content
	Reliable() bool
}

// NormalBroadcastContent is embedded in broadcast contents that do not
// require reliable broadcast.
type NormalBroadcastContent struct{}

func (NormalBroadcastContent) Reliable() bool { return false }

// ReliableBroadcastContent is embedded in broadcast contents that require an
// additional echo round to guarantee all parties received the same value.
type ReliableBroadcastContent struct{}

func (ReliableBroadcastContent) Reliable() bool { return true }

// Message is the raw notion of a protocol message exchanged between rounds.
type Message struct {
	From, To  party.ID
	Broadcast bool
	Content   Content
}
