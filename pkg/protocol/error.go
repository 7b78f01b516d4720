package protocol

import (
	"fmt"

	"github.com/quorumsig/musig/pkg/party"
)

// Error is returned by a Handler when the protocol has aborted.
// If the fault can be attributed to one or more parties, they are listed in
// Culprits.
type Error struct {
	// Culprits contains the parties responsible for the abort, if known.
	Culprits []party.ID
	Err      error
}

// Error implements error.
func (e Error) Error() string {
	if len(e.Culprits) == 0 {
		return fmt.Sprintf("protocol: %s", e.Err)
	}
	return fmt.Sprintf("protocol: culprits %v: %s", e.Culprits, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e Error) Unwrap() error {
	return e.Err
}
