// Package musig provides the user-facing entry points for the n-of-n
// aggregate signing protocol.
//
// Unlike threshold schemes there is no key generation protocol: each party
// generates its key pair independently, exchanges public keys with the group
// out-of-band, and assembles a Config. Signing then requires all n parties.
package musig

import (
	"io"

	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/math/sample"
	"github.com/quorumsig/musig/pkg/party"
	"github.com/quorumsig/musig/pkg/protocol"
	"github.com/quorumsig/musig/protocols/musig/sign"
)

type (
	Config    = sign.Config
	Signature = sign.Signature
)

// NewConfig creates a Config for the given party. The public map must contain
// all parties of the group, including id, whose entry must match privateKey.
func NewConfig(id party.ID, privateKey curve.Scalar, public map[party.ID]curve.Point) *Config {
	return sign.NewConfig(id, privateKey, public)
}

// EmptyConfig creates an empty Config with a fixed group, ready for
// unmarshalling.
func EmptyConfig(group curve.Curve) *Config {
	return sign.EmptyConfig(group)
}

// Sign initiates the protocol for producing an aggregate signature over
// message.
//
// config contains this party's long-term key material. signers is the list of
// all participants, including this one; it must be exactly the parties of
// config, since all n parties are required.
//
// The protocol corresponds to the MuSig scheme of
// https://eprint.iacr.org/2018/068, restricted to n-of-n signing with a
// commit-then-reveal nonce exchange as in
// https://eprint.iacr.org/2018/483 (section 5.1).
func Sign(config *Config, signers []party.ID, message []byte) protocol.StartFunc {
	return sign.StartSign(config, signers, message)
}

// GenerateConfigs creates a consistent set of Configs for the given parties,
// drawing the private keys from source. It is intended for tests and
// examples; in ordinary operation every party generates its own key.
func GenerateConfigs(group curve.Curve, partyIDs []party.ID, source io.Reader) map[party.ID]*Config {
	secrets := make(map[party.ID]curve.Scalar, len(partyIDs))
	public := make(map[party.ID]curve.Point, len(partyIDs))
	for _, id := range partyIDs {
		secret := sample.ScalarUnit(source, group)
		secrets[id] = secret
		public[id] = secret.ActOnBase()
	}
	configs := make(map[party.ID]*Config, len(partyIDs))
	for _, id := range partyIDs {
		configs[id] = sign.NewConfig(id, secrets[id], public)
	}
	return configs
}
