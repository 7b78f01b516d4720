package sign

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/musig"
	"github.com/quorumsig/musig/pkg/party"
)

// Config contains the long-term key material of one party in an n-of-n
// signing group. Keys are generated independently by each party; the group is
// formed by exchanging public keys out-of-band and agreeing on the party IDs.
type Config struct {
	// Group returns the elliptic curve all key material belongs to.
	Group curve.Curve
	// ID identifies this party within the group.
	ID party.ID
	// PrivateKey is this party's long-term secret key.
	PrivateKey curve.Scalar
	// Public maps each party of the group, including this one, to its
	// long-term public key.
	Public map[party.ID]curve.Point
}

// NewConfig creates a Config for the given party. The public map must contain
// an entry for id matching privateKey.
func NewConfig(id party.ID, privateKey curve.Scalar, public map[party.ID]curve.Point) *Config {
	c := &Config{
		Group:      privateKey.Curve(),
		ID:         id,
		PrivateKey: privateKey,
		Public:     public,
	}
	return c
}

// EmptyConfig creates an empty Config with a fixed group, ready for
// unmarshalling.
//
// This needs to be used for unmarshalling, otherwise the points on the curve
// can't be decoded.
func EmptyConfig(group curve.Curve) *Config {
	return &Config{
		Group: group,
	}
}

// PartyIDs returns a sorted slice of all parties of this group.
func (c *Config) PartyIDs() party.IDSlice {
	ids := make([]party.ID, 0, len(c.Public))
	for id := range c.Public {
		ids = append(ids, id)
	}
	return party.NewIDSlice(ids)
}

// AggregatedKey returns the group's aggregated public key apk = Σᵢ aᵢ·Xᵢ,
// with the keys ordered by sorted party ID. The resulting signature of a
// signing session verifies under this key.
func (c *Config) AggregatedKey() (curve.Point, error) {
	ids := c.PartyIDs()
	publicKeys := make([]curve.Point, 0, len(ids))
	for _, id := range ids {
		publicKeys = append(publicKeys, c.Public[id])
	}
	agg, err := musig.AggregateN(publicKeys, 0)
	if err != nil {
		return nil, err
	}
	return agg.PublicKey, nil
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if c.Group == nil {
		return errors.New("config: group is not set")
	}
	if len(c.Public) < 2 {
		return errors.New("config: need at least two parties")
	}
	if c.PrivateKey == nil || c.PrivateKey.IsZero() {
		return errors.New("config: private key is missing or zero")
	}
	own, ok := c.Public[c.ID]
	if !ok {
		return fmt.Errorf("config: no public key for this party %s", c.ID)
	}
	if !c.PrivateKey.ActOnBase().Equal(own) {
		return errors.New("config: private key does not match public key")
	}
	for id, public := range c.Public {
		if public == nil || public.IsIdentity() {
			return fmt.Errorf("config: party %s: public key is missing or the identity", id)
		}
	}
	return nil
}

type configMarshal struct {
	ID         party.ID
	PrivateKey curve.Scalar
	Public     []cbor.RawMessage
}

type publicMarshal struct {
	ID        party.ID
	PublicKey curve.Point
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Config) MarshalBinary() ([]byte, error) {
	ps := make([]cbor.RawMessage, 0, len(c.Public))
	for _, id := range c.PartyIDs() {
		data, err := cbor.Marshal(&publicMarshal{
			ID:        id,
			PublicKey: c.Public[id],
		})
		if err != nil {
			return nil, err
		}
		ps = append(ps, data)
	}
	return cbor.Marshal(&configMarshal{
		ID:         c.ID,
		PrivateKey: c.PrivateKey,
		Public:     ps,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Config) UnmarshalBinary(data []byte) error {
	if c.Group == nil {
		return errors.New("config: must be initialized using EmptyConfig")
	}
	cm := &configMarshal{
		PrivateKey: c.Group.NewScalar(),
	}
	if err := cbor.Unmarshal(data, cm); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if cm.PrivateKey.IsZero() {
		return errors.New("config: private key is zero")
	}

	ps := make(map[party.ID]curve.Point, len(cm.Public))
	for _, raw := range cm.Public {
		p := &publicMarshal{
			PublicKey: c.Group.NewPoint(),
		}
		if err := cbor.Unmarshal(raw, p); err != nil {
			return fmt.Errorf("config: party %s: %w", p.ID, err)
		}
		if _, ok := ps[p.ID]; ok {
			return fmt.Errorf("config: party %s: duplicate entry", p.ID)
		}

		// our own key is recomputed from the private key
		if p.ID == cm.ID {
			ps[p.ID] = cm.PrivateKey.ActOnBase()
			continue
		}

		if p.PublicKey.IsIdentity() {
			return fmt.Errorf("config: party %s: public key is the identity", p.ID)
		}
		ps[p.ID] = p.PublicKey
	}

	// check that we are included
	if _, ok := ps[cm.ID]; !ok {
		return errors.New("config: no public data for this party")
	}

	*c = Config{
		Group:      c.Group,
		ID:         cm.ID,
		PrivateKey: cm.PrivateKey,
		Public:     ps,
	}
	return nil
}

// WriteTo implements io.WriterTo. It writes only the public portion of the
// config, so that all parties derive the same session identifier from it.
func (c *Config) WriteTo(w io.Writer) (total int64, err error) {
	if c == nil {
		return 0, io.ErrUnexpectedEOF
	}
	var n int64
	for _, id := range c.PartyIDs() {
		n, err = id.WriteTo(w)
		total += n
		if err != nil {
			return
		}
		data, err2 := c.Public[id].MarshalBinary()
		if err2 != nil {
			return total, err2
		}
		n2, err2 := w.Write(data)
		total += int64(n2)
		if err2 != nil {
			return total, err2
		}
	}
	return
}

// Domain implements hash.WriterToWithDomain.
func (c *Config) Domain() string {
	return "MuSig Config"
}
