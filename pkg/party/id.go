package party

import (
	"io"
	"math/rand"
)

// ID represents a unique identifier for a participant in our scheme.
//
// You should think of this as a string, and use it that way.
// IDs are also how the canonical participant ordering is established:
// aggregation and signing operate over the sorted set of IDs.
type ID string

// WriteTo makes ID implement the io.WriterTo interface.
//
// This writes out the content of this ID, in a way that's safe to hash.
func (id ID) WriteTo(w io.Writer) (int64, error) {
	if id == "" {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := w.Write([]byte(id))
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (ID) Domain() string {
	return "ID"
}

const partyIDLength = 20

var partyIDLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = partyIDLetters[rand.Intn(len(partyIDLetters))]
	}
	return string(b)
}

// RandomIDs returns a slice of random IDs with 20 alphanumeric characters.
//
// This is intended for tests and examples; real deployments should use
// stable identifiers agreed on out-of-band.
func RandomIDs(n int) IDSlice {
	ids := make(IDSlice, n)
	for i := range ids {
		ids[i] = ID(randomString(partyIDLength))
	}
	return NewIDSlice(ids)
}
