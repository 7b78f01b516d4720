package params

const (
	// SecParam is the bit strength targeted by the whole module.
	SecParam = 256
	// SecBytes is the byte length of secrets, blinding factors, and session identifiers.
	SecBytes = SecParam / 8
	// HashBytes is the output length of the hash function used for commitments and challenges.
	HashBytes = 2 * SecBytes
)
