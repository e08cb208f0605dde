package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Fingerprint is the cache key for a resolved query: a hash over the dataset
// identity and the canonical serialized plan. Identical (Dataset, QueryPlan)
// pairs always produce the same fingerprint.
type Fingerprint Hash

func (f Fingerprint) String() string { return Hash(f).String() }

// NewFingerprint derives a fingerprint from a dataset id and canonical plan bytes.
func NewFingerprint(datasetID DatasetID, planBytes []byte) Fingerprint {
	data := make([]byte, 0, len(datasetID)+1+len(planBytes))
	data = append(data, []byte(datasetID)...)
	data = append(data, ':')
	data = append(data, planBytes...)
	return Fingerprint(NewHash(data))
}
