package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashWithDomain computes a SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DomainSubject is the domain prefix for subject content hashes.
// Version suffix enables future algorithm migration.
const DomainSubject = "matchstick/subject/v1"

// Hash computes the content-addressed hash of a value from its canonical
// serialization. Stable across process restarts given the same value.
// Returns an error for values that cannot be canonically marshaled
// (NaN, infinities, opaque handles).
func Hash(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return HashWithDomain(DomainSubject, canonical), nil
}
