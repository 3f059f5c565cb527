package crypto

import (
	"hash"

	"github.com/cockroachdb/errors"
	blake2b "github.com/minio/blake2b-simd"
)

// PersonalizationSize is the BLAKE2b personalization length. Every domain
// separator handed to Hash256 must be exactly this long.
const PersonalizationSize = 16

// ErrInvalidPersonalization is returned for personalizations that are not
// PersonalizationSize bytes.
var ErrInvalidPersonalization = errors.New("invalid BLAKE2b personalization")

// blake2bNew256 creates a new BLAKE2b-256 hash with the given personalization.
// The personalization is NOT a key, but a distinct parameter that modifies
// the hash function.
func blake2bNew256(personalization string) (hash.Hash, error) {
	if len(personalization) != PersonalizationSize {
		return nil, errors.Wrapf(ErrInvalidPersonalization, "%q is %d bytes", personalization, len(personalization))
	}

	return blake2b.New(&blake2b.Config{
		Size:   32,
		Person: []byte(personalization),
	})
}

// Hash256 computes BLAKE2b-256(personalization, parts[0] || parts[1] || ...).
func Hash256(personalization string, parts ...[]byte) ([32]byte, error) {
	var digest [32]byte

	h, err := blake2bNew256(personalization)
	if err != nil {
		return digest, err
	}
	for _, p := range parts {
		h.Write(p)
	}

	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// CheckPersonalization validates a domain separator up front so callers can
// fail at initialization rather than on first use.
func CheckPersonalization(personalization string) error {
	_, err := blake2bNew256(personalization)
	return err
}
