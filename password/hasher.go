package password

import (
	"errors"
	"strings"
)

const (
	// DefaultMinSecretBytes is the shortest secret accepted by Hash.
	DefaultMinSecretBytes = 6
	// DefaultMaxSecretBytes caps Hash and Verify input for argon2id.
	DefaultMaxSecretBytes = 1024
)

var (
	// ErrSecretTooShort is returned by Hash for secrets under the minimum length.
	ErrSecretTooShort = errors.New("secret too short")
	// ErrSecretTooLong is returned by Hash and Verify for oversized input.
	ErrSecretTooLong = errors.New("secret too long")
	// ErrUnsupportedHash is returned when an encoded hash belongs to another algorithm.
	ErrUnsupportedHash = errors.New("unsupported hash format")
)

// Hasher hashes secrets and verifies them against stored encodings.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
	Algorithm() string
}

// Multi verifies against whichever algorithm produced the stored hash and
// hashes new secrets with Primary. It lets a deployment switch algorithms
// without invalidating credentials that are still active.
type Multi struct {
	Primary  Hasher
	Fallback []Hasher
}

// Hash delegates to Primary.
func (m Multi) Hash(secret string) (string, error) {
	return m.Primary.Hash(secret)
}

// Verify picks the hasher whose encoding prefix matches encodedHash.
func (m Multi) Verify(secret, encodedHash string) (bool, error) {
	h := m.pick(encodedHash)
	if h == nil {
		return false, ErrUnsupportedHash
	}
	return h.Verify(secret, encodedHash)
}

// NeedsUpgrade is true for any hash not produced by Primary, or produced by
// Primary with weaker parameters.
func (m Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	h := m.pick(encodedHash)
	if h == nil {
		return false, ErrUnsupportedHash
	}
	if h != m.Primary {
		return true, nil
	}
	return h.NeedsUpgrade(encodedHash)
}

// Algorithm reports the primary algorithm.
func (m Multi) Algorithm() string {
	return m.Primary.Algorithm()
}

func (m Multi) pick(encodedHash string) Hasher {
	if matches(m.Primary, encodedHash) {
		return m.Primary
	}
	for _, h := range m.Fallback {
		if matches(h, encodedHash) {
			return h
		}
	}
	return nil
}

func matches(h Hasher, encodedHash string) bool {
	switch h.Algorithm() {
	case AlgorithmBcrypt:
		return strings.HasPrefix(encodedHash, "$2a$") ||
			strings.HasPrefix(encodedHash, "$2b$") ||
			strings.HasPrefix(encodedHash, "$2y$")
	case AlgorithmArgon2id:
		return strings.HasPrefix(encodedHash, "$"+AlgorithmArgon2id+"$")
	default:
		return false
	}
}
