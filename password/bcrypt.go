package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// AlgorithmBcrypt names the bcrypt hasher.
	AlgorithmBcrypt = "bcrypt"
	// DefaultBcryptCost matches the cost the intake service has always used.
	DefaultBcryptCost = 10

	bcryptMaxSecretBytes = 72
)

// BcryptConfig configures a [Bcrypt] hasher.
type BcryptConfig struct {
	Cost           int
	MinSecretBytes int
}

// Bcrypt hashes secrets with bcrypt. Salt generation and constant-time
// comparison are handled by golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	config BcryptConfig
}

// NewBcrypt validates cfg and returns a hasher. A zero Cost selects
// DefaultBcryptCost.
func NewBcrypt(cfg BcryptConfig) (*Bcrypt, error) {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultBcryptCost
	}
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.MinSecretBytes == 0 {
		cfg.MinSecretBytes = DefaultMinSecretBytes
	}
	if cfg.MinSecretBytes < 1 || cfg.MinSecretBytes > bcryptMaxSecretBytes {
		return nil, errors.New("bcrypt minimum secret length out of range")
	}

	return &Bcrypt{config: cfg}, nil
}

// Hash returns a bcrypt encoding of secret.
func (b *Bcrypt) Hash(secret string) (string, error) {
	if len(secret) < b.config.MinSecretBytes {
		return "", ErrSecretTooShort
	}
	if len(secret) > bcryptMaxSecretBytes {
		return "", ErrSecretTooLong
	}

	out, err := bcrypt.GenerateFromPassword([]byte(secret), b.config.Cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether secret matches encodedHash. A mismatch is (false, nil);
// a malformed hash is an error.
func (b *Bcrypt) Verify(secret, encodedHash string) (bool, error) {
	if len(secret) > bcryptMaxSecretBytes {
		return false, ErrSecretTooLong
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// NeedsUpgrade is true when encodedHash was produced with a lower cost.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, err
	}
	return cost < b.config.Cost, nil
}

// Algorithm returns AlgorithmBcrypt.
func (b *Bcrypt) Algorithm() string {
	return AlgorithmBcrypt
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.config.Cost
}
