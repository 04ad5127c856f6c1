package internal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
)

const (
	// Alphabet is the symbol set for case suffixes and passcodes.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	caseDateLayout = "20060102"
)

var errInvalidLength = errors.New("invalid random string length")

// Reader is the entropy source. Tests may replace it.
var Reader io.Reader = rand.Reader

// RandomString draws n symbols uniformly from Alphabet. Each symbol consumes
// its own draw, so no generated entropy is discarded or truncated.
func RandomString(n int) (string, error) {
	if n <= 0 || n > 64 {
		return "", errInvalidLength
	}

	var b strings.Builder
	b.Grow(n)

	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}

	out := b.String()
	if len(out) != n {
		return "", fmt.Errorf("invalid random string generation length")
	}
	return out, nil
}

// NewCaseID renders PREFIX-YYYYMMDD-XXXX using the UTC date of now.
func NewCaseID(prefix string, now time.Time, suffixLen int) (string, error) {
	suffix, err := RandomString(suffixLen)
	if err != nil {
		return "", err
	}
	return prefix + "-" + now.UTC().Format(caseDateLayout) + "-" + suffix, nil
}

// NewPasscode returns an uppercase alphanumeric passcode of exactly n symbols.
func NewPasscode(n int) (string, error) {
	return RandomString(n)
}

// PasscodeEntropyBits reports the entropy carried by an n symbol passcode.
func PasscodeEntropyBits(n int) float64 {
	// log2(36) ~= 5.1699
	return float64(n) * 5.169925001442312
}
