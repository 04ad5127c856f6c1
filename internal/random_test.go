package internal

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewCaseIDFormat(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)

	id, err := NewCaseID("CI", now, 4)
	if err != nil {
		t.Fatalf("NewCaseID error: %v", err)
	}

	re := regexp.MustCompile(`^CI-20240101-[A-Z0-9]{4}$`)
	if !re.MatchString(id) {
		t.Fatalf("unexpected case id format: %q", id)
	}
}

func TestNewCaseIDUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	now := time.Date(2024, 1, 2, 2, 0, 0, 0, loc)

	id, err := NewCaseID("CI", now, 4)
	if err != nil {
		t.Fatalf("NewCaseID error: %v", err)
	}
	if !strings.HasPrefix(id, "CI-20240101-") {
		t.Fatalf("expected UTC date in case id, got %q", id)
	}
}

func TestNewPasscodeLengthAndAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewPasscode(8)
		if err != nil {
			t.Fatalf("NewPasscode error: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("expected 8 symbols, got %d (%q)", len(code), code)
		}
		for _, r := range code {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("symbol %q outside alphabet in %q", r, code)
			}
		}
	}
}

func TestNewPasscodeRejectsInvalidLength(t *testing.T) {
	if _, err := NewPasscode(0); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := NewPasscode(65); err == nil {
		t.Fatal("expected error for oversized length")
	}
}

func TestNewPasscodeUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := NewPasscode(8)
		if err != nil {
			t.Fatalf("NewPasscode error: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate passcode after %d draws: %q", i, code)
		}
		seen[code] = struct{}{}
	}
}

func TestPasscodeEntropyBitsMeetsFloor(t *testing.T) {
	if bits := PasscodeEntropyBits(8); bits < 32 {
		t.Fatalf("expected >= 32 bits for 8 symbols, got %f", bits)
	}
	if bits := PasscodeEntropyBits(6); bits < 31 || bits > 32 {
		t.Fatalf("unexpected entropy for 6 symbols: %f", bits)
	}
}
