package address

import (
	"errors"
	"testing"

	"github.com/tanglekit/walletcore/internal/signing"
	"github.com/tanglekit/walletcore/internal/trinary"
)

const testSeed = trinary.Trytes("ZLNM9UHJWKTTDEZOTH9CXDEIFUJQCIACDPJIXPOWBDW9LTBHC9AQRIXTIHYLIIURLZCXNSTGNIVC9ISVB")

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(testSeed, 0, signing.SecurityLow)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(testSeed, 0, signing.SecurityLow)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same inputs gave different addresses: %s vs %s", a, b)
	}
	if len(a) != TryteLength {
		t.Errorf("address of %d trytes, want %d", len(a), TryteLength)
	}
}

func TestGenerateDistinct(t *testing.T) {
	byIndex0, err := Generate(testSeed, 0, signing.SecurityLow)
	if err != nil {
		t.Fatal(err)
	}
	byIndex1, err := Generate(testSeed, 1, signing.SecurityLow)
	if err != nil {
		t.Fatal(err)
	}
	if byIndex0 == byIndex1 {
		t.Error("different indices gave the same address")
	}

	bySecurity, err := Generate(testSeed, 0, signing.SecurityMedium)
	if err != nil {
		t.Fatal(err)
	}
	if byIndex0 == bySecurity {
		t.Error("different security levels gave the same address")
	}
}

func TestGenerateInvalidInputs(t *testing.T) {
	if _, err := Generate("TOO9SHORT", 0, signing.SecurityLow); !errors.Is(err, signing.ErrInvalidSeed) {
		t.Errorf("expected ErrInvalidSeed, got %v", err)
	}
	if _, err := Generate(testSeed, 0, 5); !errors.Is(err, signing.ErrInvalidSecurityLevel) {
		t.Errorf("expected ErrInvalidSecurityLevel, got %v", err)
	}
}

func TestChecksumRoundtrip(t *testing.T) {
	addr, err := Generate(testSeed, 2, signing.SecurityLow)
	if err != nil {
		t.Fatal(err)
	}

	cs, err := Checksum(addr)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != ChecksumTryteLength {
		t.Fatalf("checksum of %d trytes, want %d", len(cs), ChecksumTryteLength)
	}

	full, err := WithChecksum(addr)
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != TryteLength+ChecksumTryteLength {
		t.Fatalf("checksummed address of %d trytes", len(full))
	}

	bare, err := Strip(full)
	if err != nil {
		t.Fatal(err)
	}
	if bare != addr {
		t.Errorf("strip returned %s, want %s", bare, addr)
	}
}

func TestStripDetectsCorruption(t *testing.T) {
	addr, err := Generate(testSeed, 4, signing.SecurityLow)
	if err != nil {
		t.Fatal(err)
	}
	full, err := WithChecksum(addr)
	if err != nil {
		t.Fatal(err)
	}

	// Flip the last checksum tryte.
	last := full[len(full)-1]
	flip := byte('A')
	if last == flip {
		flip = 'B'
	}
	corrupted := full[:len(full)-1] + trinary.Trytes(flip)

	if _, err := Strip(corrupted); !errors.Is(err, ErrInvalidChecksum) {
		t.Errorf("expected ErrInvalidChecksum, got %v", err)
	}
}

func TestValidateLengths(t *testing.T) {
	tests := []struct {
		name    string
		addr    trinary.Trytes
		wantErr error
	}{
		{"empty", "", ErrInvalidAddress},
		{"83 trytes", trinary.Trytes(make([]byte, 83)), ErrInvalidAddress},
		{"bad alphabet", trinary.Trytes("a") + testSeed[1:], ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.addr); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate(%q) = %v, want %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}
