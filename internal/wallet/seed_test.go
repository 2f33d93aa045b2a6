package wallet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tanglekit/walletcore/internal/signing"
	"github.com/tanglekit/walletcore/internal/trinary"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestNewRandomSeed(t *testing.T) {
	a, err := NewRandomSeed()
	if err != nil {
		t.Fatal(err)
	}
	trytes, err := a.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(trytes) != signing.SeedTryteLength {
		t.Fatalf("seed of %d trytes", len(trytes))
	}
	if err := trinary.ValidTrytes(trytes); err != nil {
		t.Fatal(err)
	}

	b, err := NewRandomSeed()
	if err != nil {
		t.Fatal(err)
	}
	bTrytes, err := b.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	if trytes == bTrytes {
		t.Error("two random seeds are identical")
	}
}

func TestNewSeedFromTrytes(t *testing.T) {
	seed, err := NewSeedFromTrytes(testSeedTrytes)
	if err != nil {
		t.Fatal(err)
	}
	got, err := seed.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	if got != testSeedTrytes {
		t.Error("seed trytes do not roundtrip")
	}

	if _, err := NewSeedFromTrytes("SHORT"); !errors.Is(err, signing.ErrInvalidSeed) {
		t.Errorf("expected ErrInvalidSeed, got %v", err)
	}
	bad := trinary.Trytes("a") + testSeedTrytes[1:]
	if _, err := NewSeedFromTrytes(bad); !errors.Is(err, signing.ErrInvalidSeed) {
		t.Errorf("expected ErrInvalidSeed, got %v", err)
	}
}

func TestNewSeedFromMnemonic(t *testing.T) {
	a, err := NewSeedFromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	aTrytes, err := a.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(aTrytes) != signing.SeedTryteLength {
		t.Fatalf("derived seed of %d trytes", len(aTrytes))
	}

	b, err := NewSeedFromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	bTrytes, err := b.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	if aTrytes != bTrytes {
		t.Error("mnemonic derivation not deterministic")
	}

	other, err := NewSeedFromMnemonic(testMnemonic, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	otherTrytes, err := other.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	if aTrytes == otherTrytes {
		t.Error("different accounts derived the same seed")
	}

	withPass, err := NewSeedFromMnemonic(testMnemonic, "trezor", 0)
	if err != nil {
		t.Fatal(err)
	}
	passTrytes, err := withPass.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	if aTrytes == passTrytes {
		t.Error("passphrase did not change the derived seed")
	}
}

func TestNewSeedFromMnemonicInvalid(t *testing.T) {
	if _, err := NewSeedFromMnemonic("definitely not a mnemonic", "", 0); !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("expected ErrInvalidMnemonic, got %v", err)
	}
}

func TestSeedZero(t *testing.T) {
	seed, err := NewSeedFromTrytes(testSeedTrytes)
	if err != nil {
		t.Fatal(err)
	}
	seed.Zero()
	trytes, err := seed.Trytes()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(trytes); i++ {
		if trytes[i] != '9' {
			t.Fatal("seed material not wiped")
		}
	}
}

func TestSeedNeverPrinted(t *testing.T) {
	seed, err := NewSeedFromTrytes(testSeedTrytes)
	if err != nil {
		t.Fatal(err)
	}
	out := fmt.Sprintf("%v %s", seed, seed)
	if out != "seed(redacted) seed(redacted)" {
		t.Errorf("seed formatting leaked: %q", out)
	}
}
