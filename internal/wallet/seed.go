package wallet

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/tanglekit/walletcore/internal/signing"
	"github.com/tanglekit/walletcore/internal/sponge"
	"github.com/tanglekit/walletcore/internal/trinary"
)

// ErrInvalidMnemonic is returned for phrases that fail BIP-39 validation.
var ErrInvalidMnemonic = errors.New("wallet: invalid mnemonic phrase")

// coinType is the registered SLIP-44 coin type used in the derivation path
// m/44'/4218'/{account}'.
const coinType = 4218

// Seed is the 81-tryte master secret. It is held as trits so it can be wiped
// with Zero once the caller is done deriving from it; it never appears in
// logs or error messages.
type Seed struct {
	trits trinary.Trits
}

// NewRandomSeed draws a seed from crypto/rand. Each tryte is sampled by
// rejection so the 27 values stay uniform.
func NewRandomSeed() (*Seed, error) {
	trits := make(trinary.Trits, signing.SeedTryteLength*trinary.TritsPerTryte)
	buf := make([]byte, 1)
	for i := 0; i < signing.SeedTryteLength; i++ {
		for {
			if _, err := rand.Read(buf); err != nil {
				return nil, fmt.Errorf("wallet: read entropy: %w", err)
			}
			// 243 is the largest multiple of 27 below 256; anything above
			// would bias the distribution.
			if buf[0] < 243 {
				break
			}
		}
		copy(trits[i*trinary.TritsPerTryte:], trinary.IntToTrits(int64(buf[0]%27), trinary.TritsPerTryte))
	}
	return &Seed{trits: trits}, nil
}

// NewSeedFromTrytes wraps an existing 81-tryte seed.
func NewSeedFromTrytes(trytes trinary.Trytes) (*Seed, error) {
	if len(trytes) != signing.SeedTryteLength {
		return nil, fmt.Errorf("%w: got %d trytes", signing.ErrInvalidSeed, len(trytes))
	}
	trits, err := trinary.TrytesToTrits(trytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signing.ErrInvalidSeed, err)
	}
	return &Seed{trits: trits}, nil
}

// NewSeedFromMnemonic derives a seed from a BIP-39 phrase. The phrase is
// stretched to entropy, walked down m/44'/4218'/{account}' and the resulting
// key material is hashed into the ternary domain, so one phrase backs any
// number of independent accounts.
func NewSeedFromMnemonic(mnemonic, passphrase string, account uint32) (*Seed, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	entropy := bip39.NewSeed(mnemonic, passphrase)

	key, err := deriveAccountKey(entropy, account)
	if err != nil {
		return nil, err
	}

	// 32 key bytes encode to 64 trytes; pad to a full hash block and fold
	// through the sponge to get a well-distributed 81-tryte seed.
	encoded := trinary.Pad(trinary.BytesToTrytes(key), sponge.HashTrytes)
	trits, err := trinary.TrytesToTrits(encoded)
	if err != nil {
		return nil, err
	}
	k := sponge.NewKerl()
	if err := k.Absorb(trits); err != nil {
		return nil, err
	}
	seedTrits, err := k.Squeeze(sponge.HashTrits)
	if err != nil {
		return nil, err
	}
	return &Seed{trits: seedTrits}, nil
}

// deriveAccountKey derives the hardened account key at m/44'/4218'/{account}'.
func deriveAccountKey(entropy []byte, account uint32) ([]byte, error) {
	masterKey, err := bip32.NewMasterKey(entropy)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	purpose, err := masterKey.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, fmt.Errorf("derive purpose: %w", err)
	}

	coin, err := purpose.NewChildKey(bip32.FirstHardenedChild + coinType)
	if err != nil {
		return nil, fmt.Errorf("derive coin: %w", err)
	}

	child, err := coin.NewChildKey(bip32.FirstHardenedChild + account)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	return child.Key, nil
}

// Trytes returns the seed in tryte form for the signing pipeline.
func (s *Seed) Trytes() (trinary.Trytes, error) {
	return trinary.TritsToTrytes(s.trits)
}

// Zero wipes the seed material. The Seed must not be used afterwards.
func (s *Seed) Zero() {
	for i := range s.trits {
		s.trits[i] = 0
	}
}

// String redacts the seed so it cannot leak through formatting.
func (s *Seed) String() string {
	return "seed(redacted)"
}
