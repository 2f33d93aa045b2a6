package address

import (
	"errors"
	"fmt"

	"github.com/tanglekit/walletcore/internal/signing"
	"github.com/tanglekit/walletcore/internal/sponge"
	"github.com/tanglekit/walletcore/internal/trinary"
)

const (
	// TryteLength is the length of a bare address.
	TryteLength = 81

	// ChecksumTryteLength is the length of the optional checksum suffix.
	ChecksumTryteLength = 9
)

var (
	// ErrInvalidAddress is returned for addresses of the wrong length or alphabet.
	ErrInvalidAddress = errors.New("address: address must be 81 trytes, or 90 with checksum")

	// ErrInvalidChecksum is returned when a 90-tryte address fails its checksum.
	ErrInvalidChecksum = errors.New("address: checksum mismatch")
)

// Generate derives the address controlled by (seed, index, security). The
// derivation is pure: private key material is produced, folded into digests
// and discarded. Same inputs always produce the same address.
func Generate(seed trinary.Trytes, index uint64, security signing.SecurityLevel) (trinary.Trytes, error) {
	subseed, err := signing.Subseed(seed, index)
	if err != nil {
		return "", err
	}
	key, err := signing.Key(subseed, security)
	if err != nil {
		return "", err
	}
	digests, err := signing.Digests(key)
	if err != nil {
		return "", err
	}
	addrTrits, err := signing.AddressFromDigests(digests)
	if err != nil {
		return "", err
	}
	return trinary.TritsToTrytes(addrTrits)
}

// Checksum computes the 9-tryte checksum of a bare address.
func Checksum(addr trinary.Trytes) (trinary.Trytes, error) {
	if len(addr) != TryteLength {
		return "", fmt.Errorf("%w: got %d trytes", ErrInvalidAddress, len(addr))
	}
	trits, err := trinary.TrytesToTrits(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	k := sponge.NewKerl()
	if err := k.Absorb(trits); err != nil {
		return "", err
	}
	hashTrits, err := k.Squeeze(sponge.HashTrits)
	if err != nil {
		return "", err
	}
	hash, err := trinary.TritsToTrytes(hashTrits)
	if err != nil {
		return "", err
	}
	return hash[sponge.HashTrytes-ChecksumTryteLength:], nil
}

// WithChecksum appends the checksum to a bare address.
func WithChecksum(addr trinary.Trytes) (trinary.Trytes, error) {
	cs, err := Checksum(addr)
	if err != nil {
		return "", err
	}
	return addr + cs, nil
}

// Strip removes a checksum suffix if present, validating it first.
func Strip(addr trinary.Trytes) (trinary.Trytes, error) {
	switch len(addr) {
	case TryteLength:
		if err := trinary.ValidTrytes(addr); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		return addr, nil
	case TryteLength + ChecksumTryteLength:
		bare := addr[:TryteLength]
		cs, err := Checksum(bare)
		if err != nil {
			return "", err
		}
		if cs != addr[TryteLength:] {
			return "", fmt.Errorf("%w: %s", ErrInvalidChecksum, addr)
		}
		return bare, nil
	default:
		return "", fmt.Errorf("%w: got %d trytes", ErrInvalidAddress, len(addr))
	}
}

// Validate checks address format, and the checksum when one is attached.
func Validate(addr trinary.Trytes) error {
	_, err := Strip(addr)
	return err
}
