package sponge

import (
	"errors"

	"github.com/tanglekit/walletcore/internal/trinary"
)

const (
	// HashTrits is the digest size shared by both sponges, in trits.
	HashTrits = 243

	// HashTrytes is the digest size in trytes.
	HashTrytes = HashTrits / trinary.TritsPerTryte
)

var (
	// ErrInvalidBlockLength is returned when absorbed or squeezed lengths
	// are not a multiple of HashTrits.
	ErrInvalidBlockLength = errors.New("sponge: length must be a multiple of 243 trits")
)

// Sponge is the absorb/squeeze construction both hash primitives implement.
// Absorb and Squeeze operate on whole 243-trit blocks; Reset returns the
// sponge to its initial state.
type Sponge interface {
	Absorb(in trinary.Trits) error
	Squeeze(length int) (trinary.Trits, error)
	Reset()
}
