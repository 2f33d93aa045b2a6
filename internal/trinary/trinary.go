package trinary

import (
	"errors"
	"fmt"
)

// The balanced-ternary alphabet used across the network. The order is a
// protocol constant: '9' encodes zero, 'A'..'M' encode 1..13 and 'N'..'Z'
// encode -13..-1.
const TryteAlphabet = "9ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	// TritsPerTryte is the fixed expansion ratio between the two encodings.
	TritsPerTryte = 3

	// Radix of the ternary number system.
	Radix = 3

	// MinTryteValue and MaxTryteValue bound the value of a single tryte.
	MinTryteValue = -13
	MaxTryteValue = 13
)

var (
	// ErrInvalidAlphabet is returned when a tryte string contains characters
	// outside the defined alphabet.
	ErrInvalidAlphabet = errors.New("trinary: character outside tryte alphabet")

	// ErrInvalidTritValue is returned when a trit is not -1, 0 or 1.
	ErrInvalidTritValue = errors.New("trinary: trit value outside [-1, 1]")

	// ErrInvalidLength is returned when a trit slice is not a whole number
	// of trytes, or a tryte pair decodes outside the byte range.
	ErrInvalidLength = errors.New("trinary: invalid length")
)

// Trits is a sequence of balanced trits, each -1, 0 or 1. Index 0 is the
// least significant position.
type Trits []int8

// Trytes is a string over TryteAlphabet.
type Trytes string

// tryteToTrits maps the alphabet index of a tryte to its three trits.
var tryteToTrits [27][3]int8

func init() {
	for i := 0; i < 27; i++ {
		v := int64(i)
		if v > MaxTryteValue {
			v -= 27
		}
		t := IntToTrits(v, TritsPerTryte)
		copy(tryteToTrits[i][:], t)
	}
}

// ValidTrytes reports whether t consists solely of alphabet characters.
func ValidTrytes(t Trytes) error {
	for i := 0; i < len(t); i++ {
		c := t[i]
		if c != '9' && (c < 'A' || c > 'Z') {
			return fmt.Errorf("%w: %q at position %d", ErrInvalidAlphabet, c, i)
		}
	}
	return nil
}

// ValidTrits reports whether every trit of t is in range.
func ValidTrits(t Trits) error {
	for i, v := range t {
		if v < -1 || v > 1 {
			return fmt.Errorf("%w: %d at position %d", ErrInvalidTritValue, v, i)
		}
	}
	return nil
}

func tryteIndex(c byte) (int, bool) {
	switch {
	case c == '9':
		return 0, true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 1, true
	default:
		return 0, false
	}
}

// TryteValue returns the balanced value of a single tryte character,
// in [MinTryteValue, MaxTryteValue].
func TryteValue(c byte) (int8, error) {
	idx, ok := tryteIndex(c)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAlphabet, c)
	}
	if idx > MaxTryteValue {
		idx -= 27
	}
	return int8(idx), nil
}

// TrytesToTrits expands t to TritsPerTryte trits per character.
func TrytesToTrits(t Trytes) (Trits, error) {
	out := make(Trits, len(t)*TritsPerTryte)
	for i := 0; i < len(t); i++ {
		idx, ok := tryteIndex(t[i])
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidAlphabet, t[i], i)
		}
		copy(out[i*TritsPerTryte:], tryteToTrits[idx][:])
	}
	return out, nil
}

// TritsToTrytes packs t, which must be a whole number of trytes.
func TritsToTrytes(t Trits) (Trytes, error) {
	if len(t)%TritsPerTryte != 0 {
		return "", fmt.Errorf("%w: %d trits is not a whole number of trytes", ErrInvalidLength, len(t))
	}
	if err := ValidTrits(t); err != nil {
		return "", err
	}
	out := make([]byte, len(t)/TritsPerTryte)
	for i := range out {
		v := int(t[i*3]) + int(t[i*3+1])*3 + int(t[i*3+2])*9
		out[i] = TryteAlphabet[((v%27)+27)%27]
	}
	return Trytes(out), nil
}

// IntToTrits encodes v in balanced ternary over size trits. Values that do
// not fit are truncated at the most significant end.
func IntToTrits(v int64, size int) Trits {
	out := make(Trits, size)
	neg := v < 0
	if neg {
		v = -v
	}
	for i := 0; i < size && v != 0; i++ {
		r := int8(v % Radix)
		v /= Radix
		if r == 2 {
			r = -1
			v++
		}
		if neg {
			r = -r
		}
		out[i] = r
	}
	return out
}

// TritsToInt decodes a balanced-ternary value.
func TritsToInt(t Trits) int64 {
	var v int64
	for i := len(t) - 1; i >= 0; i-- {
		v = v*Radix + int64(t[i])
	}
	return v
}

// AddTrits adds two balanced-ternary numbers digit by digit. The result is
// as long as the longer operand; a final carry is dropped, matching the
// fixed-width increment semantics used for subseed and tag arithmetic.
func AddTrits(a, b Trits) Trits {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Trits, n)
	var carry int8
	for i := 0; i < n; i++ {
		var x, y int8
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		s := x + y + carry
		switch {
		case s >= 2:
			s -= Radix
			carry = 1
		case s <= -2:
			s += Radix
			carry = -1
		default:
			carry = 0
		}
		out[i] = s
	}
	return out
}

// Pad right-pads t with '9' up to n characters.
func Pad(t Trytes, n int) Trytes {
	for len(t) < n {
		t += "9"
	}
	return t
}
