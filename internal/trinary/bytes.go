package trinary

import "fmt"

// BytesToTrytes encodes raw bytes at a fixed two-trytes-per-byte ratio:
// the first tryte carries b mod 27, the second b div 27. This is the codec
// used for message fragments, so encoded messages survive the wire format
// byte for byte.
func BytesToTrytes(b []byte) Trytes {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = TryteAlphabet[v%27]
		out[i*2+1] = TryteAlphabet[v/27]
	}
	return Trytes(out)
}

// TrytesToBytes reverses BytesToTrytes. The input must have even length and
// every pair must decode to a value below 256.
func TrytesToBytes(t Trytes) ([]byte, error) {
	if len(t)%2 != 0 {
		return nil, fmt.Errorf("%w: odd tryte count %d", ErrInvalidLength, len(t))
	}
	out := make([]byte, len(t)/2)
	for i := range out {
		lo, ok := tryteIndex(t[i*2])
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidAlphabet, t[i*2], i*2)
		}
		hi, ok := tryteIndex(t[i*2+1])
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidAlphabet, t[i*2+1], i*2+1)
		}
		v := lo + hi*27
		if v > 255 {
			return nil, fmt.Errorf("%w: tryte pair %q decodes to %d", ErrInvalidLength, t[i*2:i*2+2], v)
		}
		out[i] = byte(v)
	}
	return out, nil
}
