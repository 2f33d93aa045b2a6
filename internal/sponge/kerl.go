package sponge

import (
	"math/big"

	"github.com/tanglekit/walletcore/internal/trinary"
)

// Kerl wraps legacy Keccak-384 in the ternary sponge interface. Each
// 243-trit block maps to a 48-byte signed big-endian integer; the 243rd trit
// is always zeroed so the value fits 384 bits. On squeeze the digest bytes
// are bit-flipped and re-absorbed, which is what makes consecutive squeezed
// blocks differ. All of this is fixed by the network; none of it is tunable.
type Kerl struct {
	h *keccak
}

// NewKerl returns a fresh Kerl sponge.
func NewKerl() *Kerl {
	return &Kerl{h: newKeccak384()}
}

// Absorb feeds whole 243-trit blocks into the hash.
func (k *Kerl) Absorb(in trinary.Trits) error {
	if len(in) == 0 || len(in)%HashTrits != 0 {
		return ErrInvalidBlockLength
	}
	block := make(trinary.Trits, HashTrits)
	for i := 0; i < len(in); i += HashTrits {
		copy(block, in[i:i+HashTrits])
		block[HashTrits-1] = 0
		k.h.Write(kerlTritsToBytes(block))
	}
	return nil
}

// Squeeze extracts length trits in 243-trit blocks.
func (k *Kerl) Squeeze(length int) (trinary.Trits, error) {
	if length == 0 || length%HashTrits != 0 {
		return nil, ErrInvalidBlockLength
	}
	out := make(trinary.Trits, 0, length)
	for len(out) < length {
		digest := k.h.Sum(nil)
		block := kerlBytesToTrits(digest)
		block[HashTrits-1] = 0
		out = append(out, block...)
		for i := range digest {
			digest[i] ^= 0xFF
		}
		k.h.Reset()
		k.h.Write(digest)
	}
	return out, nil
}

// Reset restores the initial state.
func (k *Kerl) Reset() {
	k.h.Reset()
}

var (
	bigRadix = big.NewInt(trinary.Radix)
	bigOne   = big.NewInt(1)
	// 2^384, the modulus for the 48-byte two's-complement representation.
	bigTwo384 = new(big.Int).Lsh(bigOne, 384)
)

func kerlTritsToBytes(ts trinary.Trits) []byte {
	v := new(big.Int)
	tmp := new(big.Int)
	for i := HashTrits - 1; i >= 0; i-- {
		v.Mul(v, bigRadix)
		v.Add(v, tmp.SetInt64(int64(ts[i])))
	}
	if v.Sign() < 0 {
		v.Add(v, bigTwo384)
	}
	b := v.Bytes()
	out := make([]byte, keccakDigestLen)
	copy(out[keccakDigestLen-len(b):], b)
	return out
}

func kerlBytesToTrits(b []byte) trinary.Trits {
	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		v.Sub(v, bigTwo384)
	}
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	out := make(trinary.Trits, HashTrits)
	rem := new(big.Int)
	for i := 0; i < HashTrits; i++ {
		if abs.Sign() == 0 {
			break
		}
		abs.QuoRem(abs, bigRadix, rem)
		r := int8(rem.Int64())
		if r > 1 {
			r = -1
			abs.Add(abs, bigOne)
		}
		if neg {
			r = -r
		}
		out[i] = r
	}
	return out
}
