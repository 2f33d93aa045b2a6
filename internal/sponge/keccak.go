package sponge

import "math/bits"

// Legacy Keccak-384 (pre-SHA3 padding, domain separation byte 0x01).
// golang.org/x/crypto/sha3 only ships the 256- and 512-bit legacy variants,
// and the SHA3-384 there uses the 0x06 padding byte, which is incompatible
// with the network's hash. The permutation below is the plain Keccak-f[1600]
// round function; the padding byte is parameterized so tests can validate the
// whole sponge against x/crypto's SHA3-384.

const (
	keccakRate      = 104 // 1600/8 - 2*48
	keccakDigestLen = 48
)

var keccakRoundConstants = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808A, 0x8000000080008000,
	0x000000000000808B, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008A, 0x0000000000000088, 0x0000000080008009, 0x000000008000000A,
	0x000000008000808B, 0x800000000000008B, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800A, 0x800000008000000A,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

// Rotation offsets indexed by lane position x+5y.
var keccakRotations = [25]int{
	0, 1, 62, 28, 27,
	36, 44, 6, 55, 20,
	3, 10, 43, 25, 39,
	41, 45, 15, 21, 8,
	18, 2, 61, 56, 14,
}

func keccakF1600(a *[25]uint64) {
	var b [25]uint64
	var c [5]uint64
	for r := 0; r < 24; r++ {
		// theta
		for x := 0; x < 5; x++ {
			c[x] = a[x] ^ a[x+5] ^ a[x+10] ^ a[x+15] ^ a[x+20]
		}
		for x := 0; x < 5; x++ {
			d := c[(x+4)%5] ^ bits.RotateLeft64(c[(x+1)%5], 1)
			for y := 0; y < 25; y += 5 {
				a[x+y] ^= d
			}
		}
		// rho and pi
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				b[y+5*((2*x+3*y)%5)] = bits.RotateLeft64(a[x+5*y], keccakRotations[x+5*y])
			}
		}
		// chi
		for x := 0; x < 5; x++ {
			for y := 0; y < 25; y += 5 {
				a[x+y] = b[x+y] ^ (^b[(x+1)%5+y] & b[(x+2)%5+y])
			}
		}
		// iota
		a[0] ^= keccakRoundConstants[r]
	}
}

// keccak is a fixed-rate byte sponge over Keccak-f[1600].
type keccak struct {
	a      [25]uint64
	buf    [keccakRate]byte
	n      int
	dsbyte byte
}

func newKeccak384() *keccak {
	return &keccak{dsbyte: 0x01}
}

func (k *keccak) Reset() {
	k.a = [25]uint64{}
	k.buf = [keccakRate]byte{}
	k.n = 0
}

func (k *keccak) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		n := copy(k.buf[k.n:], p)
		k.n += n
		p = p[n:]
		if k.n == keccakRate {
			k.absorbBlock()
		}
	}
	return written, nil
}

func (k *keccak) absorbBlock() {
	for i := 0; i < keccakRate/8; i++ {
		k.a[i] ^= le64(k.buf[i*8:])
	}
	keccakF1600(&k.a)
	k.n = 0
}

// Sum appends the digest to b without disturbing the running state.
func (k *keccak) Sum(b []byte) []byte {
	d := *k
	for i := d.n; i < keccakRate; i++ {
		d.buf[i] = 0
	}
	d.buf[d.n] = d.dsbyte
	d.buf[keccakRate-1] |= 0x80
	for i := 0; i < keccakRate/8; i++ {
		d.a[i] ^= le64(d.buf[i*8:])
	}
	keccakF1600(&d.a)
	out := make([]byte, keccakDigestLen)
	for i := 0; i < keccakDigestLen/8; i++ {
		putLE64(out[i*8:], d.a[i])
	}
	return append(b, out...)
}

func le64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
