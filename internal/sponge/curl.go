package sponge

import (
	"github.com/tanglekit/walletcore/internal/trinary"
)

const (
	curlRounds    = 81
	curlStateSize = HashTrits * 3
)

// curlTruthTable drives the state transition. Together with the index
// rotation below it is a fixed network constant; changing either breaks
// compatibility with every transaction hash on the ledger.
var curlTruthTable = [11]int8{1, 0, -1, 2, 1, -1, 0, 2, -1, 1, 0}

var curlIndices [curlStateSize + 1]int

func init() {
	for i := 0; i < curlStateSize; i++ {
		step := -365
		if curlIndices[i] < 365 {
			step = 364
		}
		curlIndices[i+1] = curlIndices[i] + step
	}
}

// Curl is the Curl-P-81 sponge used for transaction hashing and the
// proof-of-work stamp.
type Curl struct {
	state [curlStateSize]int8
}

// NewCurl returns a zero-state Curl sponge.
func NewCurl() *Curl {
	return &Curl{}
}

// Absorb feeds whole 243-trit blocks into the state.
func (c *Curl) Absorb(in trinary.Trits) error {
	if len(in) == 0 || len(in)%HashTrits != 0 {
		return ErrInvalidBlockLength
	}
	for i := 0; i < len(in); i += HashTrits {
		copy(c.state[:HashTrits], in[i:i+HashTrits])
		c.transform()
	}
	return nil
}

// Squeeze extracts length trits, transforming between blocks.
func (c *Curl) Squeeze(length int) (trinary.Trits, error) {
	if length == 0 || length%HashTrits != 0 {
		return nil, ErrInvalidBlockLength
	}
	out := make(trinary.Trits, length)
	for i := 0; i < length; i += HashTrits {
		copy(out[i:], c.state[:HashTrits])
		c.transform()
	}
	return out, nil
}

// Reset clears the state.
func (c *Curl) Reset() {
	c.state = [curlStateSize]int8{}
}

// Clone returns an independent copy of the sponge, used to reuse a
// mid-state across many nonce attempts.
func (c *Curl) Clone() *Curl {
	cp := *c
	return &cp
}

func (c *Curl) transform() {
	var scratch [curlStateSize]int8
	for r := 0; r < curlRounds; r++ {
		scratch = c.state
		for i := 0; i < curlStateSize; i++ {
			c.state[i] = curlTruthTable[scratch[curlIndices[i]]+(scratch[curlIndices[i+1]]<<2)+5]
		}
	}
}
