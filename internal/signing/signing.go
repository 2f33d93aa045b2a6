package signing

import (
	"errors"
	"fmt"
	"math"

	"github.com/tanglekit/walletcore/internal/sponge"
	"github.com/tanglekit/walletcore/internal/trinary"
)

// SecurityLevel selects how many 6561-trit key fragments back an address.
// Higher levels sign more of the bundle hash and cost proportionally more
// signature space.
type SecurityLevel int

// Supported security levels.
const (
	SecurityLow    SecurityLevel = 1
	SecurityMedium SecurityLevel = 2
	SecurityHigh   SecurityLevel = 3
)

const (
	// SeedTryteLength is the fixed seed size.
	SeedTryteLength = 81

	// KeyFragmentTrits is the private key length per security level:
	// 27 segments of 243 trits.
	KeyFragmentTrits = 6561

	// SegmentsPerFragment is the number of hash-chain segments in one
	// key fragment, and the number of trytes of bundle hash each
	// fragment signs.
	SegmentsPerFragment = 27

	// SignatureFragmentTrytes is the tryte size of one signature fragment,
	// equal to the signature/message field of a transaction.
	SignatureFragmentTrytes = KeyFragmentTrits / trinary.TritsPerTryte

	// chainRounds is the full length of the one-time hash chain. A key
	// segment hashed chainRounds times yields its public counterpart.
	chainRounds = trinary.MaxTryteValue - trinary.MinTryteValue
)

var (
	// ErrInvalidSeed is returned for seeds of the wrong length or alphabet.
	ErrInvalidSeed = errors.New("signing: seed must be 81 trytes")

	// ErrInvalidIndex is returned for key indices outside the derivable range.
	ErrInvalidIndex = errors.New("signing: invalid key index")

	// ErrInvalidSecurityLevel is returned for levels outside 1..3.
	ErrInvalidSecurityLevel = errors.New("signing: security level must be 1, 2 or 3")

	// ErrInvalidFragmentLength is returned when key or signature material
	// has a length that is not a whole number of fragments.
	ErrInvalidFragmentLength = errors.New("signing: invalid fragment length")

	// ErrKeyMismatch is returned when an input's address cannot be derived
	// from the supplied seed, index and security level.
	ErrKeyMismatch = errors.New("signing: address does not match derived key")
)

// Valid reports whether s is a supported security level.
func (s SecurityLevel) Valid() bool {
	return s >= SecurityLow && s <= SecurityHigh
}

// Subseed derives the per-index root of a one-time key: the seed interpreted
// as balanced ternary, incremented by index, hashed once.
func Subseed(seed trinary.Trytes, index uint64) (trinary.Trits, error) {
	if len(seed) != SeedTryteLength {
		return nil, fmt.Errorf("%w: got %d trytes", ErrInvalidSeed, len(seed))
	}
	if err := trinary.ValidTrytes(seed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if index > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	seedTrits, err := trinary.TrytesToTrits(seed)
	if err != nil {
		return nil, err
	}
	incremented := trinary.AddTrits(seedTrits, trinary.IntToTrits(int64(index), len(seedTrits)))

	k := sponge.NewKerl()
	if err := k.Absorb(incremented); err != nil {
		return nil, err
	}
	return k.Squeeze(sponge.HashTrits)
}

// Key expands a subseed into the one-time private key for the given
// security level.
func Key(subseed trinary.Trits, security SecurityLevel) (trinary.Trits, error) {
	if !security.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSecurityLevel, security)
	}
	k := sponge.NewKerl()
	if err := k.Absorb(subseed); err != nil {
		return nil, err
	}
	return k.Squeeze(int(security) * KeyFragmentTrits)
}

// Digests computes the public digest of each key fragment: every segment is
// advanced to the end of its hash chain, then the fragment's segments are
// hashed together.
func Digests(key trinary.Trits) (trinary.Trits, error) {
	if len(key) == 0 || len(key)%KeyFragmentTrits != 0 {
		return nil, fmt.Errorf("%w: key of %d trits", ErrInvalidFragmentLength, len(key))
	}
	fragments := len(key) / KeyFragmentTrits
	out := make(trinary.Trits, 0, fragments*sponge.HashTrits)

	buf := make(trinary.Trits, KeyFragmentTrits)
	for f := 0; f < fragments; f++ {
		copy(buf, key[f*KeyFragmentTrits:(f+1)*KeyFragmentTrits])
		for s := 0; s < SegmentsPerFragment; s++ {
			segment := buf[s*sponge.HashTrits : (s+1)*sponge.HashTrits]
			chained, err := hashChain(segment, chainRounds)
			if err != nil {
				return nil, err
			}
			copy(segment, chained)
		}
		k := sponge.NewKerl()
		if err := k.Absorb(buf); err != nil {
			return nil, err
		}
		digest, err := k.Squeeze(sponge.HashTrits)
		if err != nil {
			return nil, err
		}
		out = append(out, digest...)
	}
	return out, nil
}

// AddressFromDigests hashes the concatenated digests into the address.
func AddressFromDigests(digests trinary.Trits) (trinary.Trits, error) {
	if len(digests) == 0 || len(digests)%sponge.HashTrits != 0 {
		return nil, fmt.Errorf("%w: digests of %d trits", ErrInvalidFragmentLength, len(digests))
	}
	k := sponge.NewKerl()
	if err := k.Absorb(digests); err != nil {
		return nil, err
	}
	return k.Squeeze(sponge.HashTrits)
}

// NormalizedBundleHash converts the bundle hash into 81 tryte values and
// balances each 27-value fragment to sum to zero, so that a signature leaks
// a statistically flat amount of each hash chain.
func NormalizedBundleHash(hash trinary.Trytes) ([]int8, error) {
	if len(hash) != sponge.HashTrytes {
		return nil, fmt.Errorf("%w: bundle hash of %d trytes", ErrInvalidFragmentLength, len(hash))
	}
	vals := make([]int8, sponge.HashTrytes)
	for i := 0; i < len(hash); i++ {
		v, err := trinary.TryteValue(hash[i])
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	for f := 0; f < 3; f++ {
		fragment := vals[f*SegmentsPerFragment : (f+1)*SegmentsPerFragment]
		sum := 0
		for _, v := range fragment {
			sum += int(v)
		}
		for sum > 0 {
			for j := range fragment {
				if fragment[j] > trinary.MinTryteValue {
					fragment[j]--
					break
				}
			}
			sum--
		}
		for sum < 0 {
			for j := range fragment {
				if fragment[j] < trinary.MaxTryteValue {
					fragment[j]++
					break
				}
			}
			sum++
		}
	}
	return vals, nil
}

// SignatureFragment signs one 27-value fragment of the normalized bundle
// hash with one key fragment. Each key segment is advanced 13-v steps along
// its hash chain.
func SignatureFragment(normalized []int8, keyFragment trinary.Trits) (trinary.Trits, error) {
	if len(normalized) != SegmentsPerFragment {
		return nil, fmt.Errorf("%w: normalized fragment of %d values", ErrInvalidFragmentLength, len(normalized))
	}
	if len(keyFragment) != KeyFragmentTrits {
		return nil, fmt.Errorf("%w: key fragment of %d trits", ErrInvalidFragmentLength, len(keyFragment))
	}
	out := make(trinary.Trits, KeyFragmentTrits)
	copy(out, keyFragment)
	for s := 0; s < SegmentsPerFragment; s++ {
		segment := out[s*sponge.HashTrits : (s+1)*sponge.HashTrits]
		chained, err := hashChain(segment, int(trinary.MaxTryteValue-normalized[s]))
		if err != nil {
			return nil, err
		}
		copy(segment, chained)
	}
	return out, nil
}

// Digest recovers the public digest from a signature fragment by advancing
// each segment the remaining v+13 steps of its chain.
func Digest(normalized []int8, signatureFragment trinary.Trits) (trinary.Trits, error) {
	if len(normalized) != SegmentsPerFragment {
		return nil, fmt.Errorf("%w: normalized fragment of %d values", ErrInvalidFragmentLength, len(normalized))
	}
	if len(signatureFragment) != KeyFragmentTrits {
		return nil, fmt.Errorf("%w: signature fragment of %d trits", ErrInvalidFragmentLength, len(signatureFragment))
	}
	buf := make(trinary.Trits, KeyFragmentTrits)
	copy(buf, signatureFragment)
	for s := 0; s < SegmentsPerFragment; s++ {
		segment := buf[s*sponge.HashTrits : (s+1)*sponge.HashTrits]
		chained, err := hashChain(segment, int(normalized[s]-trinary.MinTryteValue))
		if err != nil {
			return nil, err
		}
		copy(segment, chained)
	}
	k := sponge.NewKerl()
	if err := k.Absorb(buf); err != nil {
		return nil, err
	}
	return k.Squeeze(sponge.HashTrits)
}

// ValidateSignatures checks signature fragments against the signing address
// and the bundle hash they claim to sign.
func ValidateSignatures(address trinary.Trytes, fragments []trinary.Trytes, bundleHash trinary.Trytes) (bool, error) {
	if len(fragments) == 0 {
		return false, fmt.Errorf("%w: no signature fragments", ErrInvalidFragmentLength)
	}
	normalized, err := NormalizedBundleHash(bundleHash)
	if err != nil {
		return false, err
	}

	digests := make(trinary.Trits, 0, len(fragments)*sponge.HashTrits)
	for i, fragment := range fragments {
		fragTrits, err := trinary.TrytesToTrits(fragment)
		if err != nil {
			return false, err
		}
		part := normalized[(i%3)*SegmentsPerFragment : ((i%3)+1)*SegmentsPerFragment]
		digest, err := Digest(part, fragTrits)
		if err != nil {
			return false, err
		}
		digests = append(digests, digest...)
	}

	addrTrits, err := AddressFromDigests(digests)
	if err != nil {
		return false, err
	}
	derived, err := trinary.TritsToTrytes(addrTrits)
	if err != nil {
		return false, err
	}
	return derived == address, nil
}

func hashChain(segment trinary.Trits, rounds int) (trinary.Trits, error) {
	cur := make(trinary.Trits, len(segment))
	copy(cur, segment)
	k := sponge.NewKerl()
	for r := 0; r < rounds; r++ {
		k.Reset()
		if err := k.Absorb(cur); err != nil {
			return nil, err
		}
		next, err := k.Squeeze(sponge.HashTrits)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
