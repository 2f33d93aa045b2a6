package bundle

import (
	"errors"
	"fmt"
	"time"

	"github.com/tanglekit/walletcore/internal/address"
	"github.com/tanglekit/walletcore/internal/signing"
	"github.com/tanglekit/walletcore/internal/sponge"
	"github.com/tanglekit/walletcore/internal/trinary"
)

var (
	// ErrUnbalancedBundle is returned by Finalize when entry values do not
	// sum to zero.
	ErrUnbalancedBundle = errors.New("bundle: entry values do not sum to zero")

	// ErrEmptyBundle is returned by Finalize on a bundle with no entries.
	ErrEmptyBundle = errors.New("bundle: no entries")

	// ErrBundleFinalized is returned when mutating a finalized bundle.
	ErrBundleFinalized = errors.New("bundle: immutable after finalize")

	// ErrBundleNotFinalized is returned when an operation requires the
	// bundle hash to exist.
	ErrBundleNotFinalized = errors.New("bundle: not finalized")

	// ErrNotInput is returned when signatures are attached to entries that
	// were not added as an input.
	ErrNotInput = errors.New("bundle: entry is not a signable input")

	// ErrInvalidValue is returned for negative outputs or non-positive
	// input balances.
	ErrInvalidValue = errors.New("bundle: invalid entry value")

	// ErrInvalidTag is returned for tags over 27 trytes or outside the alphabet.
	ErrInvalidTag = errors.New("bundle: invalid tag")
)

// EmptyTag is the default 27-tryte tag.
const EmptyTag = trinary.Trytes("999999999999999999999999999")

// Bundle accumulates transfer entries, balances them and computes the bundle
// hash. Entries are hashed and signed in append order; after Finalize the
// bundle is immutable except for signature attachment on input entries.
type Bundle struct {
	txs       []*Transaction
	inputs    map[int]int // first entry index -> entry count
	finalized bool
	hash      trinary.Trytes
}

// New returns an empty bundle.
func New() *Bundle {
	return &Bundle{inputs: make(map[int]int)}
}

// Len returns the number of entries.
func (b *Bundle) Len() int {
	return len(b.txs)
}

// Transactions exposes the entries in append order.
func (b *Bundle) Transactions() []*Transaction {
	return b.txs
}

// Hash returns the bundle hash computed by Finalize.
func (b *Bundle) Hash() (trinary.Trytes, error) {
	if !b.finalized {
		return "", ErrBundleNotFinalized
	}
	return b.hash, nil
}

// AddOutput appends entries sending value to addr. A message is encoded into
// the signature/message field and spread over as many zero-value entries as
// it needs; the first entry carries the value.
func (b *Bundle) AddOutput(addr trinary.Trytes, value int64, message string, tag trinary.Trytes) error {
	if b.finalized {
		return ErrBundleFinalized
	}
	if value < 0 {
		return fmt.Errorf("%w: output value %d", ErrInvalidValue, value)
	}
	bare, err := address.Strip(addr)
	if err != nil {
		return err
	}
	tag, err = normalizeTag(tag)
	if err != nil {
		return err
	}

	fragments := messageFragments(message)
	for i, fragment := range fragments {
		tx := &Transaction{
			Address:                  bare,
			SignatureMessageFragment: fragment,
			ObsoleteTag:              tag,
			Tag:                      tag,
		}
		if i == 0 {
			tx.Value = value
		}
		b.txs = append(b.txs, tx)
	}
	return nil
}

// AddInput appends the entries spending balance from addr: one entry per
// security level, with the full negative value on the first. It returns the
// index of the first entry so signature fragments can be attached later.
func (b *Bundle) AddInput(addr trinary.Trytes, balance int64, security signing.SecurityLevel, tag trinary.Trytes) (int, error) {
	if b.finalized {
		return 0, ErrBundleFinalized
	}
	if balance <= 0 {
		return 0, fmt.Errorf("%w: input balance %d", ErrInvalidValue, balance)
	}
	if !security.Valid() {
		return 0, fmt.Errorf("%w: %d", signing.ErrInvalidSecurityLevel, security)
	}
	bare, err := address.Strip(addr)
	if err != nil {
		return 0, err
	}
	tag, err = normalizeTag(tag)
	if err != nil {
		return 0, err
	}

	start := len(b.txs)
	for i := 0; i < int(security); i++ {
		tx := &Transaction{
			Address:     bare,
			ObsoleteTag: tag,
			Tag:         tag,
		}
		if i == 0 {
			tx.Value = -balance
		}
		b.txs = append(b.txs, tx)
	}
	b.inputs[start] = int(security)
	return start, nil
}

// Finalize checks the balance invariant, assigns indices and timestamps and
// computes the bundle hash. The obsolete tag of the first entry is bumped
// until the normalized hash is free of the maximum tryte value, so that no
// signature fragment is forced to expose an untouched key segment.
func (b *Bundle) Finalize() error {
	if b.finalized {
		return ErrBundleFinalized
	}
	if len(b.txs) == 0 {
		return ErrEmptyBundle
	}

	var sum int64
	for _, tx := range b.txs {
		sum += tx.Value
	}
	if sum != 0 {
		return fmt.Errorf("%w: sum is %d", ErrUnbalancedBundle, sum)
	}

	now := time.Now().Unix()
	last := uint64(len(b.txs) - 1)
	for i, tx := range b.txs {
		tx.Timestamp = now
		tx.CurrentIndex = uint64(i)
		tx.LastIndex = last
	}

	for {
		hash, err := b.computeHash()
		if err != nil {
			return err
		}
		normalized, err := signing.NormalizedBundleHash(hash)
		if err != nil {
			return err
		}
		if !containsMaxValue(normalized) {
			b.hash = hash
			break
		}
		bumped, err := incrementTag(b.txs[0].ObsoleteTag)
		if err != nil {
			return err
		}
		b.txs[0].ObsoleteTag = bumped
	}

	for _, tx := range b.txs {
		tx.Bundle = b.hash
	}
	b.finalized = true
	return nil
}

// AttachSignatures places signature fragments on the input entries starting
// at the index returned by AddInput.
func (b *Bundle) AttachSignatures(start int, fragments []trinary.Trytes) error {
	if !b.finalized {
		return ErrBundleNotFinalized
	}
	count, ok := b.inputs[start]
	if !ok {
		return fmt.Errorf("%w: no input at entry %d", ErrNotInput, start)
	}
	if len(fragments) != count {
		return fmt.Errorf("%w: input at %d needs %d fragments, got %d", ErrNotInput, start, count, len(fragments))
	}
	for i, fragment := range fragments {
		if len(fragment) != SignatureMessageFragmentTrytes {
			return fmt.Errorf("%w: fragment of %d trytes", signing.ErrInvalidFragmentLength, len(fragment))
		}
		b.txs[start+i].SignatureMessageFragment = fragment
	}
	return nil
}

func (b *Bundle) computeHash() (trinary.Trytes, error) {
	k := sponge.NewKerl()
	for _, tx := range b.txs {
		essence, err := tx.essenceTrits()
		if err != nil {
			return "", err
		}
		if err := k.Absorb(essence); err != nil {
			return "", err
		}
	}
	trits, err := k.Squeeze(sponge.HashTrits)
	if err != nil {
		return "", err
	}
	return trinary.TritsToTrytes(trits)
}

func normalizeTag(tag trinary.Trytes) (trinary.Trytes, error) {
	if len(tag) > TagTrytes {
		return "", fmt.Errorf("%w: %d trytes", ErrInvalidTag, len(tag))
	}
	if err := trinary.ValidTrytes(tag); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	return trinary.Pad(tag, TagTrytes), nil
}

func containsMaxValue(normalized []int8) bool {
	for _, v := range normalized {
		if v == trinary.MaxTryteValue {
			return true
		}
	}
	return false
}

func incrementTag(tag trinary.Trytes) (trinary.Trytes, error) {
	trits, err := trinary.TrytesToTrits(trinary.Pad(tag, TagTrytes))
	if err != nil {
		return "", err
	}
	one := trinary.IntToTrits(1, len(trits))
	return trinary.TritsToTrytes(trinary.AddTrits(trits, one))
}

func messageFragments(message string) []trinary.Trytes {
	encoded := trinary.BytesToTrytes([]byte(message))
	if len(encoded) == 0 {
		return []trinary.Trytes{""}
	}
	var out []trinary.Trytes
	for len(encoded) > 0 {
		n := len(encoded)
		if n > SignatureMessageFragmentTrytes {
			n = SignatureMessageFragmentTrytes
		}
		out = append(out, encoded[:n])
		encoded = encoded[n:]
	}
	return out
}
