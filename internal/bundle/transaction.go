package bundle

import (
	"github.com/tanglekit/walletcore/internal/sponge"
	"github.com/tanglekit/walletcore/internal/trinary"
)

// Legacy wire layout of a transaction, in trits. The field order and sizes
// are network constants; the essence region (address through last index) is
// what the bundle hash commits to.
const (
	// TransactionTrits is the full serialized size.
	TransactionTrits = 8019

	// TransactionTrytes is the full serialized size in trytes.
	TransactionTrytes = TransactionTrits / trinary.TritsPerTryte

	// SignatureMessageFragmentTrytes is the size of the signature/message field.
	SignatureMessageFragmentTrytes = 2187

	// TagTrytes is the size of the tag, obsolete tag and nonce fields.
	TagTrytes = 27

	sigOffset          = 0
	sigTrits           = 6561
	addressOffset      = sigOffset + sigTrits
	addressTrits       = 243
	valueOffset        = addressOffset + addressTrits
	valueTrits         = 81
	obsoleteTagOffset  = valueOffset + valueTrits
	obsoleteTagTrits   = 81
	timestampOffset    = obsoleteTagOffset + obsoleteTagTrits
	timestampTrits     = 27
	currentIndexOffset = timestampOffset + timestampTrits
	currentIndexTrits  = 27
	lastIndexOffset    = currentIndexOffset + currentIndexTrits
	lastIndexTrits     = 27
	bundleOffset       = lastIndexOffset + lastIndexTrits
	bundleTrits        = 243
	trunkOffset        = bundleOffset + bundleTrits
	trunkTrits         = 243
	branchOffset       = trunkOffset + trunkTrits
	branchTrits        = 243
	tagOffset          = branchOffset + branchTrits
	tagTrits           = 81
	attachmentTsOffset = tagOffset + tagTrits
	attachmentTsTrits  = 27
	attachmentLBOffset = attachmentTsOffset + attachmentTsTrits
	attachmentUBOffset = attachmentLBOffset + attachmentTsTrits

	// NonceTritOffset marks the proof-of-work search region: the final 81
	// trits of the transaction.
	NonceTritOffset = attachmentUBOffset + attachmentTsTrits
	NonceTrits      = 81

	// EssenceTritOffset and EssenceTrits delimit the region absorbed into
	// the bundle hash.
	EssenceTritOffset = addressOffset
	EssenceTrits      = addressTrits + valueTrits + obsoleteTagTrits +
		timestampTrits + currentIndexTrits + lastIndexTrits
)

// MaxAttachmentTimestamp is the largest value representable in the 27-trit
// attachment timestamp bound fields.
const MaxAttachmentTimestamp = 3812798742493

// Transaction is one entry of a bundle in its wire form.
type Transaction struct {
	SignatureMessageFragment trinary.Trytes
	Address                  trinary.Trytes
	Value                    int64
	ObsoleteTag              trinary.Trytes
	Timestamp                int64
	CurrentIndex             uint64
	LastIndex                uint64
	Bundle                   trinary.Trytes
	TrunkTransaction         trinary.Trytes
	BranchTransaction        trinary.Trytes
	Tag                      trinary.Trytes
	AttachmentTimestamp      int64
	AttachmentTimestampLower int64
	AttachmentTimestampUpper int64
	Nonce                    trinary.Trytes
}

// Trits serializes the transaction into its 8019-trit wire form.
func (t *Transaction) Trits() (trinary.Trits, error) {
	out := make(trinary.Trits, TransactionTrits)

	put := func(offset, size int, field trinary.Trytes, padTo int) error {
		trits, err := trinary.TrytesToTrits(trinary.Pad(field, padTo))
		if err != nil {
			return err
		}
		copy(out[offset:offset+size], trits)
		return nil
	}

	if err := put(sigOffset, sigTrits, t.SignatureMessageFragment, SignatureMessageFragmentTrytes); err != nil {
		return nil, err
	}
	if err := put(addressOffset, addressTrits, t.Address, addressTrits/trinary.TritsPerTryte); err != nil {
		return nil, err
	}
	copy(out[valueOffset:], trinary.IntToTrits(t.Value, valueTrits))
	if err := put(obsoleteTagOffset, obsoleteTagTrits, t.ObsoleteTag, TagTrytes); err != nil {
		return nil, err
	}
	copy(out[timestampOffset:], trinary.IntToTrits(t.Timestamp, timestampTrits))
	copy(out[currentIndexOffset:], trinary.IntToTrits(int64(t.CurrentIndex), currentIndexTrits))
	copy(out[lastIndexOffset:], trinary.IntToTrits(int64(t.LastIndex), lastIndexTrits))
	if err := put(bundleOffset, bundleTrits, t.Bundle, bundleTrits/trinary.TritsPerTryte); err != nil {
		return nil, err
	}
	if err := put(trunkOffset, trunkTrits, t.TrunkTransaction, trunkTrits/trinary.TritsPerTryte); err != nil {
		return nil, err
	}
	if err := put(branchOffset, branchTrits, t.BranchTransaction, branchTrits/trinary.TritsPerTryte); err != nil {
		return nil, err
	}
	if err := put(tagOffset, tagTrits, t.Tag, TagTrytes); err != nil {
		return nil, err
	}
	copy(out[attachmentTsOffset:], trinary.IntToTrits(t.AttachmentTimestamp, attachmentTsTrits))
	copy(out[attachmentLBOffset:], trinary.IntToTrits(t.AttachmentTimestampLower, attachmentTsTrits))
	copy(out[attachmentUBOffset:], trinary.IntToTrits(t.AttachmentTimestampUpper, attachmentTsTrits))
	if err := put(NonceTritOffset, NonceTrits, t.Nonce, TagTrytes); err != nil {
		return nil, err
	}
	return out, nil
}

// Trytes serializes the transaction into its 2673-tryte wire form.
func (t *Transaction) Trytes() (trinary.Trytes, error) {
	trits, err := t.Trits()
	if err != nil {
		return "", err
	}
	return trinary.TritsToTrytes(trits)
}

// Hash computes the transaction hash over the full wire form.
func (t *Transaction) Hash() (trinary.Trytes, error) {
	trits, err := t.Trits()
	if err != nil {
		return "", err
	}
	c := sponge.NewCurl()
	if err := c.Absorb(trits); err != nil {
		return "", err
	}
	hashTrits, err := c.Squeeze(sponge.HashTrits)
	if err != nil {
		return "", err
	}
	return trinary.TritsToTrytes(hashTrits)
}

// essenceTrits returns the region of the wire form the bundle hash commits to.
func (t *Transaction) essenceTrits() (trinary.Trits, error) {
	full, err := t.Trits()
	if err != nil {
		return nil, err
	}
	return full[EssenceTritOffset : EssenceTritOffset+EssenceTrits], nil
}
