package pow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tanglekit/walletcore/internal/bundle"
	"github.com/tanglekit/walletcore/internal/trinary"
)

func testTransaction() *bundle.Transaction {
	return &bundle.Transaction{
		Address:   trinary.Trytes(strings.Repeat("F", 81)),
		Value:     42,
		Tag:       "POWTEST",
		Timestamp: 1700000000,
	}
}

func hashWeight(t *testing.T, tx *bundle.Transaction) int {
	t.Helper()
	hash, err := tx.Hash()
	if err != nil {
		t.Fatal(err)
	}
	trits, err := trinary.TrytesToTrits(hash)
	if err != nil {
		t.Fatal(err)
	}
	return trailingZeros(trits)
}

func TestSearchFindsNonce(t *testing.T) {
	const mwm = 3
	s := NewStamper(Config{Workers: 2})

	tx := testTransaction()
	trits, err := tx.Trits()
	if err != nil {
		t.Fatal(err)
	}

	nonce, err := s.Search(context.Background(), trits, mwm)
	if err != nil {
		t.Fatal(err)
	}
	if len(nonce) != bundle.TagTrytes {
		t.Fatalf("nonce of %d trytes, want %d", len(nonce), bundle.TagTrytes)
	}

	tx.Nonce = nonce
	if w := hashWeight(t, tx); w < mwm {
		t.Errorf("stamped hash has weight %d, want at least %d", w, mwm)
	}
}

func TestSearchDoesNotMutateInput(t *testing.T) {
	s := NewStamper(Config{Workers: 1})

	tx := testTransaction()
	trits, err := tx.Trits()
	if err != nil {
		t.Fatal(err)
	}
	before := make(trinary.Trits, len(trits))
	copy(before, trits)

	if _, err := s.Search(context.Background(), trits, 1); err != nil {
		t.Fatal(err)
	}
	for i := range trits {
		if trits[i] != before[i] {
			t.Fatalf("input mutated at trit %d", i)
		}
	}
}

func TestSearchCanceled(t *testing.T) {
	s := NewStamper(Config{Workers: 2})

	tx := testTransaction()
	trits, err := tx.Trits()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Search(ctx, trits, 81); !errors.Is(err, ErrPowCanceled) {
		t.Errorf("expected ErrPowCanceled, got %v", err)
	}
}

func TestSearchDeadline(t *testing.T) {
	s := NewStamper(Config{Workers: 1})

	tx := testTransaction()
	trits, err := tx.Trits()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Weight 81 is unreachable; the deadline must end the search.
	if _, err := s.Search(ctx, trits, 81); !errors.Is(err, ErrPowCanceled) {
		t.Errorf("expected ErrPowCanceled, got %v", err)
	}
}

func TestSearchExhausted(t *testing.T) {
	s := NewStamper(Config{Workers: 1, MaxAttempts: 10})

	tx := testTransaction()
	trits, err := tx.Trits()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Search(context.Background(), trits, 81); !errors.Is(err, ErrPowExhausted) {
		t.Errorf("expected ErrPowExhausted, got %v", err)
	}
}

func TestSearchInvalidInputs(t *testing.T) {
	s := NewStamper(Config{})
	ctx := context.Background()

	if _, err := s.Search(ctx, make(trinary.Trits, 100), 3); !errors.Is(err, ErrInvalidTransactionLength) {
		t.Errorf("short input: got %v", err)
	}
	full := make(trinary.Trits, bundle.TransactionTrits)
	if _, err := s.Search(ctx, full, 0); !errors.Is(err, ErrInvalidMinWeightMagnitude) {
		t.Errorf("mwm 0: got %v", err)
	}
	if _, err := s.Search(ctx, full, 244); !errors.Is(err, ErrInvalidMinWeightMagnitude) {
		t.Errorf("mwm 244: got %v", err)
	}
}

func TestAttachChainsEntries(t *testing.T) {
	const mwm = 2
	s := NewStamper(Config{Workers: 2})

	txs := []*bundle.Transaction{
		{Address: trinary.Trytes(strings.Repeat("G", 81)), CurrentIndex: 0, LastIndex: 1},
		{Address: trinary.Trytes(strings.Repeat("H", 81)), CurrentIndex: 1, LastIndex: 1},
	}
	trunk := trinary.Trytes(strings.Repeat("T", 81))
	branch := trinary.Trytes(strings.Repeat("U", 81))

	if err := s.Attach(context.Background(), txs, trunk, branch, mwm); err != nil {
		t.Fatal(err)
	}

	if txs[1].TrunkTransaction != trunk || txs[1].BranchTransaction != branch {
		t.Error("last entry must reference the two tips")
	}

	lastHash, err := txs[1].Hash()
	if err != nil {
		t.Fatal(err)
	}
	if txs[0].TrunkTransaction != lastHash {
		t.Error("first entry must reference its successor's hash")
	}
	if txs[0].BranchTransaction != trunk {
		t.Error("first entry's branch must be the trunk tip")
	}

	for i, tx := range txs {
		if tx.Nonce == "" {
			t.Errorf("entry %d has no nonce", i)
		}
		if tx.AttachmentTimestampUpper != bundle.MaxAttachmentTimestamp {
			t.Errorf("entry %d has wrong attachment upper bound", i)
		}
		if w := hashWeight(t, tx); w < mwm {
			t.Errorf("entry %d stamped with weight %d, want at least %d", i, w, mwm)
		}
	}
}
