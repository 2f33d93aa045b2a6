package pow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanglekit/walletcore/internal/bundle"
	"github.com/tanglekit/walletcore/internal/sponge"
	"github.com/tanglekit/walletcore/internal/trinary"
)

var (
	// ErrPowCanceled is returned when the caller aborts a nonce search.
	ErrPowCanceled = errors.New("pow: search canceled")

	// ErrPowExhausted is returned when the attempt budget runs out before
	// a nonce is found.
	ErrPowExhausted = errors.New("pow: attempt budget exhausted")

	// ErrInvalidTransactionLength is returned for inputs that are not a
	// full serialized transaction.
	ErrInvalidTransactionLength = errors.New("pow: input is not a full transaction")

	// ErrInvalidMinWeightMagnitude is returned for mwm outside (0, 243].
	ErrInvalidMinWeightMagnitude = errors.New("pow: invalid min weight magnitude")
)

// DefaultMaxAttempts bounds a single nonce search. At minimum network
// difficulty the expected attempt count is several orders of magnitude
// below this.
const DefaultMaxAttempts = uint64(1) << 32

// The nonce lives in the final 243-trit Curl block; everything before it is
// absorbed once and reused across attempts.
const (
	nonceBlockOffset = bundle.TransactionTrits - sponge.HashTrits
	nonceInBlock     = bundle.NonceTritOffset - nonceBlockOffset

	// counterTrits is the per-worker search region of the nonce; the
	// remaining high trits carry the worker id, keeping search spaces
	// disjoint.
	counterTrits = bundle.NonceTrits - 6
)

// Config holds stamper parameters.
type Config struct {
	// Workers is the number of parallel search goroutines per entry.
	// Defaults to the CPU count.
	Workers int
	// MaxAttempts is the total hash budget per entry across workers.
	// Defaults to DefaultMaxAttempts.
	MaxAttempts uint64
}

// Stamper searches proof-of-work nonces for bundle entries.
type Stamper struct {
	workers     int
	maxAttempts uint64
	logger      *slog.Logger
}

// NewStamper returns a stamper with defaults filled in.
func NewStamper(cfg Config) *Stamper {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Stamper{
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		logger:      slog.Default().With("component", "pow"),
	}
}

// Search finds a nonce such that the transaction's Curl hash ends in at
// least mwm zero trits. The input is never mutated; the returned nonce is
// the 27-tryte field to place in the transaction. The search is cooperative:
// it stops with ErrPowCanceled when ctx is done and with ErrPowExhausted
// when the attempt budget is spent.
func (s *Stamper) Search(ctx context.Context, txTrits trinary.Trits, mwm int) (trinary.Trytes, error) {
	if len(txTrits) != bundle.TransactionTrits {
		return "", fmt.Errorf("%w: %d trits", ErrInvalidTransactionLength, len(txTrits))
	}
	if mwm <= 0 || mwm > sponge.HashTrits {
		return "", fmt.Errorf("%w: %d", ErrInvalidMinWeightMagnitude, mwm)
	}

	midstate := sponge.NewCurl()
	if err := midstate.Absorb(txTrits[:nonceBlockOffset]); err != nil {
		return "", err
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		attempts atomic.Uint64
		results  = make(chan trinary.Trits, s.workers)
	)

	start := time.Now()
	for w := 0; w < s.workers; w++ {
		block := make(trinary.Trits, sponge.HashTrits)
		copy(block, txTrits[nonceBlockOffset:])
		// Tag the high nonce trits with the worker id.
		copy(block[nonceInBlock+counterTrits:], trinary.IntToTrits(int64(w+1), bundle.NonceTrits-counterTrits))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if nonce := s.searchWorker(searchCtx, midstate, block, mwm, &attempts); nonce != nil {
				results <- nonce
				cancel()
			}
		}()
	}
	wg.Wait()
	close(results)

	if nonce, ok := <-results; ok {
		s.logger.Debug("nonce found",
			"mwm", mwm,
			"attempts", attempts.Load(),
			"elapsed", time.Since(start),
		)
		return trinary.TritsToTrytes(nonce)
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %v", ErrPowCanceled, ctx.Err())
	}
	return "", fmt.Errorf("%w: after %d attempts", ErrPowExhausted, attempts.Load())
}

func (s *Stamper) searchWorker(ctx context.Context, midstate *sponge.Curl, block trinary.Trits, mwm int, attempts *atomic.Uint64) trinary.Trits {
	counter := block[nonceInBlock : nonceInBlock+counterTrits]
	one := trinary.IntToTrits(1, counterTrits)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if attempts.Add(1) > s.maxAttempts {
			return nil
		}

		copy(counter, trinary.AddTrits(counter, one))

		c := midstate.Clone()
		if err := c.Absorb(block); err != nil {
			return nil
		}
		hash, err := c.Squeeze(sponge.HashTrits)
		if err != nil {
			return nil
		}
		if trailingZeros(hash) >= mwm {
			nonce := make(trinary.Trits, bundle.NonceTrits)
			copy(nonce, block[nonceInBlock:])
			return nonce
		}
	}
}

func trailingZeros(hash trinary.Trits) int {
	n := 0
	for i := len(hash) - 1; i >= 0 && hash[i] == 0; i-- {
		n++
	}
	return n
}

// Attach chains the bundle's transactions for submission and stamps each
// one: the entry with the highest index references the two tips, every
// earlier entry references its successor's hash. Entries are only modified
// once their nonce has been found.
func (s *Stamper) Attach(ctx context.Context, txs []*bundle.Transaction, trunk, branch trinary.Trytes, mwm int) error {
	if len(txs) == 0 {
		return fmt.Errorf("%w: empty bundle", ErrInvalidTransactionLength)
	}
	if err := trinary.ValidTrytes(trunk); err != nil {
		return err
	}
	if err := trinary.ValidTrytes(branch); err != nil {
		return err
	}

	prev := trunk
	for i := len(txs) - 1; i >= 0; i-- {
		work := *txs[i]
		if i == len(txs)-1 {
			work.TrunkTransaction = trunk
			work.BranchTransaction = branch
		} else {
			work.TrunkTransaction = prev
			work.BranchTransaction = trunk
		}
		work.AttachmentTimestamp = time.Now().UnixMilli()
		work.AttachmentTimestampLower = 0
		work.AttachmentTimestampUpper = bundle.MaxAttachmentTimestamp

		trits, err := work.Trits()
		if err != nil {
			return err
		}
		nonce, err := s.Search(ctx, trits, mwm)
		if err != nil {
			return fmt.Errorf("stamp entry %d: %w", i, err)
		}
		work.Nonce = nonce
		*txs[i] = work

		prev, err = txs[i].Hash()
		if err != nil {
			return err
		}
	}
	return nil
}
