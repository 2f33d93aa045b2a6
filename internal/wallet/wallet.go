package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tanglekit/walletcore/internal/address"
	"github.com/tanglekit/walletcore/internal/bundle"
	"github.com/tanglekit/walletcore/internal/config"
	"github.com/tanglekit/walletcore/internal/pow"
	"github.com/tanglekit/walletcore/internal/signing"
	"github.com/tanglekit/walletcore/internal/trinary"
	"github.com/tanglekit/walletcore/pkg/models"
)

var (
	// ErrInsufficientBalance is returned when the seed's funded addresses
	// cannot cover the requested transfer value.
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")

	// ErrNoTransfers is returned when a send is requested with no outputs.
	ErrNoTransfers = errors.New("wallet: no transfers")
)

// zeroRunLimit is how many consecutive unfunded addresses the input scan
// tolerates before concluding the seed holds nothing further.
const zeroRunLimit = 5

// NodeAPI is the slice of the node command API the wallet needs.
type NodeAPI interface {
	GetNodeInfo(ctx context.Context) (*models.NodeInfo, error)
	GetTransactionsToApprove(ctx context.Context, depth uint64) (trunk, branch string, err error)
	GetBalances(ctx context.Context, addresses []string) ([]uint64, uint32, error)
	BroadcastTransactions(ctx context.Context, trytes []string) error
	StoreTransactions(ctx context.Context, trytes []string) error
}

// Wallet ties derivation, bundle construction, signing, proof of work and
// node submission together. It enforces one-time key discipline through its
// ledger: an address that has signed once is refused for further spends.
type Wallet struct {
	node    NodeAPI
	stamper *pow.Stamper
	ledger  *signing.KeyLedger
	cfg     config.Config
	logger  *slog.Logger
}

// New returns a wallet using the given node and proof-of-work stamper.
func New(cfg config.Config, node NodeAPI, stamper *pow.Stamper, ledger *signing.KeyLedger) *Wallet {
	return &Wallet{
		node:    node,
		stamper: stamper,
		ledger:  ledger,
		cfg:     cfg,
		logger:  slog.Default().With("component", "wallet"),
	}
}

// GetNodeInfo returns the connected node's state.
func (w *Wallet) GetNodeInfo(ctx context.Context) (*models.NodeInfo, error) {
	return w.node.GetNodeInfo(ctx)
}

// NewAddress derives the checksummed address at the given key index.
func (w *Wallet) NewAddress(seed *Seed, index uint64, security signing.SecurityLevel) (trinary.Trytes, error) {
	seedTrytes, err := seed.Trytes()
	if err != nil {
		return "", err
	}
	bare, err := address.Generate(seedTrytes, index, security)
	if err != nil {
		return "", err
	}
	return address.WithChecksum(bare)
}

// CollectInputs scans addresses from the start index until it has gathered
// enough confirmed balance to cover threshold. The scan stops after a run of
// unfunded addresses, on the assumption that a wallet's funded indices are
// contiguous up to small gaps.
func (w *Wallet) CollectInputs(ctx context.Context, seed *Seed, start, threshold uint64) ([]models.Input, uint64, error) {
	seedTrytes, err := seed.Trytes()
	if err != nil {
		return nil, 0, err
	}

	var (
		inputs  []models.Input
		total   uint64
		zeroRun int
	)
	for index := start; ; index++ {
		addr, err := address.Generate(seedTrytes, index, w.cfg.SecurityLevel)
		if err != nil {
			return nil, 0, err
		}
		balances, _, err := w.node.GetBalances(ctx, []string{string(addr)})
		if err != nil {
			return nil, 0, err
		}
		balance := balances[0]

		if balance == 0 {
			zeroRun++
			if zeroRun >= zeroRunLimit {
				return nil, 0, fmt.Errorf("%w: found %d of %d after scanning to index %d",
					ErrInsufficientBalance, total, threshold, index)
			}
			continue
		}
		zeroRun = 0

		used, err := w.ledger.IsUsed(string(addr))
		if err != nil {
			return nil, 0, err
		}
		if used {
			w.logger.Warn("skipping spent address", "index", index)
			continue
		}

		inputs = append(inputs, models.Input{
			Address:  string(addr),
			Balance:  balance,
			KeyIndex: index,
			Security: int(w.cfg.SecurityLevel),
		})
		total += balance
		if total >= threshold {
			return inputs, total, nil
		}
	}
}

// PrepareTransfers builds, finalizes and signs a bundle from the outputs and
// inputs. The remainder, if any, goes to remainderAddr; with an empty
// remainderAddr a fresh address is derived just past the highest input index.
// Every input address is re-derived from the seed before signing, and its
// one-time key is reserved in the ledger, so a mismatched or reused key
// aborts before anything is signed.
func (w *Wallet) PrepareTransfers(seed *Seed, transfers []models.Transfer, inputs []models.Input, remainderAddr trinary.Trytes) (*bundle.Bundle, error) {
	if len(transfers) == 0 {
		return nil, ErrNoTransfers
	}
	seedTrytes, err := seed.Trytes()
	if err != nil {
		return nil, err
	}

	b := bundle.New()
	var totalOut int64
	for _, tr := range transfers {
		if err := b.AddOutput(trinary.Trytes(tr.Address), tr.Value, tr.Message, trinary.Trytes(tr.Tag)); err != nil {
			return nil, err
		}
		totalOut += tr.Value
	}

	var (
		totalIn  int64
		starts   = make([]int, len(inputs))
		maxIndex uint64
	)
	for i, in := range inputs {
		security := signing.SecurityLevel(in.Security)
		derived, err := address.Generate(seedTrytes, in.KeyIndex, security)
		if err != nil {
			return nil, err
		}
		bare, err := address.Strip(trinary.Trytes(in.Address))
		if err != nil {
			return nil, err
		}
		if derived != bare {
			return nil, fmt.Errorf("%w: input at key index %d", signing.ErrKeyMismatch, in.KeyIndex)
		}

		starts[i], err = b.AddInput(bare, int64(in.Balance), security, bundle.EmptyTag)
		if err != nil {
			return nil, err
		}
		totalIn += int64(in.Balance)
		if in.KeyIndex > maxIndex {
			maxIndex = in.KeyIndex
		}
	}

	if totalIn < totalOut {
		return nil, fmt.Errorf("%w: inputs hold %d, outputs need %d", ErrInsufficientBalance, totalIn, totalOut)
	}
	if remainder := totalIn - totalOut; remainder > 0 {
		if remainderAddr == "" {
			remainderAddr, err = address.Generate(seedTrytes, maxIndex+1, w.cfg.SecurityLevel)
			if err != nil {
				return nil, err
			}
		}
		if err := b.AddOutput(remainderAddr, remainder, "", bundle.EmptyTag); err != nil {
			return nil, err
		}
	}

	if err := b.Finalize(); err != nil {
		return nil, err
	}
	if err := w.signInputs(b, seedTrytes, inputs, starts); err != nil {
		return nil, err
	}
	return b, nil
}

// signInputs reserves each input's one-time key and attaches its signature
// fragments to the finalized bundle.
func (w *Wallet) signInputs(b *bundle.Bundle, seedTrytes trinary.Trytes, inputs []models.Input, starts []int) error {
	hash, err := b.Hash()
	if err != nil {
		return err
	}
	normalized, err := signing.NormalizedBundleHash(hash)
	if err != nil {
		return err
	}

	for i, in := range inputs {
		if err := w.ledger.Reserve(in.Address); err != nil {
			return fmt.Errorf("input at key index %d: %w", in.KeyIndex, err)
		}

		subseed, err := signing.Subseed(seedTrytes, in.KeyIndex)
		if err != nil {
			return err
		}
		key, err := signing.Key(subseed, signing.SecurityLevel(in.Security))
		if err != nil {
			return err
		}

		fragments := make([]trinary.Trytes, in.Security)
		for j := 0; j < in.Security; j++ {
			part := normalized[(j%3)*signing.SegmentsPerFragment : ((j%3)+1)*signing.SegmentsPerFragment]
			fragTrits, err := signing.SignatureFragment(part, key[j*signing.KeyFragmentTrits:(j+1)*signing.KeyFragmentTrits])
			if err != nil {
				return err
			}
			fragments[j], err = trinary.TritsToTrytes(fragTrits)
			if err != nil {
				return err
			}
		}
		for k := range key {
			key[k] = 0
		}
		if err := b.AttachSignatures(starts[i], fragments); err != nil {
			return err
		}
	}
	return nil
}

// SendTransfers is the full pipeline: gather inputs for the requested value,
// build and sign the bundle, fetch tips, perform proof of work and submit.
// Zero-value message transfers skip input collection entirely.
func (w *Wallet) SendTransfers(ctx context.Context, seed *Seed, transfers []models.Transfer) (*models.Receipt, error) {
	if len(transfers) == 0 {
		return nil, ErrNoTransfers
	}

	var totalOut int64
	for _, tr := range transfers {
		totalOut += tr.Value
	}

	var inputs []models.Input
	if totalOut > 0 {
		var err error
		inputs, _, err = w.CollectInputs(ctx, seed, 0, uint64(totalOut))
		if err != nil {
			return nil, err
		}
	}

	b, err := w.PrepareTransfers(seed, transfers, inputs, "")
	if err != nil {
		return nil, err
	}

	trunk, branch, err := w.node.GetTransactionsToApprove(ctx, w.cfg.Depth)
	if err != nil {
		return nil, err
	}

	txs := b.Transactions()
	if err := w.stamper.Attach(ctx, txs, trinary.Trytes(trunk), trinary.Trytes(branch), w.cfg.MinWeightMagnitude); err != nil {
		return nil, err
	}

	trytes := make([]string, len(txs))
	hashes := make([]string, len(txs))
	for i, tx := range txs {
		t, err := tx.Trytes()
		if err != nil {
			return nil, err
		}
		h, err := tx.Hash()
		if err != nil {
			return nil, err
		}
		trytes[i] = string(t)
		hashes[i] = string(h)
	}

	if err := w.node.BroadcastTransactions(ctx, trytes); err != nil {
		return nil, err
	}
	if err := w.node.StoreTransactions(ctx, trytes); err != nil {
		return nil, err
	}

	hash, err := b.Hash()
	if err != nil {
		return nil, err
	}
	w.logger.Info("bundle submitted",
		"bundle", string(hash),
		"entries", len(txs),
		"value", totalOut,
	)
	return &models.Receipt{
		BundleHash:          string(hash),
		TailTransactionHash: hashes[0],
		Transactions:        hashes,
	}, nil
}

// ValidateBundleSignatures checks every input signature of a finalized,
// signed bundle against its address.
func ValidateBundleSignatures(b *bundle.Bundle) (bool, error) {
	hash, err := b.Hash()
	if err != nil {
		return false, err
	}
	txs := b.Transactions()

	for i := 0; i < len(txs); i++ {
		if txs[i].Value >= 0 {
			continue
		}
		addr := txs[i].Address
		fragments := []trinary.Trytes{txs[i].SignatureMessageFragment}
		for j := i + 1; j < len(txs) && txs[j].Address == addr && txs[j].Value == 0 &&
			len(txs[j].SignatureMessageFragment) == signing.SignatureFragmentTrytes; j++ {
			fragments = append(fragments, txs[j].SignatureMessageFragment)
			i = j
		}
		ok, err := signing.ValidateSignatures(addr, fragments, hash)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
