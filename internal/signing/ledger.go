package signing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tanglekit/walletcore/internal/storage"
)

// ErrKeyReused is returned when a signing operation would use a one-time key
// that has already produced a signature. Reuse leaks key material and must
// never be allowed to proceed silently.
var ErrKeyReused = errors.New("signing: one-time key already used")

// KeyLedger enforces the one-time-key invariant across the process: an
// address may be reserved for signing exactly once. The backing store decides
// durability; the ledger provides the atomic check-and-mark.
type KeyLedger struct {
	mu    sync.Mutex
	store storage.UsedKeyStore
}

// NewKeyLedger wraps a used-key store.
func NewKeyLedger(store storage.UsedKeyStore) *KeyLedger {
	return &KeyLedger{store: store}
}

// Reserve marks the address's key as consumed. It fails with ErrKeyReused if
// the key was reserved before.
func (l *KeyLedger) Reserve(address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	used, err := l.store.MarkUsed(address)
	if err != nil {
		return fmt.Errorf("used-key store: %w", err)
	}
	if used {
		return fmt.Errorf("%w: %s", ErrKeyReused, address)
	}
	return nil
}

// IsUsed reports whether the address's key has been consumed.
func (l *KeyLedger) IsUsed(address string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.IsUsed(address)
}
