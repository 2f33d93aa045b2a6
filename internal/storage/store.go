package storage

// WatchStore manages the set of watched addresses.
type WatchStore interface {
	// Add adds an address to the watch set.
	Add(address string) error
	// Remove removes an address from the watch set.
	Remove(address string) error
	// List returns all currently watched addresses.
	List() ([]string, error)
	// Contains checks if an address is in the watch set.
	Contains(address string) (bool, error)
}

// UsedKeyStore records which one-time signing keys have been consumed,
// keyed by the address they control.
type UsedKeyStore interface {
	// MarkUsed records the address's key as consumed and reports whether
	// it had been consumed before.
	MarkUsed(address string) (bool, error)
	// IsUsed reports whether the address's key has been consumed.
	IsUsed(address string) (bool, error)
}
