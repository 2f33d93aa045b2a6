package storage

import "sync"

// MemoryWatchStore is an in-memory WatchStore.
type MemoryWatchStore struct {
	mu    sync.RWMutex
	addrs map[string]bool
}

func NewMemoryWatchStore() *MemoryWatchStore {
	return &MemoryWatchStore{addrs: make(map[string]bool)}
}

func (s *MemoryWatchStore) Add(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrs[address] = true
	return nil
}

func (s *MemoryWatchStore) Remove(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.addrs, address)
	return nil
}

func (s *MemoryWatchStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.addrs))
	for addr := range s.addrs {
		result = append(result, addr)
	}
	return result, nil
}

func (s *MemoryWatchStore) Contains(address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addrs[address], nil
}

// MemoryUsedKeyStore is an in-memory UsedKeyStore. State does not survive a
// restart; durable deployments should back this with persistent storage.
type MemoryUsedKeyStore struct {
	mu   sync.Mutex
	used map[string]bool
}

func NewMemoryUsedKeyStore() *MemoryUsedKeyStore {
	return &MemoryUsedKeyStore{used: make(map[string]bool)}
}

func (s *MemoryUsedKeyStore) MarkUsed(address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.used[address]
	s.used[address] = true
	return prev, nil
}

func (s *MemoryUsedKeyStore) IsUsed(address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used[address], nil
}
