package store

import (
	"context"
	"sync"

	id "xftledger/pkg/domain"
)

// InMemoryNonceStore keeps nonces in process memory.
type InMemoryNonceStore struct {
	mu     sync.RWMutex
	nonces map[id.Address]uint64
}

func NewInMemoryNonceStore() *InMemoryNonceStore {
	return &InMemoryNonceStore{nonces: make(map[id.Address]uint64)}
}

func (s *InMemoryNonceStore) Nonce(_ context.Context, owner id.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonces[owner], nil
}

func (s *InMemoryNonceStore) Increment(_ context.Context, owner id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[owner]++
	return nil
}
