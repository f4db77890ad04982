package store

import (
	"context"
	"sync"

	"xftledger/internal/ledger/models"
	id "xftledger/pkg/domain"
	"xftledger/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger state in maps. It favors clarity over
// performance and is the reference implementation for the atomicity
// contract: Apply writes everything under one lock acquisition.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.Address]models.Account
	state    models.State
}

// NewInMemory returns a store holding the initial ledger state.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[id.Address]models.Account),
		state:    models.NewState(),
	}
}

func (s *InMemoryStore) Account(_ context.Context, addr id.Address) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.accounts[addr]; ok {
		return acct, nil
	}
	return models.Account{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) State(_ context.Context) (models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *InMemoryStore) Apply(_ context.Context, change models.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range change.Accounts {
		s.accounts[acct.Address] = acct
	}
	if change.State != nil {
		s.state = *change.State
	}
	return nil
}

func (s *InMemoryStore) NonZeroAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		if !acct.Shares.IsZero() {
			out = append(out, acct)
		}
	}
	return out, nil
}
