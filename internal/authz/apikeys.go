package authz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/bcrypt"

	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/platform/sentinel"
)

// APIKeyStore issues and verifies admin API key secrets. Secrets are
// returned exactly once at issuance and stored only as bcrypt hashes.
type APIKeyStore struct {
	mu     sync.RWMutex
	hashes map[id.Address][]byte
}

// NewAPIKeyStore returns an empty API key store.
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{hashes: make(map[id.Address][]byte)}
}

// Issue creates a new secret for the operator account and returns it. Any
// previous secret for the account is invalidated.
func (s *APIKeyStore) Issue(_ context.Context, account id.Address) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate api key")
	}
	secret := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hash api key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[account] = hash
	return secret, nil
}

// Verify checks a presented secret against the stored hash.
func (s *APIKeyStore) Verify(_ context.Context, account id.Address, secret string) error {
	s.mu.RLock()
	hash, ok := s.hashes[account]
	s.mu.RUnlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "api key mismatch")
	}
	return nil
}

// Revoke deletes the secret for an account. Revoking an absent key is a
// no-op.
func (s *APIKeyStore) Revoke(_ context.Context, account id.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, account)
}
