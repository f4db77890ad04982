package authz

import (
	"context"
	"log/slog"
	"sync"

	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
)

// Service is the concrete role table backing the Gate and AccountDirectory
// interfaces. Grants are in-memory; the table is small (module addresses,
// a handful of operators) and reloaded from configuration at startup.
type Service struct {
	mu         sync.RWMutex
	admins     map[id.Address]bool
	grants     map[id.Address]map[id.Capability]bool
	authorized map[id.Address]bool
	logger     *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for grant auditing.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService builds a role table with the given initial administrators.
func NewService(admins []id.Address, opts ...Option) *Service {
	s := &Service{
		admins:     make(map[id.Address]bool),
		grants:     make(map[id.Address]map[id.Capability]bool),
		authorized: make(map[id.Address]bool),
	}
	for _, a := range admins {
		s.admins[a] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasCapability implements Gate. Admins hold every capability.
func (s *Service) HasCapability(_ context.Context, account id.Address, capability id.Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admins[account] {
		return true
	}
	return s.grants[account][capability]
}

// IsAdmin implements Gate.
func (s *Service) IsAdmin(_ context.Context, account id.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins[account]
}

// Grant gives an account a capability. Only admins may grant.
func (s *Service) Grant(ctx context.Context, actor, account id.Address, capability id.Capability) error {
	if !s.IsAdmin(ctx, actor) {
		return dErrors.New(dErrors.CodeNotAuthorized, "only admins may grant capabilities")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grants[account] == nil {
		s.grants[account] = make(map[id.Capability]bool)
	}
	s.grants[account][capability] = true
	if s.logger != nil {
		s.logger.InfoContext(ctx, "capability granted",
			"actor", actor,
			"account", account,
			"capability", capability,
		)
	}
	return nil
}

// Revoke removes a capability grant. Revoking an absent grant is a no-op.
func (s *Service) Revoke(ctx context.Context, actor, account id.Address, capability id.Capability) error {
	if !s.IsAdmin(ctx, actor) {
		return dErrors.New(dErrors.CodeNotAuthorized, "only admins may revoke capabilities")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants[account], capability)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "capability revoked",
			"actor", actor,
			"account", account,
			"capability", capability,
		)
	}
	return nil
}

// AuthorizeAccount whitelists a customer account for the instrument.
func (s *Service) AuthorizeAccount(ctx context.Context, actor, account id.Address) error {
	if !s.IsAdmin(ctx, actor) {
		return dErrors.New(dErrors.CodeNotAuthorized, "only admins may authorize accounts")
	}
	if account.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "account address is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized[account] = true
	return nil
}

// DeauthorizeAccount removes a customer account from the whitelist.
func (s *Service) DeauthorizeAccount(ctx context.Context, actor, account id.Address) error {
	if !s.IsAdmin(ctx, actor) {
		return dErrors.New(dErrors.CodeNotAuthorized, "only admins may deauthorize accounts")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authorized, account)
	return nil
}

// IsAccountAuthorized implements AccountDirectory.
func (s *Service) IsAccountAuthorized(_ context.Context, account id.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorized[account]
}

// AuthorizedAccountsCount returns the size of the customer whitelist.
func (s *Service) AuthorizedAccountsCount(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.authorized)
}
