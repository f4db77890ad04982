// Package registry resolves module and token identifiers to deployed
// addresses. The core reads it to locate collaborators; only deployment
// tooling writes to it.
package registry

import (
	"context"
	"sync"

	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
)

// ModuleEntry is one registered module with its deployment version. The
// version increments each time the module is re-registered at a new
// address, so callers can detect upgrades.
type ModuleEntry struct {
	Address id.Address
	Version uint64
}

// ModuleRegistry maps module ids to their deployed addresses.
type ModuleRegistry struct {
	mu      sync.RWMutex
	modules map[id.ModuleID]ModuleEntry
}

func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{modules: make(map[id.ModuleID]ModuleEntry)}
}

// RegisterModule records a module address, bumping the version on
// re-registration.
func (r *ModuleRegistry) RegisterModule(_ context.Context, moduleID id.ModuleID, addr id.Address) error {
	if addr.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "module address is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.modules[moduleID]
	entry.Address = addr
	entry.Version++
	r.modules[moduleID] = entry
	return nil
}

// ResolveModule returns the registered address for a module id.
func (r *ModuleRegistry) ResolveModule(_ context.Context, moduleID id.ModuleID) (id.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.modules[moduleID]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeNotFound, "module %s is not registered", moduleID)
	}
	return entry.Address, nil
}

// ModuleVersion returns the deployment version of a module, zero if it was
// never registered.
func (r *ModuleRegistry) ModuleVersion(_ context.Context, moduleID id.ModuleID) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules[moduleID].Version
}

// TokenRegistry maps instrument symbols to their deployed addresses.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[id.InstrumentSymbol]id.Address
}

func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[id.InstrumentSymbol]id.Address)}
}

func (r *TokenRegistry) RegisterToken(_ context.Context, symbol id.InstrumentSymbol, addr id.Address) error {
	if symbol == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "token symbol is required")
	}
	if addr.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "token address is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[symbol] = addr
	return nil
}

func (r *TokenRegistry) ResolveToken(_ context.Context, symbol id.InstrumentSymbol) (id.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.tokens[symbol]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeNotFound, "token %s is not registered", symbol)
	}
	return addr, nil
}

// Tokens lists every registered symbol.
func (r *TokenRegistry) Tokens(_ context.Context) []id.InstrumentSymbol {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]id.InstrumentSymbol, 0, len(r.tokens))
	for symbol := range r.tokens {
		out = append(out, symbol)
	}
	return out
}
