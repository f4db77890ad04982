// Package permit verifies signed, off-ledger spending approvals and runs
// the resulting delegated transfers. A permit is a detached authorization:
// the owner signs a digest binding spender, value, nonce and deadline to
// this instrument, and anyone may submit it.
package permit

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"

	"xftledger/internal/permit/models"
	"xftledger/internal/permit/store"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/requestcontext"
)

// domainTag separates permit digests from any other signed payload.
const domainTag = "xftledger.permit.v1"

// Ledger is the transfer surface a consumed allowance drives. The same
// blocklist and pause checks apply as for a direct transfer.
type Ledger interface {
	Transfer(ctx context.Context, from, to id.Address, amount fixedpoint.Value) error
}

type Service struct {
	symbol id.InstrumentSymbol
	nonces store.NonceStore
	ledger Ledger
	logger *slog.Logger

	mu         sync.RWMutex
	allowances map[id.Address]map[id.Address]fixedpoint.Value
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(symbol id.InstrumentSymbol, nonces store.NonceStore, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		symbol:     symbol,
		nonces:     nonces,
		ledger:     ledger,
		allowances: make(map[id.Address]map[id.Address]fixedpoint.Value),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Digest computes the canonical signing payload for a permit. Callers sign
// this with the owner's ed25519 key.
func Digest(symbol id.InstrumentSymbol, owner, spender id.Address, value fixedpoint.Value, nonce uint64, deadline time.Time) []byte {
	h := sha3.New256()
	h.Write([]byte(domainTag))
	h.Write([]byte{0})
	h.Write([]byte(symbol))
	h.Write([]byte{0})
	h.Write([]byte(owner))
	h.Write([]byte{0})
	h.Write([]byte(spender))
	h.Write([]byte{0})
	h.Write(value.BigInt().Bytes())
	h.Write([]byte{0})
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(deadline.Unix()))
	h.Write(buf[:])
	return h.Sum(nil)
}

// DeriveAddress maps an ed25519 public key to its ledger address: the first
// 20 bytes of the key's SHA3-256 hash.
func DeriveAddress(pub ed25519.PublicKey) (id.Address, error) {
	sum := sha3.Sum256(pub)
	return id.AddressFromBytes(sum[:id.AddressLength])
}

// Permit validates a signed approval and stores the allowance. Checks run
// in a fixed order so callers get the most actionable error: deadline,
// then nonce, then signature.
func (s *Service) Permit(ctx context.Context, p models.Permit) error {
	now := requestcontext.Now(ctx)
	if now.After(p.Deadline) {
		return dErrors.Newf(dErrors.CodePermitExpired, "permit deadline %s has passed", p.Deadline.Format(time.RFC3339))
	}

	current, err := s.nonces.Nonce(ctx, p.Owner)
	if err != nil {
		return err
	}
	if p.Nonce != current {
		return dErrors.Newf(dErrors.CodeNonceReused, "permit nonce %d does not match current nonce %d", p.Nonce, current)
	}

	if len(p.PublicKey) != ed25519.PublicKeySize {
		return dErrors.New(dErrors.CodeInvalidSignature, "malformed public key")
	}
	derived, err := DeriveAddress(p.PublicKey)
	if err != nil {
		return err
	}
	if derived != p.Owner {
		return dErrors.New(dErrors.CodeInvalidSignature, "public key does not match the owner address")
	}
	digest := Digest(s.symbol, p.Owner, p.Spender, p.Value, p.Nonce, p.Deadline)
	if !ed25519.Verify(p.PublicKey, digest, p.Signature) {
		return dErrors.New(dErrors.CodeInvalidSignature, "signature verification failed")
	}

	if err := s.nonces.Increment(ctx, p.Owner); err != nil {
		return err
	}
	s.mu.Lock()
	if s.allowances[p.Owner] == nil {
		s.allowances[p.Owner] = make(map[id.Address]fixedpoint.Value)
	}
	s.allowances[p.Owner][p.Spender] = p.Value
	s.mu.Unlock()

	s.log(ctx, "permit accepted", "owner", p.Owner, "spender", p.Spender, "value", p.Value, "nonce", p.Nonce)
	return nil
}

// Allowance returns the remaining approved amount for a spender.
func (s *Service) Allowance(_ context.Context, owner, spender id.Address) fixedpoint.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.allowances[owner][spender]; ok {
		return a
	}
	return fixedpoint.Zero()
}

// Nonce returns the owner's current permit nonce.
func (s *Service) Nonce(ctx context.Context, owner id.Address) (uint64, error) {
	return s.nonces.Nonce(ctx, owner)
}

// TransferFrom debits the spender's allowance and moves tokens from the
// owner, subject to the same blocklist and pause gating as a direct
// transfer. The allowance is only reduced when the transfer succeeds.
func (s *Service) TransferFrom(ctx context.Context, spender, from, to id.Address, amount fixedpoint.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	allowance, ok := s.allowances[from][spender]
	if !ok || allowance.Cmp(amount) < 0 {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "spender %s allowance is below %s", spender, amount)
	}
	if err := s.ledger.Transfer(ctx, from, to, amount); err != nil {
		return err
	}
	remaining, err := allowance.Sub(amount)
	if err != nil {
		return err
	}
	s.allowances[from][spender] = remaining
	s.log(ctx, "delegated transfer", "spender", spender, "from", from, "to", to, "amount", amount)
	return nil
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
