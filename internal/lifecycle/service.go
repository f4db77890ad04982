// Package lifecycle tracks instrument status (active, paused, matured) and
// gates ledger mutations accordingly. It owns the maturity settlement
// transition, the coupon payment audit record, and the last known NAV price
// used by the intake module.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"xftledger/internal/authz"
	"xftledger/internal/lifecycle/models"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/requestcontext"
)

// Ledger is the slice of the share ledger the lifecycle module drives.
type Ledger interface {
	BurnAllHolders(ctx context.Context, actor id.Address) (fixedpoint.Value, error)
	SetAccountsBlocked(ctx context.Context, actor id.Address, accounts []id.Address, blocked bool) error
}

// PriceCache mirrors the last known price into shared storage so other
// processes see updates without hitting this instance. Optional.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol id.InstrumentSymbol, price fixedpoint.Value) error
	GetPrice(ctx context.Context, symbol id.InstrumentSymbol) (fixedpoint.Value, bool, error)
}

type Service struct {
	gate   authz.Gate
	ledger Ledger
	logger *slog.Logger
	cache  PriceCache

	mu         sync.RWMutex
	instrument models.Instrument
	couponPaid map[time.Time]bool
	lastPrice  fixedpoint.Value
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPriceCache enables write-through caching of the last known price.
func WithPriceCache(c PriceCache) Option {
	return func(s *Service) { s.cache = c }
}

func New(gate authz.Gate, ledger Ledger, instrument models.Instrument, opts ...Option) *Service {
	s := &Service{
		gate:       gate,
		ledger:     ledger,
		instrument: instrument,
		couponPaid: make(map[time.Time]bool),
		lastPrice:  fixedpoint.Base(),
	}
	s.instrument.Active = true
	s.instrument.Settled = false
	s.instrument.Paused = false
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Instrument(_ context.Context) models.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instrument
}

// CheckMutation gates privileged mint and burn operations. Pause does not
// block these; only an inactive or matured instrument does.
func (s *Service) CheckMutation(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.instrument.Settled {
		return dErrors.New(dErrors.CodeBondMatured, "instrument has matured")
	}
	if !s.instrument.Active {
		return dErrors.New(dErrors.CodeInstrumentNotActive, "instrument is not active")
	}
	return nil
}

// CheckTransfer gates peer-to-peer transfers; on top of the mutation checks
// it also honors the pause flag.
func (s *Service) CheckTransfer(ctx context.Context) error {
	if err := s.CheckMutation(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.instrument.Paused {
		return dErrors.New(dErrors.CodeTransfersPaused, "transfers are paused")
	}
	return nil
}

func (s *Service) Pause(ctx context.Context, actor id.Address) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilityPause) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot pause transfers", actor)
	}
	s.mu.Lock()
	s.instrument.Paused = true
	s.mu.Unlock()
	s.log(ctx, "transfers paused", "actor", actor)
	return nil
}

func (s *Service) Unpause(ctx context.Context, actor id.Address) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilityPause) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot unpause transfers", actor)
	}
	s.mu.Lock()
	s.instrument.Paused = false
	s.mu.Unlock()
	s.log(ctx, "transfers unpaused", "actor", actor)
	return nil
}

func (s *Service) IsPaused(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instrument.Paused
}

// BlockAccounts sets the blocklist flag on each listed account. The ledger
// enforces the flag on transfers; this is the administrative entry point.
func (s *Service) BlockAccounts(ctx context.Context, actor id.Address, accounts []id.Address) error {
	return s.ledger.SetAccountsBlocked(ctx, actor, accounts, true)
}

func (s *Service) UnblockAccounts(ctx context.Context, actor id.Address, accounts []id.Address) error {
	return s.ledger.SetAccountsBlocked(ctx, actor, accounts, false)
}

// SettleMaturity is the terminal lifecycle transition. It burns every
// holder's full balance in one atomic batch, deactivates the instrument and
// marks it settled. Returns the total token amount burned. A second call
// fails with BondAlreadySettled; a call before the maturity date fails with
// BondNotMature, and neither touches any balance.
func (s *Service) SettleMaturity(ctx context.Context, actor id.Address) (fixedpoint.Value, error) {
	if !s.gate.IsAdmin(ctx, actor) {
		return fixedpoint.Value{}, dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot settle maturity", actor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instrument.Settled {
		return fixedpoint.Value{}, dErrors.New(dErrors.CodeBondAlreadySettled, "maturity already settled")
	}
	if !s.instrument.Active {
		return fixedpoint.Value{}, dErrors.New(dErrors.CodeInstrumentNotActive, "instrument is not active")
	}
	if s.instrument.Kind != models.KindBond {
		return fixedpoint.Value{}, dErrors.New(dErrors.CodeInvalidInput, "instrument has no maturity date")
	}
	now := requestcontext.Now(ctx)
	if now.Before(s.instrument.MaturityDate) {
		return fixedpoint.Value{}, dErrors.Newf(dErrors.CodeBondNotMature, "maturity date %s not reached", s.instrument.MaturityDate.Format(time.RFC3339))
	}

	total, err := s.ledger.BurnAllHolders(ctx, actor)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	s.instrument.Active = false
	s.instrument.Settled = true
	s.log(ctx, "maturity settled", "actor", actor, "total_burned", total)
	return total, nil
}

// MarkCouponPaid records that the coupon for a payment date has been paid.
// Idempotent; purely an audit record, balances are untouched.
func (s *Service) MarkCouponPaid(ctx context.Context, actor id.Address, paymentDate time.Time) error {
	if !s.gate.IsAdmin(ctx, actor) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot mark coupons paid", actor)
	}
	day := paymentDate.UTC().Truncate(24 * time.Hour)
	s.mu.Lock()
	already := s.couponPaid[day]
	s.couponPaid[day] = true
	s.mu.Unlock()
	if !already {
		s.log(ctx, "coupon marked paid", "actor", actor, "payment_date", day)
	}
	return nil
}

func (s *Service) IsCouponPaid(_ context.Context, paymentDate time.Time) bool {
	day := paymentDate.UTC().Truncate(24 * time.Hour)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.couponPaid[day]
}

// UpdateLastKnownPrice records the NAV price per token used to size
// liquidation requests. Oracle capability required.
func (s *Service) UpdateLastKnownPrice(ctx context.Context, actor id.Address, price fixedpoint.Value) error {
	if !s.gate.HasCapability(ctx, actor, id.CapabilityOracle) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot update the price", actor)
	}
	if price.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "price must be positive")
	}
	s.mu.Lock()
	s.lastPrice = price
	symbol := s.instrument.Symbol
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SetPrice(ctx, symbol, price); err != nil {
			// Cache is advisory; the authoritative price is local.
			s.log(ctx, "price cache write failed", "error", err)
		}
	}
	s.log(ctx, "price updated", "actor", actor, "price", price)
	return nil
}

// LastKnownPrice returns the most recent NAV price, preferring the shared
// cache when one is configured so restarts pick up the latest value.
func (s *Service) LastKnownPrice(ctx context.Context) fixedpoint.Value {
	if s.cache != nil {
		s.mu.RLock()
		symbol := s.instrument.Symbol
		s.mu.RUnlock()
		if price, ok, err := s.cache.GetPrice(ctx, symbol); err == nil && ok {
			s.mu.Lock()
			s.lastPrice = price
			s.mu.Unlock()
			return price
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPrice
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
