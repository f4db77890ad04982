// Package intake accepts customer purchase and liquidation requests and
// queues them for settlement. Requests are owned here until the settlement
// engine consumes them or the customer cancels.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"xftledger/internal/authz"
	"xftledger/internal/intake/models"
	"xftledger/internal/intake/store"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/sentinel"
	"xftledger/pkg/requestcontext"
)

// Holdings answers whether an account can cover a liquidation, in token
// units at the current multiplier.
type Holdings interface {
	HasEnoughHoldings(ctx context.Context, account id.Address, amount fixedpoint.Value) (bool, error)
}

// PriceSource supplies the last known NAV price used to size liquidations.
type PriceSource interface {
	LastKnownPrice(ctx context.Context) fixedpoint.Value
}

// TxRunner scopes a function to one storage transaction. Stores that join
// the transaction read it from the context.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store     store.Store
	gate      authz.Gate
	directory authz.AccountDirectory
	holdings  Holdings
	price     PriceSource
	txRunner  TxRunner
	logger    *slog.Logger

	mu          sync.RWMutex
	selfService bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSelfServiceEnabled sets the initial self-service state from
// configuration; admins can still toggle it at runtime.
func WithSelfServiceEnabled(enabled bool) Option {
	return func(s *Service) { s.selfService = enabled }
}

// WithTxRunner makes Consume transactional. Without it the get and delete
// run as separate store calls, which is fine for the in-memory store.
func WithTxRunner(r TxRunner) Option {
	return func(s *Service) { s.txRunner = r }
}

func New(st store.Store, gate authz.Gate, directory authz.AccountDirectory, holdings Holdings, price PriceSource, opts ...Option) *Service {
	s := &Service{
		store:     st,
		gate:      gate,
		directory: directory,
		holdings:  holdings,
		price:     price,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnableSelfService opens the request endpoints to authorized customers.
func (s *Service) EnableSelfService(ctx context.Context, actor id.Address) error {
	return s.setSelfService(ctx, actor, true)
}

func (s *Service) DisableSelfService(ctx context.Context, actor id.Address) error {
	return s.setSelfService(ctx, actor, false)
}

func (s *Service) setSelfService(ctx context.Context, actor id.Address, enabled bool) error {
	if !s.gate.IsAdmin(ctx, actor) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot toggle self-service", actor)
	}
	s.mu.Lock()
	s.selfService = enabled
	s.mu.Unlock()
	s.log(ctx, "self-service toggled", "actor", actor, "enabled", enabled)
	return nil
}

func (s *Service) SelfServiceEnabled(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfService
}

// RequestCashPurchase queues a purchase of the given cash amount for later
// settlement at an administrator-supplied price.
func (s *Service) RequestCashPurchase(ctx context.Context, account id.Address, amount fixedpoint.Value) (*models.Request, error) {
	if err := s.checkRequestAllowed(ctx, account, amount); err != nil {
		return nil, err
	}
	return s.create(ctx, account, models.KindPurchase, amount)
}

// RequestCashLiquidation queues a liquidation. The account must hold enough
// tokens to cover the cash amount at the last known price; settlement may
// still fail if the balance shrinks before the batch runs.
func (s *Service) RequestCashLiquidation(ctx context.Context, account id.Address, amount fixedpoint.Value) (*models.Request, error) {
	if err := s.checkRequestAllowed(ctx, account, amount); err != nil {
		return nil, err
	}
	price := s.price.LastKnownPrice(ctx)
	if price.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no known price for liquidation sizing")
	}
	tokenAmount, err := amount.MulDiv(fixedpoint.Base(), price)
	if err != nil {
		return nil, err
	}
	enough, err := s.holdings.HasEnoughHoldings(ctx, account, tokenAmount)
	if err != nil {
		return nil, err
	}
	if !enough {
		return nil, dErrors.Newf(dErrors.CodeInsufficientBalance, "account %s cannot cover a %s liquidation at the current price", account, amount)
	}
	return s.create(ctx, account, models.KindLiquidation, amount)
}

func (s *Service) checkRequestAllowed(ctx context.Context, account id.Address, amount fixedpoint.Value) error {
	if !s.SelfServiceEnabled(ctx) {
		return dErrors.New(dErrors.CodeNotAuthorized, "self-service requests are disabled")
	}
	if !s.directory.IsAccountAuthorized(ctx, account) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s is not an authorized customer", account)
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return nil
}

func (s *Service) create(ctx context.Context, account id.Address, kind models.Kind, amount fixedpoint.Value) (*models.Request, error) {
	req := &models.Request{
		ID:          id.NewRequestID(),
		Account:     account,
		Kind:        kind,
		Amount:      amount,
		RequestDate: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}
	s.log(ctx, "request queued", "request_id", req.ID, "account", account, "kind", kind, "amount", amount)
	return req, nil
}

// CancelRequest removes a pending request. Only the owner may cancel, and
// only while the request has not been consumed by settlement; afterwards the
// id is unknown.
func (s *Service) CancelRequest(ctx context.Context, account id.Address, requestID id.RequestID, reason string) error {
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeUnknownRequest, "request %s is not pending", requestID)
		}
		return err
	}
	if req.Account != account {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s does not own request %s", account, requestID)
	}
	if err := s.store.Delete(ctx, requestID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeUnknownRequest, "request %s is not pending", requestID)
		}
		return err
	}
	s.log(ctx, "request cancelled", "request_id", requestID, "account", account, "reason", reason)
	return nil
}

// RequestDetail returns one pending request, UnknownRequest if absent.
func (s *Service) RequestDetail(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeUnknownRequest, "request %s is not pending", requestID)
		}
		return nil, err
	}
	return req, nil
}

// AccountRequests lists an account's pending requests ordered by date.
func (s *Service) AccountRequests(ctx context.Context, account id.Address) ([]*models.Request, error) {
	return s.store.ByAccount(ctx, account)
}

// Consume removes a request exactly once and returns it. The settlement
// engine calls this after applying a batch; a replay of the same id fails
// with UnknownRequest. The read and delete run inside the configured
// transaction runner so a concurrent consumer never sees a half-consumed
// request.
func (s *Service) Consume(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	var req *models.Request
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.store.Get(ctx, requestID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeUnknownRequest, "request %s is not pending", requestID)
			}
			return err
		}
		if err := s.store.Delete(ctx, requestID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeUnknownRequest, "request %s is not pending", requestID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txRunner == nil {
		return fn(ctx)
	}
	return s.txRunner.RunInTx(ctx, fn)
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
