// Package settlement converts queued intake requests into ledger mutations
// at an administrator-supplied price and date, distributes dividends, and
// provides the audited out-of-band balance correction path.
package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"xftledger/internal/authz"
	intakemodels "xftledger/internal/intake/models"
	"xftledger/internal/ledger"
	settlementmetrics "xftledger/internal/settlement/metrics"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	audit "xftledger/pkg/platform/audit"
)

// preflightConcurrency caps parallel request lookups during validation.
const preflightConcurrency = 8

// Ledger is the slice of the share ledger the settlement engine drives.
type Ledger interface {
	BalanceOf(ctx context.Context, account id.Address) (fixedpoint.Value, error)
	ApplyBatch(ctx context.Context, actor id.Address, ops []ledger.Op) error
}

// Requests is the intake surface settlement consumes from.
type Requests interface {
	RequestDetail(ctx context.Context, requestID id.RequestID) (*intakemodels.Request, error)
	Consume(ctx context.Context, requestID id.RequestID) (*intakemodels.Request, error)
}

type Service struct {
	gate     authz.Gate
	ledger   Ledger
	requests Requests
	auditor  audit.Auditor
	logger   *slog.Logger
	metrics  *settlementmetrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *settlementmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a audit.Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func New(gate authz.Gate, led Ledger, requests Requests, opts ...Option) *Service {
	s := &Service{
		gate:     gate,
		ledger:   led,
		requests: requests,
		auditor:  audit.NopRecorder{},
		tracer:   otel.Tracer("xftledger/internal/settlement"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SettleTransactions settles one request per account entry at the given
// price. The arrays are paired and must be the same length. Validation runs
// first against a read snapshot; the ledger batch is then applied
// all-or-nothing, and requests are consumed only after the apply succeeds,
// so a replayed id fails with UnknownRequest.
func (s *Service) SettleTransactions(ctx context.Context, actor id.Address, accounts []id.Address, requestIDs []id.RequestID, settlementDate time.Time, price fixedpoint.Value) (err error) {
	ctx, span := s.tracer.Start(ctx, "settlement.SettleTransactions",
		trace.WithAttributes(attribute.Int("batch.size", len(requestIDs))))
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.ObserveBatchLatency(time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch failed")
			s.metrics.IncBatch("settle", "error")
		} else {
			s.metrics.IncBatch("settle", "ok")
		}
	}()

	if !s.gate.HasCapability(ctx, actor, id.CapabilityWriteTransaction) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot settle transactions", actor)
	}
	if len(accounts) != len(requestIDs) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "accounts and request ids must pair up, got %d and %d", len(accounts), len(requestIDs))
	}
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "empty settlement batch")
	}
	if price.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "price must be positive")
	}

	ops, reqs, err := s.validateBatch(ctx, accounts, requestIDs, settlementDate, price)
	if err != nil {
		return err
	}

	if err := s.ledger.ApplyBatch(ctx, actor, ops); err != nil {
		return err
	}

	for i, requestID := range requestIDs {
		if _, err := s.requests.Consume(ctx, requestID); err != nil {
			// The ledger batch already stands; surface the inconsistency
			// instead of hiding it.
			s.log(ctx, "request consume failed after apply", "request_id", requestID, "error", err)
			return err
		}
		s.metrics.IncSettled(string(reqs[i].Kind))
	}

	if err := s.auditor.Record(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Actor:    actor,
		Action:   string(audit.EventTransactionsSettled),
		Amount:   price.String(),
		Reason:   settlementDate.Format(time.RFC3339),
	}); err != nil {
		return err
	}
	s.log(ctx, "transactions settled", "actor", actor, "count", len(requestIDs), "price", price)
	return nil
}

// validateBatch resolves every request concurrently and builds the ledger
// ops in input order. Any invalid pair fails the whole batch.
func (s *Service) validateBatch(ctx context.Context, accounts []id.Address, requestIDs []id.RequestID, settlementDate time.Time, price fixedpoint.Value) ([]ledger.Op, []*intakemodels.Request, error) {
	// A repeated id would pass every per-entry lookup while still pending
	// and then mint or burn twice before the first consume removes it.
	seen := make(map[id.RequestID]struct{}, len(requestIDs))
	for _, requestID := range requestIDs {
		if _, dup := seen[requestID]; dup {
			return nil, nil, dErrors.Newf(dErrors.CodeInvalidInput, "request %s is listed more than once", requestID)
		}
		seen[requestID] = struct{}{}
	}

	ops := make([]ledger.Op, len(requestIDs))
	reqs := make([]*intakemodels.Request, len(requestIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preflightConcurrency)
	for i := range requestIDs {
		g.Go(func() error {
			req, err := s.requests.RequestDetail(gctx, requestIDs[i])
			if err != nil {
				return err
			}
			if req.Account != accounts[i] {
				return dErrors.Newf(dErrors.CodeInvalidInput, "request %s belongs to %s, not %s", req.ID, req.Account, accounts[i])
			}
			if req.RequestDate.After(settlementDate) {
				return dErrors.Newf(dErrors.CodeInvalidInput, "request %s postdates the settlement date", req.ID)
			}
			tokenAmount, err := req.Amount.MulDiv(fixedpoint.Base(), price)
			if err != nil {
				return err
			}
			op := ledger.Op{Account: req.Account, Amount: tokenAmount}
			switch req.Kind {
			case intakemodels.KindPurchase:
				op.Kind = ledger.OpMint
			case intakemodels.KindLiquidation:
				op.Kind = ledger.OpBurn
			default:
				return dErrors.Newf(dErrors.CodeInvalidInput, "request %s has unknown kind %q", req.ID, req.Kind)
			}
			ops[i] = op
			reqs[i] = req
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ops, reqs, nil
}

// DistributeDividends mints each listed account an additional amount of
// rate times its current balance, as one atomic batch.
func (s *Service) DistributeDividends(ctx context.Context, actor id.Address, accounts []id.Address, effectiveDate time.Time, rate, price fixedpoint.Value) (err error) {
	ctx, span := s.tracer.Start(ctx, "settlement.DistributeDividends",
		trace.WithAttributes(attribute.Int("batch.size", len(accounts))))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch failed")
			s.metrics.IncBatch("dividends", "error")
		} else {
			s.metrics.IncBatch("dividends", "ok")
		}
	}()

	if !s.gate.HasCapability(ctx, actor, id.CapabilityWriteToken) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot distribute dividends", actor)
	}
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "empty dividend batch")
	}
	if rate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "rate must be positive")
	}

	ops := make([]ledger.Op, 0, len(accounts))
	for _, account := range accounts {
		balance, err := s.ledger.BalanceOf(ctx, account)
		if err != nil {
			return err
		}
		amount, err := balance.MulDiv(rate, fixedpoint.Base())
		if err != nil {
			return err
		}
		if amount.IsZero() {
			continue
		}
		ops = append(ops, ledger.Op{Kind: ledger.OpMint, Account: account, Amount: amount})
	}
	// The batch runs even when every amount rounded to zero so the ledger's
	// lifecycle gate still vets the run against a matured or inactive
	// instrument.
	if err := s.ledger.ApplyBatch(ctx, actor, ops); err != nil {
		return err
	}

	if err := s.auditor.Record(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Actor:    actor,
		Action:   string(audit.EventDividendsDistributed),
		Amount:   rate.String(),
		Reason:   effectiveDate.Format(time.RFC3339),
	}); err != nil {
		return err
	}
	s.log(ctx, "dividends distributed", "actor", actor, "accounts", len(accounts), "rate", rate, "price", price)
	return nil
}

// AdjustBalance corrects one account's balance out of band. The caller must
// supply the balance it observed; a mismatch fails with StaleBalance so a
// concurrent settlement cannot be silently overwritten. The correction is
// recorded fail-closed with the operator's reason and an adjustment id.
func (s *Service) AdjustBalance(ctx context.Context, actor, account id.Address, expectedCurrent, newBalance fixedpoint.Value, reason string) (err error) {
	ctx, span := s.tracer.Start(ctx, "settlement.AdjustBalance")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "adjustment failed")
			s.metrics.IncBatch("adjust", "error")
		} else {
			s.metrics.IncBatch("adjust", "ok")
		}
	}()

	if !s.gate.IsAdmin(ctx, actor) {
		return dErrors.Newf(dErrors.CodeNotAuthorized, "account %s cannot adjust balances", actor)
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "adjustment reason is required")
	}

	current, err := s.ledger.BalanceOf(ctx, account)
	if err != nil {
		return err
	}
	if !current.Equal(expectedCurrent) {
		return dErrors.Newf(dErrors.CodeStaleBalance, "account %s balance is %s, caller expected %s", account, current, expectedCurrent)
	}

	switch current.Cmp(newBalance) {
	case 0:
		// Nothing to do; still record the attempt below.
	case -1:
		diff, derr := newBalance.Sub(current)
		if derr != nil {
			return derr
		}
		if err := s.ledger.ApplyBatch(ctx, actor, []ledger.Op{{Kind: ledger.OpMint, Account: account, Amount: diff}}); err != nil {
			return err
		}
	case 1:
		diff, derr := current.Sub(newBalance)
		if derr != nil {
			return derr
		}
		if err := s.ledger.ApplyBatch(ctx, actor, []ledger.Op{{Kind: ledger.OpBurn, Account: account, Amount: diff}}); err != nil {
			return err
		}
	}

	adjustmentID := uuid.NewString()
	if err := s.auditor.Record(ctx, audit.Event{
		ID:       adjustmentID,
		Category: audit.CategoryCompliance,
		Actor:    actor,
		Subject:  account,
		Action:   string(audit.EventBalanceAdjusted),
		Amount:   newBalance.String(),
		Reason:   reason,
	}); err != nil {
		return err
	}
	s.log(ctx, "balance adjusted", "adjustment_id", adjustmentID, "actor", actor, "account", account, "new_balance", newBalance, "reason", reason)
	return nil
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
