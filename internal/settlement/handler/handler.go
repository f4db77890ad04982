// Package handler exposes the transfer agent settlement endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/httputil"
	pstrings "xftledger/pkg/platform/strings"
	"xftledger/pkg/requestcontext"
)

// Service defines the settlement operations the handler needs.
type Service interface {
	SettleTransactions(ctx context.Context, actor id.Address, accounts []id.Address, requestIDs []id.RequestID, settlementDate time.Time, price fixedpoint.Value) error
	DistributeDividends(ctx context.Context, actor id.Address, accounts []id.Address, effectiveDate time.Time, rate, price fixedpoint.Value) error
	AdjustBalance(ctx context.Context, actor, account id.Address, expectedCurrent, newBalance fixedpoint.Value, reason string) error
}

// Handler wires settlement endpoints to the settlement service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAuthenticated mounts the settlement operations; all of them are
// administrative.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/settlement/settle", h.HandleSettle)
	r.Post("/settlement/dividends", h.HandleDividends)
	r.Post("/settlement/adjust", h.HandleAdjust)
}

type settleRequest struct {
	Accounts       []string `json:"accounts"`
	RequestIDs     []string `json:"request_ids"`
	SettlementDate string   `json:"settlement_date"`
	Price          string   `json:"price"`
}

// HandleSettle handles POST /settlement/settle.
func (h *Handler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[settleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	accounts, err := parseAddresses(req.Accounts)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	requestIDs := make([]id.RequestID, 0, len(req.RequestIDs))
	for _, raw := range req.RequestIDs {
		rid, err := id.ParseRequestID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		requestIDs = append(requestIDs, rid)
	}
	settlementDate, err := time.Parse(time.RFC3339, req.SettlementDate)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "settlement_date must be RFC 3339"))
		return
	}
	price, err := fixedpoint.Parse(req.Price)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.SettleTransactions(ctx, actor, accounts, requestIDs, settlementDate, price); err != nil {
		h.logger.ErrorContext(ctx, "settlement batch failed",
			"request_id", requestID,
			"actor", actor,
			"batch_size", len(requestIDs),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "settlement batch applied",
		"request_id", requestID,
		"actor", actor,
		"batch_size", len(requestIDs),
		"price", price,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"settled": len(requestIDs)})
}

type dividendsRequest struct {
	Accounts      []string `json:"accounts"`
	EffectiveDate string   `json:"effective_date"`
	Rate          string   `json:"rate"`
	Price         string   `json:"price"`
}

// HandleDividends handles POST /settlement/dividends.
func (h *Handler) HandleDividends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[dividendsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	// Duplicate accounts would pay the dividend twice.
	accounts, err := parseAddresses(pstrings.DedupeAndTrimLower(req.Accounts))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	effectiveDate, err := time.Parse(time.RFC3339, req.EffectiveDate)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "effective_date must be RFC 3339"))
		return
	}
	rate, err := fixedpoint.Parse(req.Rate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	price, err := fixedpoint.Parse(req.Price)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DistributeDividends(ctx, actor, accounts, effectiveDate, rate, price); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"accounts": len(accounts)})
}

type adjustRequest struct {
	Account         string `json:"account"`
	ExpectedCurrent string `json:"expected_current"`
	NewBalance      string `json:"new_balance"`
	Reason          string `json:"reason"`
}

// HandleAdjust handles POST /settlement/adjust.
func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[adjustRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	account, err := id.ParseAddress(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expected, err := fixedpoint.Parse(req.ExpectedCurrent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	newBalance, err := fixedpoint.Parse(req.NewBalance)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.AdjustBalance(ctx, actor, account, expected, newBalance, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"balance": newBalance.String()})
}

func parseAddresses(raw []string) ([]id.Address, error) {
	out := make([]id.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := id.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (id.Address, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return actor, true
}
