// Package handler exposes the instrument lifecycle admin endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"xftledger/internal/lifecycle/models"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	audit "xftledger/pkg/platform/audit"
	"xftledger/pkg/platform/httputil"
	pstrings "xftledger/pkg/platform/strings"
	"xftledger/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler needs.
type Service interface {
	Instrument(ctx context.Context) models.Instrument
	Pause(ctx context.Context, actor id.Address) error
	Unpause(ctx context.Context, actor id.Address) error
	BlockAccounts(ctx context.Context, actor id.Address, accounts []id.Address) error
	UnblockAccounts(ctx context.Context, actor id.Address, accounts []id.Address) error
	SettleMaturity(ctx context.Context, actor id.Address) (fixedpoint.Value, error)
	MarkCouponPaid(ctx context.Context, actor id.Address, paymentDate time.Time) error
	UpdateLastKnownPrice(ctx context.Context, actor id.Address, price fixedpoint.Value) error
	LastKnownPrice(ctx context.Context) fixedpoint.Value
}

// Handler wires lifecycle endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
	auditor audit.Auditor
}

func New(service Service, logger *slog.Logger, auditor audit.Auditor) *Handler {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Handler{service: service, logger: logger, auditor: auditor}
}

// Register mounts public lifecycle reads.
func (h *Handler) Register(r chi.Router) {
	r.Get("/instrument", h.HandleInstrument)
	r.Get("/instrument/price", h.HandlePrice)
}

// RegisterAuthenticated mounts the admin lifecycle operations.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/instrument/pause", h.HandlePause)
	r.Post("/instrument/unpause", h.HandleUnpause)
	r.Post("/instrument/blocklist", h.HandleBlocklist)
	r.Post("/instrument/maturity", h.HandleSettleMaturity)
	r.Post("/instrument/coupon", h.HandleMarkCouponPaid)
	r.Put("/instrument/price", h.HandleUpdatePrice)
}

type instrumentResponse struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Kind         string `json:"kind"`
	MaturityDate string `json:"maturity_date,omitempty"`
	CouponRate   uint32 `json:"coupon_rate_bps"`
	Active       bool   `json:"active"`
	Settled      bool   `json:"settled"`
	Paused       bool   `json:"paused"`
}

// HandleInstrument handles GET /instrument.
func (h *Handler) HandleInstrument(w http.ResponseWriter, r *http.Request) {
	inst := h.service.Instrument(r.Context())
	resp := instrumentResponse{
		Name:       inst.Name,
		Symbol:     inst.Symbol.String(),
		Kind:       string(inst.Kind),
		CouponRate: inst.CouponRate,
		Active:     inst.Active,
		Settled:    inst.Settled,
		Paused:     inst.Paused,
	}
	if !inst.MaturityDate.IsZero() {
		resp.MaturityDate = inst.MaturityDate.Format(time.RFC3339)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandlePrice handles GET /instrument/price.
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	price := h.service.LastKnownPrice(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"price": price.String()})
}

// HandlePause handles POST /instrument/pause.
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Pause, audit.EventTransfersPaused, "paused")
}

// HandleUnpause handles POST /instrument/unpause.
func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Unpause, audit.EventTransfersUnpaused, "active")
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, op func(context.Context, id.Address) error, event audit.AuditEvent, status string) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	if err := op(ctx, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auditor.Record(ctx, audit.Event{
		Category: event.Category(),
		Actor:    actor,
		Action:   string(event),
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}

type blocklistRequest struct {
	Accounts []string `json:"accounts"`
	Blocked  bool     `json:"blocked"`
}

// HandleBlocklist handles POST /instrument/blocklist.
func (h *Handler) HandleBlocklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[blocklistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Accounts = pstrings.DedupeAndTrimLower(req.Accounts)
	if len(req.Accounts) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "accounts are required"))
		return
	}
	accounts := make([]id.Address, 0, len(req.Accounts))
	for _, raw := range req.Accounts {
		account, err := id.ParseAddress(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		accounts = append(accounts, account)
	}

	op, event := h.service.BlockAccounts, audit.EventAccountsBlocked
	if !req.Blocked {
		op, event = h.service.UnblockAccounts, audit.EventAccountsUnblocked
	}
	if err := op(ctx, actor, accounts); err != nil {
		httputil.WriteError(w, err)
		return
	}
	for _, account := range accounts {
		if err := h.auditor.Record(ctx, audit.Event{
			Category: event.Category(),
			Actor:    actor,
			Subject:  account,
			Action:   string(event),
		}); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	h.logger.InfoContext(ctx, "blocklist updated",
		"request_id", requestID,
		"actor", actor,
		"accounts", len(accounts),
		"blocked", req.Blocked,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleSettleMaturity handles POST /instrument/maturity.
func (h *Handler) HandleSettleMaturity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	total, err := h.service.SettleMaturity(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auditor.Record(ctx, audit.Event{
		Category: audit.EventMaturitySettled.Category(),
		Actor:    actor,
		Action:   string(audit.EventMaturitySettled),
		Amount:   total.String(),
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"total_burned": total.String()})
}

type couponRequest struct {
	PaymentDate string `json:"payment_date"`
}

// HandleMarkCouponPaid handles POST /instrument/coupon.
func (h *Handler) HandleMarkCouponPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[couponRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	paymentDate, err := time.Parse(time.RFC3339, req.PaymentDate)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "payment_date must be RFC 3339"))
		return
	}
	if err := h.service.MarkCouponPaid(ctx, actor, paymentDate); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type priceRequest struct {
	Price string `json:"price"`
}

// HandleUpdatePrice handles PUT /instrument/price.
func (h *Handler) HandleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[priceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	price, err := fixedpoint.Parse(req.Price)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.UpdateLastKnownPrice(ctx, actor, price); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"price": price.String()})
}

func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (id.Address, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return actor, true
}
