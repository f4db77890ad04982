// Package handler exposes the customer-facing intake endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"xftledger/internal/intake/models"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	audit "xftledger/pkg/platform/audit"
	"xftledger/pkg/platform/httputil"
	"xftledger/pkg/requestcontext"
)

// Service defines the intake operations the handler needs.
type Service interface {
	EnableSelfService(ctx context.Context, actor id.Address) error
	DisableSelfService(ctx context.Context, actor id.Address) error
	RequestCashPurchase(ctx context.Context, account id.Address, amount fixedpoint.Value) (*models.Request, error)
	RequestCashLiquidation(ctx context.Context, account id.Address, amount fixedpoint.Value) (*models.Request, error)
	CancelRequest(ctx context.Context, account id.Address, requestID id.RequestID, reason string) error
	AccountRequests(ctx context.Context, account id.Address) ([]*models.Request, error)
	RequestDetail(ctx context.Context, requestID id.RequestID) (*models.Request, error)
}

// Handler wires intake endpoints to the intake service.
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

// RegisterAuthenticated mounts the intake endpoints; every route acts as
// the authenticated caller.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/requests/purchase", h.HandlePurchase)
	r.Post("/requests/liquidation", h.HandleLiquidation)
	r.Get("/requests", h.HandleList)
	r.Get("/requests/{id}", h.HandleDetail)
	r.Delete("/requests/{id}", h.HandleCancel)
	r.Put("/requests/self-service", h.HandleSelfService)
}

type requestBody struct {
	Amount string `json:"amount"`
}

type requestResponse struct {
	ID          string `json:"id"`
	Account     string `json:"account"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	RequestDate string `json:"request_date"`
}

func toResponse(req *models.Request) requestResponse {
	return requestResponse{
		ID:          req.ID.String(),
		Account:     req.Account.String(),
		Kind:        string(req.Kind),
		Amount:      req.Amount.String(),
		RequestDate: req.RequestDate.Format(time.RFC3339),
	}
}

// HandlePurchase handles POST /requests/purchase.
func (h *Handler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.service.RequestCashPurchase)
}

// HandleLiquidation handles POST /requests/liquidation.
func (h *Handler) HandleLiquidation(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.service.RequestCashLiquidation)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, op func(context.Context, id.Address, fixedpoint.Value) (*models.Request, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	account, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	body, ok := httputil.Decode[requestBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	amount, err := fixedpoint.Parse(body.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := op(ctx, account, amount)
	if err != nil {
		h.logger.WarnContext(ctx, "request rejected",
			"request_id", requestID,
			"account", account,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err := h.auditor.Record(ctx, audit.Event{
		Category: audit.EventRequestQueued.Category(),
		Actor:    account,
		Subject:  account,
		Action:   string(audit.EventRequestQueued),
		Amount:   req.Amount.String(),
		Reason:   string(req.Kind),
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(req))
}

// HandleList handles GET /requests, listing the caller's pending requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	reqs, err := h.service.AccountRequests(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": out})
}

// HandleDetail handles GET /requests/{id}. Only the owner may view a
// request.
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.service.RequestDetail(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Account != account {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeUnknownRequest, "request %s is not pending", requestID))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(req))
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// HandleCancel handles DELETE /requests/{id}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	account, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	reqID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	body, ok := httputil.Decode[cancelBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.CancelRequest(ctx, account, reqID, body.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auditor.Record(ctx, audit.Event{
		Category: audit.EventRequestCancelled.Category(),
		Actor:    account,
		Subject:  account,
		Action:   string(audit.EventRequestCancelled),
		Reason:   body.Reason,
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type selfServiceBody struct {
	Enabled bool `json:"enabled"`
}

// HandleSelfService handles PUT /requests/self-service.
func (h *Handler) HandleSelfService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	body, ok := httputil.Decode[selfServiceBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	op := h.service.DisableSelfService
	if body.Enabled {
		op = h.service.EnableSelfService
	}
	if err := op(ctx, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": body.Enabled})
}

func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (id.Address, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return actor, true
}
