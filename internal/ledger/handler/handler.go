// Package handler exposes the read side of the share ledger.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/httputil"
	"xftledger/pkg/requestcontext"
)

// Service defines the ledger read surface the handler needs.
type Service interface {
	BalanceOf(ctx context.Context, account id.Address) (fixedpoint.Value, error)
	SharesOf(ctx context.Context, account id.Address) (fixedpoint.Value, error)
	TotalShares(ctx context.Context) (fixedpoint.Value, error)
	TotalSupply(ctx context.Context) (fixedpoint.Value, error)
	RewardMultiplier(ctx context.Context) (fixedpoint.Value, error)
	IsBlocked(ctx context.Context, account id.Address) (bool, error)
	Holders(ctx context.Context) []id.Address
	Transfer(ctx context.Context, from, to id.Address, amount fixedpoint.Value) error
}

// Handler wires ledger read endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ledger read endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/supply", h.HandleSupply)
	r.Get("/ledger/holders", h.HandleHolders)
	r.Get("/ledger/accounts/{address}", h.HandleAccount)
}

// RegisterAuthenticated mounts endpoints that act as the authenticated
// caller.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/ledger/transfer", h.HandleTransfer)
}

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// HandleTransfer handles POST /ledger/transfer, moving tokens from the
// authenticated caller to the recipient.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	from := requestcontext.Actor(ctx)
	if from.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[transferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	to, err := id.ParseAddress(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	amount, err := fixedpoint.Parse(req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Transfer(ctx, from, to, amount); err != nil {
		h.logger.WarnContext(ctx, "transfer rejected",
			"request_id", requestID,
			"from", from,
			"to", to,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

type supplyResponse struct {
	TotalShares      string `json:"total_shares"`
	TotalSupply      string `json:"total_supply"`
	RewardMultiplier string `json:"reward_multiplier"`
}

// HandleSupply handles GET /ledger/supply.
func (h *Handler) HandleSupply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	totalShares, err := h.service.TotalShares(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	totalSupply, err := h.service.TotalSupply(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	multiplier, err := h.service.RewardMultiplier(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, supplyResponse{
		TotalShares:      totalShares.String(),
		TotalSupply:      totalSupply.String(),
		RewardMultiplier: multiplier.String(),
	})
}

type accountResponse struct {
	Address string `json:"address"`
	Shares  string `json:"shares"`
	Balance string `json:"balance"`
	Blocked bool   `json:"blocked"`
}

// HandleAccount handles GET /ledger/accounts/{address}.
func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	shares, err := h.service.SharesOf(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.BalanceOf(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	blocked, err := h.service.IsBlocked(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accountResponse{
		Address: account.String(),
		Shares:  shares.String(),
		Balance: balance.String(),
		Blocked: blocked,
	})
}

type holdersResponse struct {
	Holders []string `json:"holders"`
	Count   int      `json:"count"`
}

// HandleHolders handles GET /ledger/holders.
func (h *Handler) HandleHolders(w http.ResponseWriter, r *http.Request) {
	holders := h.service.Holders(r.Context())
	out := make([]string, 0, len(holders))
	for _, holder := range holders {
		out = append(out, holder.String())
	}
	httputil.WriteJSON(w, http.StatusOK, holdersResponse{Holders: out, Count: len(out)})
}
