// Package handler exposes the permit endpoints: submitting signed
// approvals, querying allowances and nonces, and delegated transfers.
package handler

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"xftledger/internal/permit/models"
	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/fixedpoint"
	"xftledger/pkg/platform/httputil"
	"xftledger/pkg/requestcontext"
)

// Service defines the permit operations the handler needs.
type Service interface {
	Permit(ctx context.Context, p models.Permit) error
	Allowance(ctx context.Context, owner, spender id.Address) fixedpoint.Value
	Nonce(ctx context.Context, owner id.Address) (uint64, error)
	TransferFrom(ctx context.Context, spender, from, to id.Address, amount fixedpoint.Value) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the unauthenticated permit endpoints. Submitting a permit
// needs no session; the signature is the authorization.
func (h *Handler) Register(r chi.Router) {
	r.Post("/permits", h.HandlePermit)
	r.Get("/permits/{owner}/nonce", h.HandleNonce)
	r.Get("/permits/{owner}/allowances/{spender}", h.HandleAllowance)
}

// RegisterAuthenticated mounts the delegated transfer endpoint. The spender
// is the authenticated actor.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/permits/transfer", h.HandleTransferFrom)
}

type permitRequest struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Value     string `json:"value"`
	Nonce     uint64 `json:"nonce"`
	Deadline  string `json:"deadline"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// HandlePermit handles POST /permits.
func (h *Handler) HandlePermit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.Decode[permitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.parsePermit(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Permit(ctx, p); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) parsePermit(req permitRequest) (models.Permit, error) {
	owner, err := id.ParseAddress(req.Owner)
	if err != nil {
		return models.Permit{}, err
	}
	spender, err := id.ParseAddress(req.Spender)
	if err != nil {
		return models.Permit{}, err
	}
	value, err := fixedpoint.Parse(req.Value)
	if err != nil {
		return models.Permit{}, err
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return models.Permit{}, dErrors.Newf(dErrors.CodeInvalidInput, "deadline is not RFC 3339: %s", req.Deadline)
	}
	pub, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		return models.Permit{}, dErrors.New(dErrors.CodeInvalidInput, "public key is not valid base64")
	}
	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return models.Permit{}, dErrors.New(dErrors.CodeInvalidInput, "signature is not valid base64")
	}
	return models.Permit{
		Owner:     owner,
		Spender:   spender,
		Value:     value,
		Nonce:     req.Nonce,
		Deadline:  deadline,
		PublicKey: ed25519.PublicKey(pub),
		Signature: sig,
	}, nil
}

type nonceResponse struct {
	Owner string `json:"owner"`
	Nonce uint64 `json:"nonce"`
}

// HandleNonce handles GET /permits/{owner}/nonce.
func (h *Handler) HandleNonce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := id.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nonce, err := h.service.Nonce(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nonceResponse{Owner: owner.String(), Nonce: nonce})
}

type allowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

// HandleAllowance handles GET /permits/{owner}/allowances/{spender}.
func (h *Handler) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := id.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	spender, err := id.ParseAddress(chi.URLParam(r, "spender"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, allowanceResponse{
		Owner:     owner.String(),
		Spender:   spender.String(),
		Allowance: h.service.Allowance(ctx, owner, spender).String(),
	})
}

type transferFromRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// HandleTransferFrom handles POST /permits/transfer.
func (h *Handler) HandleTransferFrom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	spender := requestcontext.Actor(ctx)
	if spender.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.Decode[transferFromRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	from, err := id.ParseAddress(req.From)
	if err != nil {
		httputil.WriteError(w, err)
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
	if err := h.service.TransferFrom(ctx, spender, from, to, amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}
