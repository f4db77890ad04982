// Package handler exposes the role table and customer whitelist admin
// endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	audit "xftledger/pkg/platform/audit"
	"xftledger/pkg/platform/httputil"
	"xftledger/pkg/requestcontext"
)

// Service defines the authorization operations the handler needs.
type Service interface {
	Grant(ctx context.Context, actor, account id.Address, capability id.Capability) error
	Revoke(ctx context.Context, actor, account id.Address, capability id.Capability) error
	AuthorizeAccount(ctx context.Context, actor, account id.Address) error
	DeauthorizeAccount(ctx context.Context, actor, account id.Address) error
	IsAccountAuthorized(ctx context.Context, account id.Address) bool
	AuthorizedAccountsCount(ctx context.Context) int
}

// KeyIssuer manages operator API key secrets.
type KeyIssuer interface {
	Issue(ctx context.Context, account id.Address) (string, error)
	Revoke(ctx context.Context, account id.Address)
}

// Handler wires authorization endpoints to the authz service.
type Handler struct {
	service Service
	keys    KeyIssuer
	logger  *slog.Logger
	auditor audit.Auditor
}

func New(service Service, keys KeyIssuer, logger *slog.Logger, auditor audit.Auditor) *Handler {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Handler{service: service, keys: keys, logger: logger, auditor: auditor}
}

// RegisterAuthenticated mounts the admin authorization endpoints.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/authz/capabilities", h.HandleCapability)
	r.Post("/authz/accounts", h.HandleAccount)
	r.Get("/authz/accounts/{address}", h.HandleAccountStatus)
	if h.keys != nil {
		r.Post("/authz/apikeys", h.HandleIssueKey)
		r.Delete("/authz/apikeys", h.HandleRevokeKey)
	}
}

type capabilityRequest struct {
	Account    string `json:"account"`
	Capability string `json:"capability"`
	Granted    bool   `json:"granted"`
}

// HandleCapability handles POST /authz/capabilities.
func (h *Handler) HandleCapability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[capabilityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	account, err := id.ParseAddress(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Capability == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "capability is required"))
		return
	}
	capability := id.Capability(req.Capability)

	op, event := h.service.Grant, audit.EventCapabilityGranted
	if !req.Granted {
		op, event = h.service.Revoke, audit.EventCapabilityRevoked
	}
	if err := op(ctx, actor, account, capability); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auditor.Record(ctx, audit.Event{
		Category: event.Category(),
		Actor:    actor,
		Subject:  account,
		Action:   string(event),
		Reason:   string(capability),
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type accountRequest struct {
	Account    string `json:"account"`
	Authorized bool   `json:"authorized"`
}

// HandleAccount handles POST /authz/accounts, toggling a customer's
// whitelist entry.
func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.Decode[accountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	account, err := id.ParseAddress(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	op, event := h.service.AuthorizeAccount, audit.EventAccountAuthorized
	if !req.Authorized {
		op, event = h.service.DeauthorizeAccount, audit.EventAccountDeauthorized
	}
	if err := op(ctx, actor, account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auditor.Record(ctx, audit.Event{
		Category: event.Category(),
		Actor:    actor,
		Subject:  account,
		Action:   string(event),
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type accountStatusResponse struct {
	Address    string `json:"address"`
	Authorized bool   `json:"authorized"`
	TotalCount int    `json:"total_authorized"`
}

// HandleAccountStatus handles GET /authz/accounts/{address}.
func (h *Handler) HandleAccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accountStatusResponse{
		Address:    account.String(),
		Authorized: h.service.IsAccountAuthorized(ctx, account),
		TotalCount: h.service.AuthorizedAccountsCount(ctx),
	})
}

type issueKeyResponse struct {
	Account string `json:"account"`
	Secret  string `json:"secret"`
}

// HandleIssueKey handles POST /authz/apikeys. The secret is returned once
// and never stored in the clear; issuing again rotates it.
func (h *Handler) HandleIssueKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	secret, err := h.keys.Issue(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "api key issued",
		"account", actor,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, issueKeyResponse{
		Account: actor.String(),
		Secret:  secret,
	})
}

// HandleRevokeKey handles DELETE /authz/apikeys.
func (h *Handler) HandleRevokeKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	h.keys.Revoke(ctx, actor)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (id.Address, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return actor, true
}
