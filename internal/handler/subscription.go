package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/service"
	"github.com/hiddenpay/backend/pkg/address"
)

type SubscriptionHandler struct {
	svc *service.LedgerService
}

func NewSubscriptionHandler(svc *service.LedgerService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

// Create handles POST /api/subscriptions: the purchase flow.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.SubscribeRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	subscription, err := h.svc.Subscribe(r.Context(), user, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, subscription)
}

// List handles GET /api/subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	subs, err := h.svc.ListUserSubscriptions(r.Context(), user)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, subs)
}

// Get handles GET /api/subscriptions/{addr}.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	addr := address.Address(chi.URLParam(r, "addr"))
	sub, err := h.svc.GetSubscription(r.Context(), user, addr)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, sub)
}

// Verify handles GET /api/subscriptions/{addr}/verify. Public: merchants
// use it to gate access for a presented pass.
func (h *SubscriptionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	addr := address.Address(chi.URLParam(r, "addr"))

	valid, err := h.svc.VerifySubscription(r.Context(), addr)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// UpdateProof handles PUT /api/subscriptions/{addr}/proof.
func (h *SubscriptionHandler) UpdateProof(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.UpdateProofRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	proof, err := domain.ProofFromHex(req.ProofHash)
	if err != nil {
		Error(w, domain.ErrValidation("proof must be a 32-byte hex string"))
		return
	}

	addr := address.Address(chi.URLParam(r, "addr"))
	sub, err := h.svc.UpdateProof(r.Context(), user, addr, proof)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, sub)
}

// Cancel handles DELETE /api/subscriptions/{addr}.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	addr := address.Address(chi.URLParam(r, "addr"))
	if err := h.svc.CancelSubscription(r.Context(), user, addr); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}
