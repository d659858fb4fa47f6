package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/service"
	"github.com/hiddenpay/backend/pkg/address"
)

type MerchantHandler struct {
	svc *service.LedgerService
}

func NewMerchantHandler(svc *service.LedgerService) *MerchantHandler {
	return &MerchantHandler{svc: svc}
}

// Create handles POST /api/merchants.
func (h *MerchantHandler) Create(w http.ResponseWriter, r *http.Request) {
	authority, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.CreateMerchantRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	merchant, err := h.svc.CreateMerchant(r.Context(), authority, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, merchant)
}

// Get handles GET /api/merchants/{addr}.
func (h *MerchantHandler) Get(w http.ResponseWriter, r *http.Request) {
	addr := address.Address(chi.URLParam(r, "addr"))

	merchant, err := h.svc.GetMerchant(r.Context(), addr)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, merchant)
}

// Verify handles POST /api/merchants/{addr}/verify (ADMIN ONLY — gated in router).
func (h *MerchantHandler) Verify(w http.ResponseWriter, r *http.Request) {
	addr := address.Address(chi.URLParam(r, "addr"))

	merchant, err := h.svc.VerifyMerchant(r.Context(), addr)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, merchant)
}

// ListProducts handles GET /api/merchants/{addr}/products.
func (h *MerchantHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	addr := address.Address(chi.URLParam(r, "addr"))

	products, err := h.svc.ListMerchantProducts(r.Context(), addr)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, products)
}
