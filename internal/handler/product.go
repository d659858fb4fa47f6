package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/service"
	"github.com/hiddenpay/backend/pkg/address"
)

type ProductHandler struct {
	svc *service.LedgerService
}

func NewProductHandler(svc *service.LedgerService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Create handles POST /api/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	authority, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.CreateProductRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), authority, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, product)
}

// SetActive handles PATCH /api/products/{addr}/active.
func (h *ProductHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	authority, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.SetProductActiveRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.Active == nil {
		Error(w, domain.ErrBadRequest("active is required"))
		return
	}

	addr := address.Address(chi.URLParam(r, "addr"))
	product, err := h.svc.SetProductActive(r.Context(), authority, addr, *req.Active)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, product)
}
