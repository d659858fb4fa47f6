package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/service"
	"github.com/hiddenpay/backend/pkg/address"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Open handles POST /api/accounts.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	owner, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.OpenAccountRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	account, err := h.svc.OpenAccount(r.Context(), owner, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, account)
}

// Deposit handles POST /api/accounts/{addr}/deposit (ADMIN ONLY — gated in router).
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req domain.DepositRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	addr := address.Address(chi.URLParam(r, "addr"))
	account, err := h.svc.Deposit(r.Context(), addr, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, account)
}

// Get handles GET /api/accounts/{addr}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	addr := address.Address(chi.URLParam(r, "addr"))
	account, err := h.svc.GetAccount(r.Context(), owner, addr)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, account)
}
