package handler

import (
	"net/http"

	"github.com/hiddenpay/backend/internal/service"
)

type PlatformHandler struct {
	svc *service.LedgerService
}

func NewPlatformHandler(svc *service.LedgerService) *PlatformHandler {
	return &PlatformHandler{svc: svc}
}

// Initialize handles POST /api/platform/initialize (ADMIN ONLY — gated in router).
func (h *PlatformHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	authority, ok := Identity(r)
	if !ok {
		unauthorized(w)
		return
	}

	platform, err := h.svc.Initialize(r.Context(), authority)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, platform)
}

// Get handles GET /api/platform: the global counters.
func (h *PlatformHandler) Get(w http.ResponseWriter, r *http.Request) {
	platform, err := h.svc.GetPlatform(r.Context())
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, platform)
}
