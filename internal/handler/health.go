package handler

import (
	"net/http"

	"github.com/hiddenpay/backend/internal/store"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(st store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"store":  "ok",
	}
	code := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["store"] = "error"
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}
