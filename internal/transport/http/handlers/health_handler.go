package handlers

import (
	"context"
	"net/http"

	httperrors "github.com/Appeals-service/Appeals-service/internal/transport/http/errors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage Pinger
}

func NewHealthHandler(storage Pinger) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// Healthcheck reports overall readiness including the database.
func (h *HealthHandler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeServiceUnavailable(w, "STORAGE_UNAVAILABLE", "storage is not configured")
		return
	}
	if err := h.storage.Ping(r.Context()); err != nil {
		writeServiceUnavailable(w, "STORAGE_UNAVAILABLE", "storage ping failed")
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthcheckApp reports process liveness only.
func (h *HealthHandler) HealthcheckApp(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
