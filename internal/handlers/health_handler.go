// -----------------------------------------------------------------------
// Health Handler - liveness of the service and its collaborators
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/prospectus/internal/common"
)

// ServiceChecker reports liveness of one external collaborator.
type ServiceChecker func(ctx context.Context) bool

type HealthHandler struct {
	dbPing   func(ctx context.Context) error
	services map[string]ServiceChecker
}

func NewHealthHandler(dbPing func(ctx context.Context) error, services map[string]ServiceChecker) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, services: services}
}

// HealthHandler reports overall service health. Database connectivity is the
// only hard dependency; external collaborators are reported but degrade the
// status instead of failing it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	status := "healthy"
	code := http.StatusOK

	dbOK := true
	if err := h.dbPing(ctx); err != nil {
		dbOK = false
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	external := map[string]bool{}
	for name, check := range h.services {
		ok := check(ctx)
		external[name] = ok
		if !ok && status == "healthy" {
			status = "degraded"
		}
	}

	WriteJSON(w, code, map[string]interface{}{
		"status":   status,
		"version":  common.Version,
		"database": dbOK,
		"services": external,
	})
}
