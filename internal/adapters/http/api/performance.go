package api

import (
	"context"
	"net/http"

	"github.com/okian/hrdesk/internal/domain/types"
)

// PerformanceDependencies defines the interface for employee summaries.
type PerformanceDependencies interface {
	EmployeePerformance(ctx context.Context, employeeID string) (types.PerformanceSummary, error)
}

// PerformanceHandler handles employee performance requests.
type PerformanceHandler struct {
	deps PerformanceDependencies
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(deps PerformanceDependencies) *PerformanceHandler {
	return &PerformanceHandler{deps: deps}
}

// HandlePerformance handles GET /api/v1/employees/{id}/performance requests.
func (h *PerformanceHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	summary, err := h.deps.EmployeePerformance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
