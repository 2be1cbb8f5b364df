package api

import (
	"context"
	"net/http"

	"github.com/okian/hrdesk/internal/domain/model"
)

// EnrollmentDependencies defines the interface for training enrollment.
type EnrollmentDependencies interface {
	Enroll(ctx context.Context, trainingID, employeeID string) (model.Training, error)
}

// EnrollmentHandler handles training enrollment requests.
type EnrollmentHandler struct {
	deps EnrollmentDependencies
}

// NewEnrollmentHandler creates a new enrollment handler.
func NewEnrollmentHandler(deps EnrollmentDependencies) *EnrollmentHandler {
	return &EnrollmentHandler{deps: deps}
}

type enrollRequest struct {
	EmployeeID string `json:"employee_id"`
}

// HandleEnroll handles POST /api/v1/trainings/{id}/enroll requests.
func (h *EnrollmentHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	training, err := h.deps.Enroll(r.Context(), r.PathValue("id"), req.EmployeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, training)
}
