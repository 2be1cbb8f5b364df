package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/hrdesk/internal/domain/types"
)

// idempotencyHeader carries the submission id when the body omits it.
const idempotencyHeader = "Idempotency-Key"

// SubmissionDependencies defines the interface for score submission.
type SubmissionDependencies interface {
	Submit(ctx context.Context, evaluationID string, req types.SubmitRequest, sync bool) (types.SubmitResult, error)
}

// SubmissionsHandler handles reviewer score submissions.
type SubmissionsHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionDependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

// HandleSubmit handles POST /api/v1/evaluations/{id}/submit[?sync=true]
// requests. Accepted submissions answer 202, duplicates and synchronous
// submissions answer 200.
func (h *SubmissionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	sync, err := queryBool(r.URL.Query(), "sync")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req types.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SubmissionID) == "" {
		req.SubmissionID = strings.TrimSpace(r.Header.Get(idempotencyHeader))
	}

	res, err := h.deps.Submit(r.Context(), r.PathValue("id"), req, sync)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Status == types.SubmitAccepted {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}
