package api

import (
	"fmt"
	"math"
	"net/http"

	"github.com/okian/hrdesk/internal/domain/model"
)

// PreviewDependencies defines the interface for score previews.
type PreviewDependencies interface {
	Preview(criteria []model.Criterion, scores []model.Score) float64
}

// PreviewHandler computes overall scores without storing them.
type PreviewHandler struct {
	deps PreviewDependencies
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(deps PreviewDependencies) *PreviewHandler {
	return &PreviewHandler{deps: deps}
}

type previewRequest struct {
	Criteria []model.Criterion `json:"criteria"`
	Scores   []model.Score     `json:"scores"`
}

type previewResponse struct {
	OverallScore float64 `json:"overall_score"`
}

// HandlePreview handles POST /api/v1/scoring/preview requests.
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	score := h.deps.Preview(req.Criteria, req.Scores)
	if math.IsInf(score, 0) || math.IsNaN(score) {
		writeServiceError(w, r, fmt.Errorf("%w: overall score is not a finite number", ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{OverallScore: score})
}
