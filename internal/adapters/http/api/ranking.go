package api

import (
	"context"
	"net/http"

	"github.com/okian/hrdesk/internal/domain/types"
)

const defaultTopLimit = 10

// RankingDependencies defines the interface for evaluation rankings.
type RankingDependencies interface {
	TopEvaluations(ctx context.Context, limit int, periodID string) ([]types.RankedEvaluation, error)
}

// RankingHandler handles ranking requests.
type RankingHandler struct {
	deps RankingDependencies
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies) *RankingHandler {
	return &RankingHandler{deps: deps}
}

// HandleTopEvaluations handles GET /api/v1/evaluations/top?limit=N&period_id=
// requests.
func (h *RankingHandler) HandleTopEvaluations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q, "limit", defaultTopLimit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	ranked, err := h.deps.TopEvaluations(r.Context(), limit, q.Get("period_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}
