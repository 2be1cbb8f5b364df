// Package scoring turns per-criterion reviewer scores into an evaluation's
// overall score.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/hrdesk/internal/domain/model"
)

// weightDivisor is the fixed denominator of the weighted sum. It assumes the
// weights of ALL criteria add up to 100, so criteria left unscored lower the
// result instead of being normalized away.
const weightDivisor = 100.0

// ComputeOverallScore returns the weighted overall score (0.0-5.0 for
// well-formed input) rounded to one decimal, half away from zero.
//
// Each criterion takes the first score whose CriterionID matches it.
// Criteria without a score are skipped and scores for unknown criteria are
// ignored. The weighted sum is always divided by 100, never by the weight of
// the criteria that were actually scored. Input is not validated; callers
// must ensure weights sum to 100 and values lie in [1,5].
func ComputeOverallScore(criteria []model.Criterion, scores []model.Score) float64 {
	if len(criteria) == 0 || len(scores) == 0 {
		return 0
	}

	byCriterion := make(map[string]int, len(scores))
	for _, s := range scores {
		if _, ok := byCriterion[s.CriterionID]; !ok {
			byCriterion[s.CriterionID] = s.Value
		}
	}

	var weightedSum, totalWeight float64
	for _, c := range criteria {
		value, ok := byCriterion[c.ID]
		if !ok {
			continue
		}
		weightedSum += float64(value) * c.Weight
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return 0
	}

	// round(x/100, 1) == round(x/10)/10; dividing by 10 first keeps exact
	// halves such as 405/100 = 4.05 away from binary representation error.
	return math.Round(weightedSum/(weightDivisor/10)) / 10
}

// Input is what a scorer needs to score one evaluation.
type Input struct {
	EvaluationID string
	Criteria     []model.Criterion
	Scores       []model.Score
}

// Result contains the computed overall score for an evaluation.
type Result struct {
	EvaluationID string
	OverallScore float64
	// Scored is the number of criteria that had a matching score.
	Scored int
}

// Scorer computes an evaluation's overall score.
type Scorer interface {
	// Score computes a result, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// WeightedScorer implements Scorer with ComputeOverallScore.
type WeightedScorer struct{}

// NewWeightedScorer creates a scorer backed by the weighted aggregator.
func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{}
}

// Score computes the overall score for the given input.
func (s *WeightedScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	return Result{
		EvaluationID: in.EvaluationID,
		OverallScore: ComputeOverallScore(in.Criteria, in.Scores),
		Scored:       countScored(in.Criteria, in.Scores),
	}, nil
}

func countScored(criteria []model.Criterion, scores []model.Score) int {
	ids := make(map[string]struct{}, len(scores))
	for _, s := range scores {
		ids[s.CriterionID] = struct{}{}
	}
	n := 0
	for _, c := range criteria {
		if _, ok := ids[c.ID]; ok {
			n++
		}
	}
	return n
}
