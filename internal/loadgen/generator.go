package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/pkg/logger"
)

// Score profile cases, chosen uniformly per job.
const (
	caseAveragePerformer = iota
	caseHighPerformer
	caseLowPerformer
	casePartialReview
	caseWideRange
	profileCount
)

// randomInt returns a uniform integer in [lo, hi] using crypto/rand.
func randomInt(lo, hi int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		return lo
	}
	return lo + int(n.Int64())
}

// generateScores draws one score per criterion following a random profile.
// Partial reviews leave some criteria unscored, which lowers the result.
func generateScores(criteria []model.Criterion) []model.Score {
	lo, hi := model.MinScoreValue, model.MaxScoreValue
	partial := false
	switch randomInt(0, profileCount-1) {
	case caseAveragePerformer:
		lo, hi = 2, 4
	case caseHighPerformer:
		lo = 4
	case caseLowPerformer:
		hi = 2
	case casePartialReview:
		partial = true
	case caseWideRange:
	}

	scores := make([]model.Score, 0, len(criteria))
	for i, c := range criteria {
		if partial && i > 0 && randomInt(0, 1) == 0 {
			continue
		}
		scores = append(scores, model.Score{CriterionID: c.ID, Value: randomInt(lo, hi)})
	}
	return scores
}

// createEvaluations creates cfg.Evaluations draft evaluations spread over the
// given employees and returns one job per evaluation with its expected score.
func createEvaluations(ctx context.Context, client *HTTPClient, cfg *Config, form model.EvaluationForm, employees []model.Employee, stats *Stats) ([]Job, error) {
	if len(employees) == 0 {
		return nil, fmt.Errorf("no employees available")
	}
	logger.Get().Info(ctx, "creating evaluations",
		logger.Int("count", cfg.Evaluations),
		logger.String("formID", form.ID),
		logger.Int("employees", len(employees)))

	jobs := make([]Job, cfg.Evaluations)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range jobs {
		g.Go(func() error {
			emp := employees[i%len(employees)]
			var created model.Evaluation
			err := client.Post(gctx, evaluationsPath, model.Evaluation{
				EmployeeID: emp.ID,
				FormID:     form.ID,
				PeriodID:   cfg.PeriodID,
			}, nil, statusCreated, &created)
			if err != nil {
				return fmt.Errorf("create evaluation %d: %w", i, err)
			}
			scores := generateScores(form.Criteria)
			jobs[i] = Job{
				EvaluationID: created.ID,
				EmployeeID:   emp.ID,
				SubmissionID: uuid.NewString(),
				Scores:       scores,
				Expected:     scoring.ComputeOverallScore(form.Criteria, scores),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.EvaluationsCreated = len(jobs)
	logger.Get().Info(ctx, "created evaluations", logger.Int("count", len(jobs)))
	return jobs, nil
}
