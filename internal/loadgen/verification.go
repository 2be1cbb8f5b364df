package loadgen

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/pkg/logger"
)

// verifyScores polls the stored evaluations until every applied job has been
// scored or cfg.Wait elapses, comparing each stored overall score with the
// one computed locally when the job was generated. Evaluations still in draft
// at the deadline are reported as mismatches.
func verifyScores(ctx context.Context, client *HTTPClient, cfg *Config, jobs []Job, stats *Stats) ([]Mismatch, error) {
	logger.Get().Info(ctx, "verifying stored scores", logger.Duration("wait", cfg.Wait))

	deadline := time.Now().Add(cfg.Wait)
	var pending []Job
	for _, job := range jobs {
		if applied(job.Outcome) {
			pending = append(pending, job)
		}
	}

	var mismatches []Mismatch
	for {
		stored, err := fetchEvaluations(ctx, client, cfg.Workers, pending)
		if err != nil {
			return nil, err
		}

		var next []Job
		for i, job := range pending {
			ev := stored[i]
			if !ev.Submitted() {
				next = append(next, job)
				continue
			}
			if ev.OverallScore != job.Expected {
				mismatches = append(mismatches, Mismatch{
					EvaluationID: job.EvaluationID,
					Status:       ev.Status,
					Expected:     job.Expected,
					Stored:       ev.OverallScore,
				})
				continue
			}
			stats.Verified++
		}
		pending = next

		if len(pending) == 0 || !time.Now().Before(deadline) {
			break
		}
		if cfg.Verbose {
			logger.Get().Info(ctx, "waiting for scoring", logger.Int("pending", len(pending)))
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("verification interrupted: %w", ctx.Err())
		case <-time.After(PollInterval):
		}
	}

	for _, job := range pending {
		mismatches = append(mismatches, Mismatch{
			EvaluationID: job.EvaluationID,
			Status:       model.EvaluationDraft,
			Expected:     job.Expected,
		})
	}
	stats.Mismatched = len(mismatches)

	for _, m := range mismatches {
		logger.Get().Error(ctx, "stored score mismatch",
			logger.String("evaluationID", m.EvaluationID),
			logger.String("status", m.Status),
			logger.Float64("expected", m.Expected),
			logger.Float64("stored", m.Stored))
	}
	logger.Get().Info(ctx, "verification completed",
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("skipped", len(jobs)-stats.Verified-stats.Mismatched))
	return mismatches, nil
}

// fetchEvaluations loads the stored evaluation of every job concurrently.
// The result is index-aligned with jobs.
func fetchEvaluations(ctx context.Context, client *HTTPClient, workers int, jobs []Job) ([]model.Evaluation, error) {
	out := make([]model.Evaluation, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			var ev model.Evaluation
			if err := client.Get(gctx, evaluationsPath+"/"+job.EvaluationID, statusOK, &ev); err != nil {
				return fmt.Errorf("fetch evaluation %s: %w", job.EvaluationID, err)
			}
			out[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
