package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/hrdesk/internal/adapters/mq/queue"
	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/internal/domain/validation"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// mergeEvaluation keeps the fields only the submission path may write.
func mergeEvaluation(existing *model.Evaluation, rec model.Evaluation) model.Evaluation {
	if existing == nil {
		rec.Status = model.EvaluationDraft
		rec.OverallScore = 0
		rec.SubmittedAt = nil
		return rec
	}
	rec.Status = existing.Status
	rec.OverallScore = existing.OverallScore
	rec.SubmittedAt = existing.SubmittedAt
	if existing.Submitted() {
		// The stored score is derived from these.
		rec.Scores = existing.Scores
		rec.FormID = existing.FormID
	}
	return rec
}

// Submit validates reviewer scores for an evaluation and queues them for
// scoring. With sync set the scores are applied before Submit returns.
// A repeated submission id is reported as a duplicate and not applied again.
func (s *Service) Submit(ctx context.Context, evaluationID string, req types.SubmitRequest, sync bool) (types.SubmitResult, error) {
	ctx, span := s.startSpan(ctx, "Service.Submit",
		attribute.String("evaluation_id", evaluationID),
		attribute.Bool("sync", sync),
	)
	var err error
	defer func() { endSpan(span, err) }()

	eval, err := s.store.Evaluations.Get(ctx, evaluationID)
	if err != nil {
		err = fmt.Errorf("evaluation %s: %w", evaluationID, err)
		return types.SubmitResult{}, err
	}
	form, err := s.store.EvaluationForms.Get(ctx, eval.FormID)
	if err != nil {
		err = fmt.Errorf("form %s of evaluation %s: %w", eval.FormID, evaluationID, err)
		return types.SubmitResult{}, err
	}
	if err = validation.Submission(form, req.Scores); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return types.SubmitResult{}, err
	}

	id := strings.TrimSpace(req.SubmissionID)
	if id == "" {
		id = uuid.NewString()
	}
	span.SetAttributes(attribute.String("submission_id", id))

	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission, skipping",
			logger.String("submission_id", id),
			logger.String("evaluation_id", evaluationID),
		)
		return types.SubmitResult{Status: types.SubmitDuplicate, SubmissionID: id, Duplicate: true}, nil
	}
	metrics.RecordSubmissionReceived()

	sub := model.Submission{
		SubmissionID: id,
		EvaluationID: evaluationID,
		ReviewerID:   req.ReviewerID,
		Scores:       slices.Clone(req.Scores),
		Comments:     req.Comments,
		ReceivedAt:   time.Now().UTC(),
	}

	if sync {
		var (
			updated model.Evaluation
			applied bool
		)
		updated, applied, err = s.scoreNow(ctx, sub)
		if err != nil {
			s.deduper.Unrecord(ctx, id)
			return types.SubmitResult{}, err
		}
		status := types.SubmitScored
		if !applied {
			status = types.SubmitStale
		}
		return types.SubmitResult{Status: status, SubmissionID: id, Evaluation: &updated}, nil
	}

	if err = s.enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, id)
		return types.SubmitResult{}, err
	}
	return types.SubmitResult{Status: types.SubmitAccepted, SubmissionID: id}, nil
}

func (s *Service) enqueue(ctx context.Context, sub model.Submission) error {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotRunning
	}

	err := q.Enqueue(ctx, sub)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrFull):
		metrics.RecordSubmissionRejected("backpressure")
		s.logger.Warn(ctx, "submission queue full",
			logger.String("submission_id", sub.SubmissionID),
			logger.Int("capacity", q.Cap()),
		)
		return fmt.Errorf("enqueue %s: %w", sub.SubmissionID, ErrBackpressure)
	case errors.Is(err, queue.ErrClosed):
		return fmt.Errorf("enqueue %s: %w", sub.SubmissionID, ErrNotRunning)
	default:
		return fmt.Errorf("enqueue %s: %w", sub.SubmissionID, err)
	}
}

// scoreNow runs the worker path inline. applied is false when the
// submission was older than the one already stored.
func (s *Service) scoreNow(ctx context.Context, sub model.Submission) (model.Evaluation, bool, error) {
	in, err := s.ScoringInput(ctx, sub)
	if err != nil {
		return model.Evaluation{}, false, err
	}
	start := time.Now()
	res, err := s.scorer.Score(ctx, in)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordScoringError()
		return model.Evaluation{}, false, fmt.Errorf("score submission %s: %w", sub.SubmissionID, err)
	}
	updated, applied, err := s.applyScore(ctx, sub, res)
	if err != nil {
		return model.Evaluation{}, false, err
	}
	if applied {
		metrics.RecordEvaluationScored(res.OverallScore)
	}
	return updated, applied, nil
}

// ScoringInput resolves the form criteria a submission is scored against.
func (s *Service) ScoringInput(ctx context.Context, sub model.Submission) (scoring.Input, error) {
	eval, err := s.store.Evaluations.Get(ctx, sub.EvaluationID)
	if err != nil {
		return scoring.Input{}, fmt.Errorf("evaluation %s: %w", sub.EvaluationID, err)
	}
	form, err := s.store.EvaluationForms.Get(ctx, eval.FormID)
	if err != nil {
		return scoring.Input{}, fmt.Errorf("form %s: %w", eval.FormID, err)
	}
	return scoring.Input{
		EvaluationID: eval.ID,
		Criteria:     form.Criteria,
		Scores:       sub.Scores,
	}, nil
}

// ApplyScore stores the scored submission on its evaluation.
func (s *Service) ApplyScore(ctx context.Context, sub model.Submission, res scoring.Result) error {
	_, _, err := s.applyScore(ctx, sub, res)
	return err
}

// applyScore writes scores, overall score and submission time. A submission
// received before the one already applied is dropped and reported with
// applied == false alongside the stored evaluation.
func (s *Service) applyScore(ctx context.Context, sub model.Submission, res scoring.Result) (model.Evaluation, bool, error) {
	ctx, span := s.startSpan(ctx, "Service.ApplyScore",
		attribute.String("evaluation_id", sub.EvaluationID),
		attribute.String("submission_id", sub.SubmissionID),
		attribute.Float64("overall_score", res.OverallScore),
	)
	var err error
	defer func() { endSpan(span, err) }()

	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	eval, err := s.store.Evaluations.Get(ctx, sub.EvaluationID)
	if err != nil {
		err = fmt.Errorf("evaluation %s: %w", sub.EvaluationID, err)
		return model.Evaluation{}, false, err
	}

	received := sub.ReceivedAt
	if received.IsZero() {
		received = time.Now().UTC()
	}
	if eval.SubmittedAt != nil && received.Before(*eval.SubmittedAt) {
		metrics.RecordSubmissionRejected("stale")
		s.logger.Debug(ctx, "stale submission dropped",
			logger.String("submission_id", sub.SubmissionID),
			logger.String("evaluation_id", sub.EvaluationID),
		)
		return eval, false, nil
	}

	eval.Scores = slices.Clone(sub.Scores)
	eval.OverallScore = res.OverallScore
	eval.Status = model.EvaluationSubmitted
	eval.SubmittedAt = &received
	if sub.ReviewerID != "" {
		eval.ReviewerID = sub.ReviewerID
	}
	if sub.Comments != "" {
		eval.Comments = sub.Comments
	}

	if err = s.store.Evaluations.Upsert(ctx, eval); err != nil {
		err = fmt.Errorf("store evaluation %s: %w", eval.ID, err)
		return model.Evaluation{}, false, err
	}
	s.logger.Info(ctx, "evaluation scored",
		logger.String("evaluation_id", eval.ID),
		logger.String("submission_id", sub.SubmissionID),
		logger.Float64("overall_score", eval.OverallScore),
	)
	return eval, true, nil
}

// Preview computes the overall score for ad-hoc criteria and scores without
// storing anything. Input is not validated.
func (s *Service) Preview(criteria []model.Criterion, scores []model.Score) float64 {
	return scoring.ComputeOverallScore(criteria, scores)
}

// TopEvaluations ranks submitted evaluations by overall score, highest
// first, breaking ties by evaluation id. periodID restricts the ranking to
// one evaluation period when set.
func (s *Service) TopEvaluations(ctx context.Context, limit int, periodID string) ([]types.RankedEvaluation, error) {
	ctx, span := s.startSpan(ctx, "Service.TopEvaluations",
		attribute.Int("limit", limit),
		attribute.String("period_id", periodID),
	)
	var err error
	defer func() { endSpan(span, err) }()

	if limit < 1 || limit > s.maxListLimit {
		err = &validation.ValidationError{
			Entity: "ranking",
			Errors: []string{fmt.Sprintf("limit must be between 1 and %d", s.maxListLimit)},
		}
		return nil, err
	}

	submitted, err := s.submittedEvaluations(ctx, func(e model.Evaluation) bool {
		return periodID == "" || e.PeriodID == periodID
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(submitted, func(a, b model.Evaluation) int {
		switch {
		case a.OverallScore > b.OverallScore:
			return -1
		case a.OverallScore < b.OverallScore:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})

	n := min(limit, len(submitted))
	ranked := make([]types.RankedEvaluation, n)
	for i, e := range submitted[:n] {
		ranked[i] = types.RankedEvaluation{
			Rank:         i + 1,
			EvaluationID: e.ID,
			EmployeeID:   e.EmployeeID,
			PeriodID:     e.PeriodID,
			OverallScore: e.OverallScore,
		}
	}
	return ranked, nil
}

// EmployeePerformance summarizes an employee's submitted evaluations. The
// average is rounded to one decimal and is 0 when nothing was submitted.
func (s *Service) EmployeePerformance(ctx context.Context, employeeID string) (types.PerformanceSummary, error) {
	ctx, span := s.startSpan(ctx, "Service.EmployeePerformance", attribute.String("employee_id", employeeID))
	var err error
	defer func() { endSpan(span, err) }()

	if _, err = s.store.Employees.Get(ctx, employeeID); err != nil {
		err = fmt.Errorf("employee %s: %w", employeeID, err)
		return types.PerformanceSummary{}, err
	}

	evals, err := s.submittedEvaluations(ctx, func(e model.Evaluation) bool {
		return e.EmployeeID == employeeID
	})
	if err != nil {
		return types.PerformanceSummary{}, err
	}

	summary := types.PerformanceSummary{EmployeeID: employeeID, Evaluations: evals}
	if len(evals) > 0 {
		var sum float64
		for _, e := range evals {
			sum += e.OverallScore
		}
		summary.AverageScore = math.Round(sum/float64(len(evals))*10) / 10
	}
	return summary, nil
}

func (s *Service) submittedEvaluations(ctx context.Context, keep func(model.Evaluation) bool) ([]model.Evaluation, error) {
	all, _, err := s.store.Evaluations.List(ctx, repository.Query{})
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	out := make([]model.Evaluation, 0, len(all))
	for _, e := range all {
		if e.Submitted() && keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
