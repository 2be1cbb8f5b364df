// Package types contains common types used across the application
package types

import "github.com/okian/hrdesk/internal/domain/model"

// RankedEvaluation is one row of the evaluation ranking.
type RankedEvaluation struct {
	Rank         int     `json:"rank"`
	EvaluationID string  `json:"evaluation_id"`
	EmployeeID   string  `json:"employee_id"`
	PeriodID     string  `json:"period_id,omitempty"`
	OverallScore float64 `json:"overall_score"`
}

// PerformanceSummary aggregates an employee's submitted evaluations.
type PerformanceSummary struct {
	EmployeeID   string             `json:"employee_id"`
	Evaluations  []model.Evaluation `json:"evaluations"`
	AverageScore float64            `json:"average_score"`
}

// ListResult wraps a page of records with the unpaged total.
type ListResult[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ListQuery selects a page of records. Limit <= 0 means the server maximum.
type ListQuery struct {
	Search string
	Offset int
	Limit  int
}

// SubmitRequest carries reviewer scores for one evaluation.
type SubmitRequest struct {
	SubmissionID string        `json:"submission_id,omitempty"`
	ReviewerID   string        `json:"reviewer_id,omitempty"`
	Scores       []model.Score `json:"scores"`
	Comments     string        `json:"comments,omitempty"`
}

// SubmitResult reports what happened to a submission.
type SubmitResult struct {
	Status       string            `json:"status"`
	SubmissionID string            `json:"submission_id"`
	Duplicate    bool              `json:"duplicate,omitempty"`
	Evaluation   *model.Evaluation `json:"evaluation,omitempty"`
}

// Submission outcomes reported in SubmitResult.Status.
const (
	SubmitAccepted  = "accepted"
	SubmitDuplicate = "duplicate"
	SubmitScored    = "scored"
	// SubmitStale reports a synchronous submission that arrived after a newer
	// one had already been applied; nothing was written.
	SubmitStale = "stale"
)
