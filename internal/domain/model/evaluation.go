package model

import (
	"math"
	"time"
)

// Score bounds accepted from reviewers.
const (
	MinScoreValue = 1
	MaxScoreValue = 5
	// TotalWeight is the sum every evaluation form's criteria weights must reach.
	TotalWeight = 100.0
)

// Evaluation statuses.
const (
	EvaluationDraft     = "draft"
	EvaluationSubmitted = "submitted"
)

// Criterion is one weighted dimension of an evaluation form.
type Criterion struct {
	ID          string  `json:"id" bson:"id" validate:"required"`
	Name        string  `json:"name,omitempty" bson:"name,omitempty"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	Weight      float64 `json:"weight" bson:"weight" validate:"gte=0,lte=100"`
}

// Score is a reviewer rating for a single criterion.
type Score struct {
	CriterionID string `json:"criterion_id" bson:"criterionId" validate:"required"`
	Value       int    `json:"value" bson:"value" validate:"gte=1,lte=5"`
}

// EvaluationForm groups the criteria used by evaluations in a period.
type EvaluationForm struct {
	ID          string      `json:"id" bson:"_id"`
	Name        string      `json:"name" bson:"name" validate:"required"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	Criteria    []Criterion `json:"criteria" bson:"criteria" validate:"required,min=1,dive"`
}

func (f EvaluationForm) RecordID() string   { return f.ID }
func (f EvaluationForm) SearchText() string { return joinText(f.Name, f.Description) }

// WithID returns a copy of the form carrying id.
func (f EvaluationForm) WithID(id string) EvaluationForm {
	f.ID = id
	return f
}

// WeightSum returns the sum of all criteria weights.
func (f EvaluationForm) WeightSum() float64 {
	var sum float64
	for _, c := range f.Criteria {
		sum += c.Weight
	}
	return sum
}

// WeightsComplete reports whether the criteria weights add up to TotalWeight.
func (f EvaluationForm) WeightsComplete() bool {
	return math.Abs(f.WeightSum()-TotalWeight) < 1e-9
}

// Criterion looks up a criterion by id.
func (f EvaluationForm) Criterion(id string) (Criterion, bool) {
	for _, c := range f.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

// EvaluationPeriod is the window during which evaluations using a form are collected.
type EvaluationPeriod struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required"`
	FormID    string    `json:"form_id" bson:"formId" validate:"required"`
	StartDate time.Time `json:"start_date" bson:"startDate" validate:"required"`
	EndDate   time.Time `json:"end_date" bson:"endDate" validate:"required,gtefield=StartDate"`
	Status    string    `json:"status" bson:"status" validate:"omitempty,oneof=planned active closed"`
}

func (p EvaluationPeriod) RecordID() string   { return p.ID }
func (p EvaluationPeriod) SearchText() string { return joinText(p.Name, p.Status) }

// WithID returns a copy of the period carrying id.
func (p EvaluationPeriod) WithID(id string) EvaluationPeriod {
	p.ID = id
	return p
}

// Evaluation is one employee's performance review. OverallScore is derived
// from Scores and is written only when scores are submitted.
type Evaluation struct {
	ID           string     `json:"id" bson:"_id"`
	EmployeeID   string     `json:"employee_id" bson:"employeeId" validate:"required"`
	ReviewerID   string     `json:"reviewer_id,omitempty" bson:"reviewerId,omitempty"`
	PeriodID     string     `json:"period_id,omitempty" bson:"periodId,omitempty"`
	FormID       string     `json:"form_id" bson:"formId" validate:"required"`
	Scores       []Score    `json:"scores" bson:"scores" validate:"dive"`
	OverallScore float64    `json:"overall_score" bson:"overallScore"`
	Status       string     `json:"status" bson:"status" validate:"omitempty,oneof=draft submitted"`
	Comments     string     `json:"comments,omitempty" bson:"comments,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty" bson:"submittedAt,omitempty"`
}

func (e Evaluation) RecordID() string { return e.ID }
func (e Evaluation) SearchText() string {
	return joinText(e.EmployeeID, e.ReviewerID, e.PeriodID, e.Status, e.Comments)
}

// WithID returns a copy of the evaluation carrying id.
func (e Evaluation) WithID(id string) Evaluation {
	e.ID = id
	return e
}

// Submitted reports whether scores have been recorded for the evaluation.
func (e Evaluation) Submitted() bool { return e.Status == EvaluationSubmitted }
