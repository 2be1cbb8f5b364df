// Package validation checks HR records and reviewer submissions before they
// reach storage or the scoring pipeline.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/hrdesk/internal/domain/model"
)

// ErrInvalid is the kind carried by every ValidationError.
var ErrInvalid = errors.New("invalid input")

// ValidationError lists every rule an entity failed.
type ValidationError struct {
	Entity string
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %s", e.Entity, strings.Join(e.Errors, "; "))
}

// Unwrap lets callers match with errors.Is(err, ErrInvalid).
func (e *ValidationError) Unwrap() error { return ErrInvalid }

// AddError appends a failed rule.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors reports whether any rule failed.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// orNil returns e only when it carries errors.
func (e *ValidationError) orNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct runs the validate tags of v and reports failures against entity.
func Struct(entity string, v any) error {
	verr := &ValidationError{Entity: entity}
	collectStruct(verr, v)
	return verr.orNil()
}

func collectStruct(verr *ValidationError, v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.AddError(err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.AddError(describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match layout %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Form validates an evaluation form, including the rules the score
// aggregator relies on: unique criterion ids and weights summing to 100.
func Form(f model.EvaluationForm) error {
	verr := &ValidationError{Entity: "evaluation form"}
	collectStruct(verr, f)

	ids := make(map[string]struct{}, len(f.Criteria))
	for _, c := range f.Criteria {
		if _, dup := ids[c.ID]; dup && c.ID != "" {
			verr.AddError(fmt.Sprintf("criterion %q is defined more than once", c.ID))
		}
		ids[c.ID] = struct{}{}
	}
	if len(f.Criteria) > 0 && !f.WeightsComplete() {
		verr.AddError(fmt.Sprintf("criteria weights must sum to %g, got %g", model.TotalWeight, f.WeightSum()))
	}
	return verr.orNil()
}

// Submission validates reviewer scores against the evaluation's form before
// they are aggregated. Unlike the aggregator, it rejects duplicates, unknown
// criteria and out-of-range values.
func Submission(form model.EvaluationForm, scores []model.Score) error {
	verr := &ValidationError{Entity: "submission"}
	if !form.WeightsComplete() {
		verr.AddError(fmt.Sprintf("form %s criteria weights sum to %g, expected %g", form.ID, form.WeightSum(), model.TotalWeight))
	}
	if len(scores) == 0 {
		verr.AddError("at least one score is required")
	}

	seen := make(map[string]struct{}, len(scores))
	for _, s := range scores {
		if _, dup := seen[s.CriterionID]; dup {
			verr.AddError(fmt.Sprintf("criterion %q is scored more than once", s.CriterionID))
		}
		seen[s.CriterionID] = struct{}{}

		if _, ok := form.Criterion(s.CriterionID); !ok {
			verr.AddError(fmt.Sprintf("criterion %q is not part of form %s", s.CriterionID, form.ID))
		}
		if s.Value < model.MinScoreValue || s.Value > model.MaxScoreValue {
			verr.AddError(fmt.Sprintf("score for %q must be between %d and %d, got %d",
				s.CriterionID, model.MinScoreValue, model.MaxScoreValue, s.Value))
		}
	}
	return verr.orNil()
}
