// Package seed loads sample HR records into an empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/internal/domain/validation"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures holds one slice per record kind.
type Fixtures struct {
	Departments       []model.Department       `json:"departments"`
	Employees         []model.Employee         `json:"employees"`
	Benefits          []model.Benefit          `json:"benefits"`
	Trainings         []model.Training         `json:"trainings"`
	Shifts            []model.Shift            `json:"shifts"`
	Candidates        []model.Candidate        `json:"candidates"`
	EvaluationForms   []model.EvaluationForm   `json:"evaluation_forms"`
	EvaluationPeriods []model.EvaluationPeriod `json:"evaluation_periods"`
	Evaluations       []model.Evaluation       `json:"evaluations"`
}

// Default returns the embedded fixtures.
func Default() (*Fixtures, error) {
	return Parse(defaultFixtures)
}

// Load reads fixtures from path, or the embedded ones when path is empty.
func Load(path string) (*Fixtures, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML fixtures. Keys follow the JSON API field names, so the
// document is decoded generically and re-read through the json tags. Every
// record is validated and submitted evaluations get their overall score
// computed from their form.
func Parse(raw []byte) (*Fixtures, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	bridged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	fx := &Fixtures{}
	if err := json.Unmarshal(bridged, fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	if err := fx.scoreEvaluations(); err != nil {
		return nil, err
	}
	return fx, nil
}

func (fx *Fixtures) validate() error {
	check := func(kind model.Kind, id string, v any) error {
		if err := validation.Struct(string(kind), v); err != nil {
			return fmt.Errorf("fixture %s %s: %w", kind, id, err)
		}
		return nil
	}
	for _, r := range fx.Departments {
		if err := check(model.KindDepartments, r.ID, r); err != nil {
			return err
		}
	}
	for _, r := range fx.Employees {
		if err := check(model.KindEmployees, r.ID, r); err != nil {
			return err
		}
	}
	for _, r := range fx.Benefits {
		if err := check(model.KindBenefits, r.ID, r); err != nil {
			return err
		}
	}
	for _, r := range fx.Trainings {
		if err := check(model.KindTrainings, r.ID, r); err != nil {
			return err
		}
	}
	for _, r := range fx.Shifts {
		if err := check(model.KindShifts, r.ID, r); err != nil {
			return err
		}
	}
	for _, r := range fx.Candidates {
		if err := check(model.KindCandidates, r.ID, r); err != nil {
			return err
		}
	}
	for _, r := range fx.EvaluationForms {
		if err := validation.Form(r); err != nil {
			return fmt.Errorf("fixture %s %s: %w", model.KindEvaluationForms, r.ID, err)
		}
	}
	for _, r := range fx.EvaluationPeriods {
		if err := check(model.KindEvaluationPeriods, r.ID, r); err != nil {
			return err
		}
	}
	for _, r := range fx.Evaluations {
		if err := check(model.KindEvaluations, r.ID, r); err != nil {
			return err
		}
	}
	return nil
}

// scoreEvaluations derives OverallScore for submitted evaluations.
func (fx *Fixtures) scoreEvaluations() error {
	forms := make(map[string]model.EvaluationForm, len(fx.EvaluationForms))
	for _, f := range fx.EvaluationForms {
		forms[f.ID] = f
	}
	for i, e := range fx.Evaluations {
		if !e.Submitted() {
			fx.Evaluations[i].OverallScore = 0
			continue
		}
		form, ok := forms[e.FormID]
		if !ok {
			return fmt.Errorf("fixture evaluation %s: form %q not found", e.ID, e.FormID)
		}
		if err := validation.Submission(form, e.Scores); err != nil {
			return fmt.Errorf("fixture evaluation %s: %w", e.ID, err)
		}
		fx.Evaluations[i].OverallScore = scoring.ComputeOverallScore(form.Criteria, e.Scores)
	}
	return nil
}

// Apply writes every fixture into s, one goroutine per kind.
func Apply(ctx context.Context, s *repository.Store, fx *Fixtures) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return upsertAll(gctx, s.Departments, fx.Departments) })
	g.Go(func() error { return upsertAll(gctx, s.Employees, fx.Employees) })
	g.Go(func() error { return upsertAll(gctx, s.Benefits, fx.Benefits) })
	g.Go(func() error { return upsertAll(gctx, s.Trainings, fx.Trainings) })
	g.Go(func() error { return upsertAll(gctx, s.Shifts, fx.Shifts) })
	g.Go(func() error { return upsertAll(gctx, s.Candidates, fx.Candidates) })
	g.Go(func() error { return upsertAll(gctx, s.EvaluationForms, fx.EvaluationForms) })
	g.Go(func() error { return upsertAll(gctx, s.EvaluationPeriods, fx.EvaluationPeriods) })
	g.Go(func() error { return upsertAll(gctx, s.Evaluations, fx.Evaluations) })
	return g.Wait()
}

// Total returns the number of fixture records.
func (fx *Fixtures) Total() int {
	return len(fx.Departments) + len(fx.Employees) + len(fx.Benefits) + len(fx.Trainings) +
		len(fx.Shifts) + len(fx.Candidates) + len(fx.EvaluationForms) + len(fx.EvaluationPeriods) +
		len(fx.Evaluations)
}

func upsertAll[T model.Record](ctx context.Context, c repository.Collection[T], recs []T) error {
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Upsert(ctx, r); err != nil {
			return fmt.Errorf("seed %s: %w", r.RecordID(), err)
		}
	}
	return nil
}
