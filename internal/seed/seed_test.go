package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/validation"
	"github.com/okian/hrdesk/internal/seed"
)

func TestDefault(t *testing.T) {
	fx, err := seed.Default()
	require.NoError(t, err)

	assert.Len(t, fx.Departments, 3)
	assert.Len(t, fx.Employees, 4)
	require.Len(t, fx.EvaluationForms, 1)
	assert.Len(t, fx.EvaluationForms[0].Criteria, 5)
	assert.True(t, fx.EvaluationForms[0].WeightsComplete())

	require.Len(t, fx.Evaluations, 2)
	assert.Equal(t, model.EvaluationSubmitted, fx.Evaluations[0].Status)
	assert.Equal(t, 4.1, fx.Evaluations[0].OverallScore, "sample scores 4,5,4,3,4 aggregate to 4.1")
	require.NotNil(t, fx.Evaluations[0].SubmittedAt)
	assert.Equal(t, 0.0, fx.Evaluations[1].OverallScore)

	assert.Equal(t, 2019, fx.Employees[0].HireDate.Year())
	assert.Equal(t, []string{"emp-001", "emp-002"}, fx.Trainings[1].Enrolled)
	assert.True(t, fx.Trainings[1].Full())
}

func TestParse_OverallScoreIsDerived(t *testing.T) {
	raw := []byte(`
evaluation_forms:
  - id: f1
    name: Short form
    criteria:
      - {id: a, weight: 60}
      - {id: b, weight: 40}
evaluations:
  - id: e1
    employee_id: emp
    form_id: f1
    status: submitted
    overall_score: 5
    scores:
      - {criterion_id: a, value: 3}
`)
	fx, err := seed.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.8, fx.Evaluations[0].OverallScore)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"malformed yaml": "departments: [",
		"invalid record": "employees:\n  - {id: e1, name: Ann, email: not-an-email}\n",
		"bad form weights": `
evaluation_forms:
  - id: f1
    name: Broken
    criteria: [{id: a, weight: 50}]
`,
		"unknown form": `
evaluations:
  - {id: e1, employee_id: emp, form_id: missing, status: submitted, scores: [{criterion_id: a, value: 3}]}
`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := seed.Parse([]byte(raw))
			assert.Error(t, err)
		})
	}

	_, err := seed.Parse([]byte("employees:\n  - {id: e1, name: Ann, email: nope}\n"))
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses the embedded fixtures", func(t *testing.T) {
		fx, err := seed.Load("")
		require.NoError(t, err)
		assert.Positive(t, fx.Total())
	})

	t.Run("file override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fixtures.yaml")
		require.NoError(t, os.WriteFile(path, []byte("departments:\n  - {id: d1, name: Ops, budget: 10}\n"), 0o600))

		fx, err := seed.Load(path)
		require.NoError(t, err)
		assert.Equal(t, 1, fx.Total())
		assert.Equal(t, "Ops", fx.Departments[0].Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := seed.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	fx, err := seed.Default()
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	require.NoError(t, seed.Apply(ctx, store, fx))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, fx.Total(), total)
	assert.Equal(t, len(fx.Employees), counts[model.KindEmployees])

	eval, err := store.Evaluations.Get(ctx, "eval-001")
	require.NoError(t, err)
	assert.Equal(t, 4.1, eval.OverallScore)

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, seed.Apply(cctx, repository.NewMemoryStore(), fx), context.Canceled)
	})
}
