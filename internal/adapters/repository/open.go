package repository

import (
	"context"
	"fmt"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/pkg/logger"
)

// Store bundles one collection per record kind.
type Store struct {
	Employees         Collection[model.Employee]
	Departments       Collection[model.Department]
	Benefits          Collection[model.Benefit]
	Trainings         Collection[model.Training]
	Shifts            Collection[model.Shift]
	Candidates        Collection[model.Candidate]
	EvaluationForms   Collection[model.EvaluationForm]
	EvaluationPeriods Collection[model.EvaluationPeriod]
	Evaluations       Collection[model.Evaluation]

	driver string
	close  func(ctx context.Context) error
}

// NewMemoryStore returns a Store backed entirely by in-process collections.
func NewMemoryStore() *Store {
	s, _ := Open(context.Background(), DriverMemory)
	return s
}

// Open connects to the selected driver and returns a Store for every kind.
func Open(ctx context.Context, driver string, opts ...Option) (*Store, error) {
	o := &openOptions{mongoDatabase: defaultMongoDatabase}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{driver: driver, close: func(context.Context) error { return nil }}
	switch driver {
	case "", DriverMemory:
		s.driver = DriverMemory
		s.Employees = NewMemoryCollection[model.Employee]()
		s.Departments = NewMemoryCollection[model.Department]()
		s.Benefits = NewMemoryCollection[model.Benefit]()
		s.Trainings = NewMemoryCollection[model.Training]()
		s.Shifts = NewMemoryCollection[model.Shift]()
		s.Candidates = NewMemoryCollection[model.Candidate]()
		s.EvaluationForms = NewMemoryCollection[model.EvaluationForm]()
		s.EvaluationPeriods = NewMemoryCollection[model.EvaluationPeriod]()
		s.Evaluations = NewMemoryCollection[model.Evaluation]()

	case DriverPostgres:
		if o.postgresDSN == "" {
			return nil, fmt.Errorf("%w: postgres dsn", ErrMissingConnection)
		}
		db, err := ConnectPostgres(ctx, o.postgresDSN)
		if err != nil {
			return nil, err
		}
		s.Employees = NewPostgresCollection[model.Employee](db, model.KindEmployees)
		s.Departments = NewPostgresCollection[model.Department](db, model.KindDepartments)
		s.Benefits = NewPostgresCollection[model.Benefit](db, model.KindBenefits)
		s.Trainings = NewPostgresCollection[model.Training](db, model.KindTrainings)
		s.Shifts = NewPostgresCollection[model.Shift](db, model.KindShifts)
		s.Candidates = NewPostgresCollection[model.Candidate](db, model.KindCandidates)
		s.EvaluationForms = NewPostgresCollection[model.EvaluationForm](db, model.KindEvaluationForms)
		s.EvaluationPeriods = NewPostgresCollection[model.EvaluationPeriod](db, model.KindEvaluationPeriods)
		s.Evaluations = NewPostgresCollection[model.Evaluation](db, model.KindEvaluations)
		s.close = func(context.Context) error { return db.Close() }

	case DriverMongo:
		if o.mongoURI == "" {
			return nil, fmt.Errorf("%w: mongo uri", ErrMissingConnection)
		}
		client, err := ConnectMongo(ctx, o.mongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(o.mongoDatabase)
		s.Employees = NewMongoCollection[model.Employee](db, model.KindEmployees)
		s.Departments = NewMongoCollection[model.Department](db, model.KindDepartments)
		s.Benefits = NewMongoCollection[model.Benefit](db, model.KindBenefits)
		s.Trainings = NewMongoCollection[model.Training](db, model.KindTrainings)
		s.Shifts = NewMongoCollection[model.Shift](db, model.KindShifts)
		s.Candidates = NewMongoCollection[model.Candidate](db, model.KindCandidates)
		s.EvaluationForms = NewMongoCollection[model.EvaluationForm](db, model.KindEvaluationForms)
		s.EvaluationPeriods = NewMongoCollection[model.EvaluationPeriod](db, model.KindEvaluationPeriods)
		s.Evaluations = NewMongoCollection[model.Evaluation](db, model.KindEvaluations)
		s.close = client.Disconnect

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	if o.instrument {
		s.instrument()
	}
	if o.log != nil {
		o.log.Info(ctx, "storage opened", logger.String("driver", s.driver), logger.Bool("metrics", o.instrument))
	}
	return s, nil
}

func (s *Store) instrument() {
	s.Employees = Instrument(s.Employees, model.KindEmployees)
	s.Departments = Instrument(s.Departments, model.KindDepartments)
	s.Benefits = Instrument(s.Benefits, model.KindBenefits)
	s.Trainings = Instrument(s.Trainings, model.KindTrainings)
	s.Shifts = Instrument(s.Shifts, model.KindShifts)
	s.Candidates = Instrument(s.Candidates, model.KindCandidates)
	s.EvaluationForms = Instrument(s.EvaluationForms, model.KindEvaluationForms)
	s.EvaluationPeriods = Instrument(s.EvaluationPeriods, model.KindEvaluationPeriods)
	s.Evaluations = Instrument(s.Evaluations, model.KindEvaluations)
}

// Driver returns the name of the backing driver.
func (s *Store) Driver() string { return s.driver }

// Counts returns the number of records per kind.
func (s *Store) Counts(ctx context.Context) (map[model.Kind]int, error) {
	counters := map[model.Kind]interface {
		Count(ctx context.Context) (int, error)
	}{
		model.KindEmployees:         s.Employees,
		model.KindDepartments:       s.Departments,
		model.KindBenefits:          s.Benefits,
		model.KindTrainings:         s.Trainings,
		model.KindShifts:            s.Shifts,
		model.KindCandidates:        s.Candidates,
		model.KindEvaluationForms:   s.EvaluationForms,
		model.KindEvaluationPeriods: s.EvaluationPeriods,
		model.KindEvaluations:       s.Evaluations,
	}
	out := make(map[model.Kind]int, len(counters))
	for kind, c := range counters {
		n, err := c.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", kind, err)
		}
		out[kind] = n
	}
	return out, nil
}

// Close releases the underlying connection, if any.
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}
