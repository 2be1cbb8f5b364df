package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/internal/domain/validation"
	"github.com/okian/hrdesk/pkg/logger"
)

// Records manages one kind of HR record.
type Records[T model.Entity[T]] struct {
	svc  *Service
	kind model.Kind
	coll repository.Collection[T]

	// validate checks a record on its own; defaults to its struct tags.
	validate func(rec T) error
	// check verifies references to other records.
	check func(ctx context.Context, rec T) error
	// merge prepares rec for storage. existing is nil on create.
	merge func(existing *T, rec T) T
	// lock, when set, is shared with other writers of the kind.
	lock sync.Locker
}

func newRecords[T model.Entity[T]](svc *Service, kind model.Kind, coll repository.Collection[T]) *Records[T] {
	return &Records[T]{
		svc:  svc,
		kind: kind,
		coll: coll,
		validate: func(rec T) error {
			return validation.Struct(string(kind), rec)
		},
	}
}

func (s *Service) initRecords() {
	st := s.store
	s.Employees = newRecords(s, model.KindEmployees, st.Employees)
	s.Departments = newRecords(s, model.KindDepartments, st.Departments)
	s.Benefits = newRecords(s, model.KindBenefits, st.Benefits)
	s.Candidates = newRecords(s, model.KindCandidates, st.Candidates)

	s.Trainings = newRecords(s, model.KindTrainings, st.Trainings)
	s.Trainings.check = checkTrainingSeats
	s.Trainings.merge = mergeTraining
	s.Trainings.lock = &s.trainMu

	s.Shifts = newRecords(s, model.KindShifts, st.Shifts)
	s.Shifts.check = func(ctx context.Context, sh model.Shift) error {
		return s.requireRefs(ctx, "shift", ref{"employee_id", sh.EmployeeID, s.employeeExists})
	}

	s.EvaluationForms = newRecords(s, model.KindEvaluationForms, st.EvaluationForms)
	s.EvaluationForms.validate = validation.Form

	s.EvaluationPeriods = newRecords(s, model.KindEvaluationPeriods, st.EvaluationPeriods)
	s.EvaluationPeriods.check = func(ctx context.Context, p model.EvaluationPeriod) error {
		return s.requireRefs(ctx, "evaluation period", ref{"form_id", p.FormID, s.formExists})
	}

	s.Evaluations = newRecords(s, model.KindEvaluations, st.Evaluations)
	s.Evaluations.check = func(ctx context.Context, e model.Evaluation) error {
		return s.requireRefs(ctx, "evaluation",
			ref{"employee_id", e.EmployeeID, s.employeeExists},
			ref{"form_id", e.FormID, s.formExists},
		)
	}
	s.Evaluations.merge = mergeEvaluation
	s.Evaluations.lock = &s.evalMu
}

// Kind returns the record kind managed by r.
func (r *Records[T]) Kind() model.Kind { return r.kind }

// List returns a page of records matching q. Limits outside
// [1, max list limit] are clamped to the maximum.
func (r *Records[T]) List(ctx context.Context, q types.ListQuery) (types.ListResult[T], error) {
	ctx, span := r.svc.startSpan(ctx, "Records.List",
		attribute.String("collection", string(r.kind)),
		attribute.String("search", q.Search),
	)
	var err error
	defer func() { endSpan(span, err) }()

	limit := q.Limit
	if limit <= 0 || limit > r.svc.maxListLimit {
		limit = r.svc.maxListLimit
	}
	offset := max(q.Offset, 0)

	items, total, err := r.coll.List(ctx, repository.Query{Search: q.Search, Offset: offset, Limit: limit})
	if err != nil {
		return types.ListResult[T]{}, fmt.Errorf("list %s: %w", r.kind, err)
	}
	if items == nil {
		items = []T{}
	}
	return types.ListResult[T]{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}

// Get returns the record with id.
func (r *Records[T]) Get(ctx context.Context, id string) (T, error) {
	ctx, span := r.svc.startSpan(ctx, "Records.Get",
		attribute.String("collection", string(r.kind)),
		attribute.String("id", id),
	)
	rec, err := r.coll.Get(ctx, id)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", r.kind, id, err)
	}
	endSpan(span, err)
	return rec, err
}

// Create stores a new record, generating an id when rec has none.
func (r *Records[T]) Create(ctx context.Context, rec T) (T, error) {
	ctx, span := r.svc.startSpan(ctx, "Records.Create", attribute.String("collection", string(r.kind)))
	var err error
	defer func() { endSpan(span, err) }()
	r.acquire()
	defer r.release()

	if rec.RecordID() == "" {
		rec = rec.WithID(uuid.NewString())
	} else {
		_, getErr := r.coll.Get(ctx, rec.RecordID())
		switch {
		case getErr == nil:
			err = fmt.Errorf("%s %s already exists: %w", r.kind, rec.RecordID(), ErrConflict)
			return rec, err
		case !errors.Is(getErr, repository.ErrNotFound):
			err = fmt.Errorf("create %s: %w", r.kind, getErr)
			return rec, err
		}
	}
	span.SetAttributes(attribute.String("id", rec.RecordID()))

	rec, err = r.save(ctx, nil, rec)
	if err != nil {
		return rec, err
	}
	r.svc.logger.Debug(ctx, "record created",
		logger.String("collection", string(r.kind)),
		logger.String("id", rec.RecordID()),
	)
	return rec, nil
}

// Update replaces the record with id, creating it when absent.
func (r *Records[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	ctx, span := r.svc.startSpan(ctx, "Records.Update",
		attribute.String("collection", string(r.kind)),
		attribute.String("id", id),
	)
	var err error
	defer func() { endSpan(span, err) }()

	r.acquire()
	defer r.release()

	rec = rec.WithID(id)
	var existing *T
	current, getErr := r.coll.Get(ctx, id)
	switch {
	case getErr == nil:
		existing = &current
	case !errors.Is(getErr, repository.ErrNotFound):
		err = fmt.Errorf("update %s %s: %w", r.kind, id, getErr)
		return rec, err
	}

	rec, err = r.save(ctx, existing, rec)
	return rec, err
}

func (r *Records[T]) acquire() {
	if r.lock != nil {
		r.lock.Lock()
	}
}

func (r *Records[T]) release() {
	if r.lock != nil {
		r.lock.Unlock()
	}
}

func (r *Records[T]) save(ctx context.Context, existing *T, rec T) (T, error) {
	if r.merge != nil {
		rec = r.merge(existing, rec)
	}
	if err := r.validate(rec); err != nil {
		return rec, err
	}
	if r.check != nil {
		if err := r.check(ctx, rec); err != nil {
			return rec, err
		}
	}
	if err := r.coll.Upsert(ctx, rec); err != nil {
		return rec, fmt.Errorf("store %s %s: %w", r.kind, rec.RecordID(), err)
	}
	return rec, nil
}

// Delete removes the record with id.
func (r *Records[T]) Delete(ctx context.Context, id string) error {
	ctx, span := r.svc.startSpan(ctx, "Records.Delete",
		attribute.String("collection", string(r.kind)),
		attribute.String("id", id),
	)
	r.acquire()
	defer r.release()

	err := r.coll.Delete(ctx, id)
	if err != nil {
		err = fmt.Errorf("delete %s %s: %w", r.kind, id, err)
	} else {
		r.svc.logger.Debug(ctx, "record deleted",
			logger.String("collection", string(r.kind)),
			logger.String("id", id),
		)
	}
	endSpan(span, err)
	return err
}

// ref names a field that must point at an existing record.
type ref struct {
	field  string
	id     string
	exists func(ctx context.Context, id string) (bool, error)
}

// requireRefs reports every non-empty reference that does not resolve.
func (s *Service) requireRefs(ctx context.Context, entity string, refs ...ref) error {
	verr := &validation.ValidationError{Entity: entity}
	for _, rf := range refs {
		if rf.id == "" {
			continue
		}
		ok, err := rf.exists(ctx, rf.id)
		if err != nil {
			return err
		}
		if !ok {
			verr.AddError(fmt.Sprintf("%s references unknown record %q", rf.field, rf.id))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (s *Service) employeeExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, s.store.Employees, id)
}

func (s *Service) formExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, s.store.EvaluationForms, id)
}

func exists[T model.Record](ctx context.Context, c repository.Collection[T], id string) (bool, error) {
	_, err := c.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
