package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/validation"
	"github.com/okian/hrdesk/pkg/logger"
	"github.com/okian/hrdesk/pkg/metrics"
)

// mergeTraining keeps the enrollment list when an update omits it.
func mergeTraining(existing *model.Training, rec model.Training) model.Training {
	if existing != nil && rec.Enrolled == nil {
		rec.Enrolled = existing.Enrolled
	}
	if rec.Enrolled == nil {
		rec.Enrolled = []string{}
	}
	return rec
}

func checkTrainingSeats(_ context.Context, t model.Training) error {
	if t.Capacity > 0 && len(t.Enrolled) > t.Capacity {
		return &validation.ValidationError{
			Entity: "training",
			Errors: []string{fmt.Sprintf("enrolled (%d) exceeds capacity (%d)", len(t.Enrolled), t.Capacity)},
		}
	}
	return nil
}

// Enroll gives an employee a seat in a training. It fails with ErrConflict
// when the employee is already enrolled or no seat is left.
func (s *Service) Enroll(ctx context.Context, trainingID, employeeID string) (model.Training, error) {
	ctx, span := s.startSpan(ctx, "Service.Enroll",
		attribute.String("training_id", trainingID),
		attribute.String("employee_id", employeeID),
	)
	var err error
	defer func() { endSpan(span, err) }()

	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		err = &validation.ValidationError{Entity: "enrollment", Errors: []string{"employee_id is required"}}
		return model.Training{}, err
	}
	if _, err = s.store.Employees.Get(ctx, employeeID); err != nil {
		err = fmt.Errorf("employee %s: %w", employeeID, err)
		return model.Training{}, err
	}

	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	t, err := s.store.Trainings.Get(ctx, trainingID)
	if err != nil {
		err = fmt.Errorf("training %s: %w", trainingID, err)
		return model.Training{}, err
	}
	switch {
	case t.IsEnrolled(employeeID):
		err = fmt.Errorf("employee %s is already enrolled in %s: %w", employeeID, trainingID, ErrConflict)
		return t, err
	case t.Full():
		err = fmt.Errorf("training %s is full: %w", trainingID, ErrConflict)
		return t, err
	}

	t.Enrolled = append(slices.Clone(t.Enrolled), employeeID)
	if err = s.store.Trainings.Upsert(ctx, t); err != nil {
		err = fmt.Errorf("store training %s: %w", trainingID, err)
		return model.Training{}, err
	}
	metrics.RecordTrainingEnrollment()
	s.logger.Info(ctx, "employee enrolled",
		logger.String("training_id", trainingID),
		logger.String("employee_id", employeeID),
		logger.Int("seats_left", t.Capacity-len(t.Enrolled)),
	)
	return t, nil
}
