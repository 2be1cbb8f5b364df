// Package model contains domain models passed between layers.
package model

import "strings"

// Kind names a collection of HR records. It doubles as the URL segment
// under /api/v1 and as the storage collection name.
type Kind string

// Record kinds managed by the service.
const (
	KindEmployees         Kind = "employees"
	KindDepartments       Kind = "departments"
	KindBenefits          Kind = "benefits"
	KindTrainings         Kind = "trainings"
	KindShifts            Kind = "shifts"
	KindCandidates        Kind = "candidates"
	KindEvaluationForms   Kind = "evaluation-forms"
	KindEvaluationPeriods Kind = "evaluation-periods"
	KindEvaluations       Kind = "evaluations"
)

// Kinds lists every record kind in registration order.
func Kinds() []Kind {
	return []Kind{
		KindEmployees,
		KindDepartments,
		KindBenefits,
		KindTrainings,
		KindShifts,
		KindCandidates,
		KindEvaluationForms,
		KindEvaluationPeriods,
		KindEvaluations,
	}
}

// Record is implemented by every stored entity.
type Record interface {
	// RecordID returns the unique identifier within the record's kind.
	RecordID() string
	// SearchText returns the text matched by free-text list queries.
	SearchText() string
}

// Entity is a Record that can return a copy of itself with a new id.
// Services use it to assign ids on create without reflection.
type Entity[T any] interface {
	Record
	WithID(id string) T
}

func joinText(parts ...string) string {
	return strings.Join(parts, " ")
}
