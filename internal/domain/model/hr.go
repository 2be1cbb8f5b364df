package model

import (
	"slices"
	"time"
)

// Employee is a person on the payroll.
type Employee struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name" validate:"required"`
	Email        string    `json:"email" bson:"email" validate:"required,email"`
	DepartmentID string    `json:"department_id,omitempty" bson:"departmentId,omitempty"`
	Position     string    `json:"position,omitempty" bson:"position,omitempty"`
	HireDate     time.Time `json:"hire_date,omitempty" bson:"hireDate,omitempty"`
	Status       string    `json:"status,omitempty" bson:"status,omitempty" validate:"omitempty,oneof=active on_leave terminated"`
}

func (e Employee) RecordID() string   { return e.ID }
func (e Employee) SearchText() string { return joinText(e.Name, e.Email, e.Position, e.Status) }

// WithID returns a copy of the employee carrying id.
func (e Employee) WithID(id string) Employee {
	e.ID = id
	return e
}

// Department is an organizational unit.
type Department struct {
	ID          string  `json:"id" bson:"_id"`
	Name        string  `json:"name" bson:"name" validate:"required"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	ManagerID   string  `json:"manager_id,omitempty" bson:"managerId,omitempty"`
	Budget      float64 `json:"budget" bson:"budget" validate:"gte=0"`
}

func (d Department) RecordID() string   { return d.ID }
func (d Department) SearchText() string { return joinText(d.Name, d.Description) }

// WithID returns a copy of the department carrying id.
func (d Department) WithID(id string) Department {
	d.ID = id
	return d
}

// Benefit is a perk offered to employees.
type Benefit struct {
	ID          string  `json:"id" bson:"_id"`
	Name        string  `json:"name" bson:"name" validate:"required"`
	Type        string  `json:"type" bson:"type" validate:"required,oneof=health dental vision retirement wellness insurance other"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	Provider    string  `json:"provider,omitempty" bson:"provider,omitempty"`
	Cost        float64 `json:"cost" bson:"cost" validate:"gte=0"`
	Active      bool    `json:"active" bson:"active"`
}

func (b Benefit) RecordID() string   { return b.ID }
func (b Benefit) SearchText() string { return joinText(b.Name, b.Type, b.Description, b.Provider) }

// WithID returns a copy of the benefit carrying id.
func (b Benefit) WithID(id string) Benefit {
	b.ID = id
	return b
}

// Training is a scheduled course employees can enroll in.
type Training struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title" validate:"required"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Instructor  string    `json:"instructor,omitempty" bson:"instructor,omitempty"`
	StartDate   time.Time `json:"start_date" bson:"startDate" validate:"required"`
	EndDate     time.Time `json:"end_date" bson:"endDate" validate:"required,gtefield=StartDate"`
	Capacity    int       `json:"capacity" bson:"capacity" validate:"gte=0"`
	Enrolled    []string  `json:"enrolled" bson:"enrolled"`
	Status      string    `json:"status,omitempty" bson:"status,omitempty" validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
}

func (t Training) RecordID() string   { return t.ID }
func (t Training) SearchText() string { return joinText(t.Title, t.Description, t.Instructor, t.Status) }

// WithID returns a copy of the training carrying id.
func (t Training) WithID(id string) Training {
	t.ID = id
	return t
}

// IsEnrolled reports whether employeeID already holds a seat.
func (t Training) IsEnrolled(employeeID string) bool {
	return slices.Contains(t.Enrolled, employeeID)
}

// Full reports whether every seat is taken. Zero capacity means unlimited.
func (t Training) Full() bool {
	return t.Capacity > 0 && len(t.Enrolled) >= t.Capacity
}

// Shift is a scheduled block of work for one employee.
type Shift struct {
	ID         string `json:"id" bson:"_id"`
	EmployeeID string `json:"employee_id" bson:"employeeId" validate:"required"`
	Date       string `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Start      string `json:"start" bson:"start" validate:"required,datetime=15:04"`
	End        string `json:"end" bson:"end" validate:"required,datetime=15:04"`
	Type       string `json:"type,omitempty" bson:"type,omitempty" validate:"omitempty,oneof=morning afternoon night"`
}

func (s Shift) RecordID() string   { return s.ID }
func (s Shift) SearchText() string { return joinText(s.EmployeeID, s.Date, s.Type) }

// WithID returns a copy of the shift carrying id.
func (s Shift) WithID(id string) Shift {
	s.ID = id
	return s
}

// Candidate is an applicant moving through the recruitment pipeline.
type Candidate struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Position  string    `json:"position" bson:"position" validate:"required"`
	Stage     string    `json:"stage" bson:"stage" validate:"required,oneof=applied screening interview offer hired rejected"`
	AppliedAt time.Time `json:"applied_at,omitempty" bson:"appliedAt,omitempty"`
	Rating    int       `json:"rating,omitempty" bson:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty"`
}

func (c Candidate) RecordID() string   { return c.ID }
func (c Candidate) SearchText() string { return joinText(c.Name, c.Email, c.Position, c.Stage) }

// WithID returns a copy of the candidate carrying id.
func (c Candidate) WithID(id string) Candidate {
	c.ID = id
	return c
}
