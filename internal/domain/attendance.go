package domain

import (
	"context"
	"time"
)

// AttendanceStatus is the recorded status for a day
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
)

// Valid reports whether s is one of the enumerated statuses.
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// AttendanceRecord is one employee's status on one calendar day
type AttendanceRecord struct {
	ID          string
	EmployeeRef string    // System ID of the employee
	Date        time.Time // Start of day in the reference timezone
	Status      AttendanceStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EmployeeSummary is the part of an employee shown next to attendance
type EmployeeSummary struct {
	ID         string
	EmployeeID string
	FullName   string
}

// AttendanceView is a record joined with its employee at read time.
// Employee is nil when the employee has been deleted.
type AttendanceView struct {
	AttendanceRecord
	Employee *EmployeeSummary
}

// AttendanceFilter restricts List. Zero values mean unbounded; To is exclusive.
type AttendanceFilter struct {
	EmployeeRef string
	From        time.Time
	To          time.Time
}

// AttendanceRepository defines data access for attendance records.
// Create must reject a second record for the same (EmployeeRef, Date) with a
// DuplicateKeyError; this constraint is what keeps the invariant under
// concurrent writers.
type AttendanceRepository interface {
	Create(ctx context.Context, record *AttendanceRecord) error
	ExistsInRange(ctx context.Context, employeeRef string, from, to time.Time) (bool, error)
	GetByID(ctx context.Context, id string) (*AttendanceView, error)
	List(ctx context.Context, filter AttendanceFilter) ([]*AttendanceView, error)
	Delete(ctx context.Context, id string) error
}

// AttendanceSummary aggregates one employee's records
type AttendanceSummary struct {
	Employee       *Employee
	Records        []*AttendanceView
	TotalDays      int
	TotalPresent   int
	TotalAbsent    int
	AttendanceRate float64 // Percent of days present
}
