package domain

import (
	"context"
	"time"
)

// Employee represents a registered employee
type Employee struct {
	ID         string // System-generated, immutable
	EmployeeID string // Business identifier, unique
	FullName   string
	Email      string // Unique
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EmployeeRepository defines data access for employees.
// Create must reject a duplicate EmployeeID or Email with a
// DuplicateKeyError even when the caller checked beforehand.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *Employee) error
	GetByID(ctx context.Context, id string) (*Employee, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*Employee, error)
	GetByEmail(ctx context.Context, email string) (*Employee, error)
	List(ctx context.Context) ([]*Employee, error)
	Delete(ctx context.Context, id string) error
}
