package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/observability/metrics"
	"github.com/yourorg/hrmslite/internal/security/audit"
)

var tracer = otel.Tracer("github.com/yourorg/hrmslite/internal/service")

// EmployeeService handles employee registration and removal
type EmployeeService struct {
	repo   domain.EmployeeRepository
	logger *slog.Logger
	audit  *audit.Logger
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(repo domain.EmployeeRepository, logger *slog.Logger, auditLogger *audit.Logger) *EmployeeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeService{
		repo:   repo,
		logger: logger,
		audit:  auditLogger,
	}
}

// List returns all employees, most recently created first
func (s *EmployeeService) List(ctx context.Context) ([]*domain.Employee, error) {
	ctx, span := tracer.Start(ctx, "EmployeeService.List")
	defer span.End()

	employees, err := s.repo.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveEmployee("list", metrics.ResultError)
		return nil, &domain.StoreError{Message: "Error fetching employees", Err: err}
	}
	metrics.ObserveEmployee("list", metrics.ResultSuccess)
	return employees, nil
}

// Get returns a single employee by system ID or business employee ID
func (s *EmployeeService) Get(ctx context.Context, ref string) (*domain.Employee, error) {
	ctx, span := tracer.Start(ctx, "EmployeeService.Get")
	defer span.End()

	employee, err := resolveEmployee(ctx, s.repo, strings.TrimSpace(ref))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: msgEmployeeNotFound}
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.StoreError{Message: "Error fetching employee", Err: err}
	}
	return employee, nil
}

// Create validates and stores a new employee. The employee ID is checked
// before the email, so only the first conflict is reported.
func (s *EmployeeService) Create(ctx context.Context, in CreateEmployeeInput) (*domain.Employee, error) {
	ctx, span := tracer.Start(ctx, "EmployeeService.Create")
	defer span.End()

	in = in.trimmed()
	if err := validateEmployee(in); err != nil {
		metrics.ObserveEmployee("create", metrics.ResultInvalid)
		return nil, err
	}
	span.SetAttributes(attribute.String("employee.employee_id", in.EmployeeID))

	if err := s.ensureUnique(ctx, in); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ObserveEmployee("create", metrics.ResultConflict)
			s.audit.LogRejected(ctx, "create", "employee", err.Error())
		} else {
			span.SetStatus(codes.Error, err.Error())
			metrics.ObserveEmployee("create", metrics.ResultError)
		}
		return nil, err
	}

	employee := &domain.Employee{
		EmployeeID: in.EmployeeID,
		FullName:   in.FullName,
		Email:      in.Email,
		Department: in.Department,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		if key, ok := domain.DuplicateKey(err); ok {
			metrics.ObserveStoreDuplicate(key)
			metrics.ObserveEmployee("create", metrics.ResultConflict)
			s.logger.Warn("employee insert rejected by unique constraint",
				slog.String("key", key),
				slog.String("employee_id", in.EmployeeID),
			)
			conflict := employeeConflict(key)
			s.audit.LogRejected(ctx, "create", "employee", conflict.Error())
			return nil, conflict
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveEmployee("create", metrics.ResultError)
		return nil, &domain.StoreError{Message: "Error creating employee", Err: err}
	}

	metrics.ObserveEmployee("create", metrics.ResultSuccess)
	s.audit.LogEmployeeCreated(ctx, employee.ID, employee.EmployeeID)
	return employee, nil
}

// resolveEmployee looks ref up as a system ID, then as a business employee
// ID. Clients submit either.
func resolveEmployee(ctx context.Context, repo domain.EmployeeRepository, ref string) (*domain.Employee, error) {
	employee, err := repo.GetByID(ctx, ref)
	if err == nil {
		return employee, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return repo.GetByEmployeeID(ctx, ref)
}

func (s *EmployeeService) ensureUnique(ctx context.Context, in CreateEmployeeInput) error {
	if _, err := s.repo.GetByEmployeeID(ctx, in.EmployeeID); err == nil {
		return employeeConflict(domain.KeyEmployeeCode)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return &domain.StoreError{Message: "Error creating employee", Err: fmt.Errorf("failed to check employee id: %w", err)}
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return employeeConflict(domain.KeyEmployeeEmail)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return &domain.StoreError{Message: "Error creating employee", Err: fmt.Errorf("failed to check email: %w", err)}
	}
	return nil
}

func employeeConflict(key string) *domain.ConflictError {
	if key == domain.KeyEmployeeEmail {
		return &domain.ConflictError{Message: msgEmailExists}
	}
	return &domain.ConflictError{Message: msgEmployeeIDExists}
}

// Delete removes an employee. Attendance records are left in place.
func (s *EmployeeService) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "EmployeeService.Delete")
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveEmployee("delete", metrics.ResultNotFound)
			return &domain.NotFoundError{Message: msgEmployeeNotFound}
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveEmployee("delete", metrics.ResultError)
		return &domain.StoreError{Message: "Error deleting employee", Err: err}
	}

	metrics.ObserveEmployee("delete", metrics.ResultSuccess)
	s.audit.LogEmployeeDeleted(ctx, id)
	return nil
}
