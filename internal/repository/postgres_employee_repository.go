package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/hrmslite/internal/domain"
)

const uniqueViolation = "23505"

// Constraint names as created by pkg/database migrations.
var postgresConstraintKeys = map[string]string{
	"employees_employee_id_key":    domain.KeyEmployeeCode,
	"employees_email_key":          domain.KeyEmployeeEmail,
	"attendance_employee_date_key": domain.KeyAttendanceDay,
}

// translatePostgresError maps unique violations to domain duplicate errors.
func translatePostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if key, ok := postgresConstraintKeys[pqErr.Constraint]; ok {
			return domain.NewDuplicateKeyError(key)
		}
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// PostgresEmployeeRepository implements domain.EmployeeRepository using PostgreSQL
type PostgresEmployeeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEmployeeRepository creates a new employee repository
func NewPostgresEmployeeRepository(db *sql.DB, logger *slog.Logger) *PostgresEmployeeRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresEmployeeRepository{
		db:     db,
		logger: logger,
	}
}

const employeeColumns = `id, employee_id, full_name, email, department, created_at, updated_at`

// Create inserts a new employee
func (r *PostgresEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO employees (id, employee_id, full_name, email, department)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	id := uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		id,
		employee.EmployeeID,
		employee.FullName,
		employee.Email,
		employee.Department,
	).Scan(&employee.CreatedAt, &employee.UpdatedAt)

	if err != nil {
		if dup := translatePostgresError(err); errors.Is(dup, domain.ErrDuplicate) {
			return dup
		}
		r.logger.Error("failed to create employee",
			slog.String("employee_id", employee.EmployeeID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create employee: %w", err)
	}

	employee.ID = id
	return nil
}

// GetByID retrieves an employee by system ID
func (r *PostgresEmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, "id", id)
}

// GetByEmployeeID retrieves an employee by business identifier
func (r *PostgresEmployeeRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	return r.getOne(ctx, "employee_id", employeeID)
}

// GetByEmail retrieves an employee by email
func (r *PostgresEmployeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return r.getOne(ctx, "email", email)
}

// column is always one of the literals above.
func (r *PostgresEmployeeRepository) getOne(ctx context.Context, column, value string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE ` + column + ` = $1`

	employee := &domain.Employee{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&employee.ID,
		&employee.EmployeeID,
		&employee.FullName,
		&employee.Email,
		&employee.Department,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get employee by %s: %w", column, err)
	}
	return employee, nil
}

// List returns all employees, newest first
func (r *PostgresEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list employees", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []*domain.Employee{}
	for rows.Next() {
		employee := &domain.Employee{}
		err := rows.Scan(
			&employee.ID,
			&employee.EmployeeID,
			&employee.FullName,
			&employee.Email,
			&employee.Department,
			&employee.CreatedAt,
			&employee.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan employee row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, employee)
	}

	return employees, rows.Err()
}

// Delete removes an employee permanently. Attendance rows are kept.
func (r *PostgresEmployeeRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

var _ domain.EmployeeRepository = (*PostgresEmployeeRepository)(nil)
