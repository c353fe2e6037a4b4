package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/hrmslite/internal/domain"
)

// PostgresAttendanceRepository implements domain.AttendanceRepository using
// PostgreSQL. The UNIQUE (employee_id, date) constraint is authoritative.
type PostgresAttendanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAttendanceRepository creates a new attendance repository
func NewPostgresAttendanceRepository(db *sql.DB, logger *slog.Logger) *PostgresAttendanceRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAttendanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a record
func (r *PostgresAttendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (id, employee_id, date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	id := uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		id,
		record.EmployeeRef,
		record.Date,
		string(record.Status),
	).Scan(&record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		if dup := translatePostgresError(err); errors.Is(dup, domain.ErrDuplicate) {
			return dup
		}
		r.logger.Error("failed to create attendance",
			slog.String("employee_ref", record.EmployeeRef),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create attendance: %w", err)
	}

	record.ID = id
	return nil
}

// ExistsInRange reports whether the employee has a record with from <= date < to
func (r *PostgresAttendanceRepository) ExistsInRange(ctx context.Context, employeeRef string, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance
			WHERE employee_id = $1 AND date >= $2 AND date < $3
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, employeeRef, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return exists, nil
}

const attendanceSelect = `
	SELECT a.id, a.employee_id, a.date, a.status, a.created_at, a.updated_at,
	       e.id, e.employee_id, e.full_name
	FROM attendance a
	LEFT JOIN employees e ON e.id = a.employee_id
`

// GetByID retrieves a record joined with its employee
func (r *PostgresAttendanceRepository) GetByID(ctx context.Context, id string) (*domain.AttendanceView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, attendanceSelect+` WHERE a.id = $1`, id)
	view, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return view, nil
}

// List returns records joined with employees, newest date first
func (r *PostgresAttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]*domain.AttendanceView, error) {
	var (
		conds []string
		args  []any
	)
	if filter.EmployeeRef != "" {
		if _, err := uuid.Parse(filter.EmployeeRef); err != nil {
			return []*domain.AttendanceView{}, nil
		}
		args = append(args, filter.EmployeeRef)
		conds = append(conds, "a.employee_id = $"+strconv.Itoa(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, "a.date >= $"+strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, "a.date < $"+strconv.Itoa(len(args)))
	}

	query := attendanceSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.date DESC, a.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list attendance", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	views := []*domain.AttendanceView{}
	for rows.Next() {
		view, err := scanAttendance(rows)
		if err != nil {
			r.logger.Error("failed to scan attendance row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		views = append(views, view)
	}

	return views, rows.Err()
}

// Delete removes a record
func (r *PostgresAttendanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row rowScanner) (*domain.AttendanceView, error) {
	var (
		view    domain.AttendanceView
		status  string
		empID   sql.NullString
		empCode sql.NullString
		empName sql.NullString
	)
	err := row.Scan(
		&view.ID,
		&view.EmployeeRef,
		&view.Date,
		&status,
		&view.CreatedAt,
		&view.UpdatedAt,
		&empID,
		&empCode,
		&empName,
	)
	if err != nil {
		return nil, err
	}
	view.Status = domain.AttendanceStatus(status)
	if empID.Valid {
		view.Employee = &domain.EmployeeSummary{
			ID:         empID.String,
			EmployeeID: empCode.String,
			FullName:   empName.String,
		}
	}
	return &view, nil
}

var _ domain.AttendanceRepository = (*PostgresAttendanceRepository)(nil)
