package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/observability/metrics"
	"github.com/yourorg/hrmslite/internal/security/audit"
)

// AttendanceService handles marking and listing attendance
type AttendanceService struct {
	attendance domain.AttendanceRepository
	employees  domain.EmployeeRepository
	location   *time.Location
	logger     *slog.Logger
	audit      *audit.Logger
}

// NewAttendanceService creates a new attendance service. Days are cut in loc;
// a nil loc means UTC.
func NewAttendanceService(
	attendanceRepo domain.AttendanceRepository,
	employeeRepo domain.EmployeeRepository,
	loc *time.Location,
	logger *slog.Logger,
	auditLogger *audit.Logger,
) *AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceService{
		attendance: attendanceRepo,
		employees:  employeeRepo,
		location:   loc,
		logger:     logger,
		audit:      auditLogger,
	}
}

// Location returns the reference timezone used to cut days.
func (s *AttendanceService) Location() *time.Location {
	return s.location
}

// ListAttendanceInput holds the optional filters of a listing
type ListAttendanceInput struct {
	EmployeeRef string
	StartDate   string // Inclusive
	EndDate     string // Inclusive
}

// List returns attendance joined with employee details, newest date first.
// An employee filter that matches nobody yields an empty list.
func (s *AttendanceService) List(ctx context.Context, in ListAttendanceInput) ([]*domain.AttendanceView, error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.List")
	defer span.End()

	filter, err := s.listFilter(in)
	if err != nil {
		return nil, err
	}

	if ref := strings.TrimSpace(in.EmployeeRef); ref != "" {
		employee, err := resolveEmployee(ctx, s.employees, ref)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return []*domain.AttendanceView{}, nil
			}
			span.SetStatus(codes.Error, err.Error())
			return nil, &domain.StoreError{Message: "Error fetching attendance records", Err: err}
		}
		filter.EmployeeRef = employee.ID
	}

	views, err := s.attendance.List(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveAttendance("list", metrics.ResultError)
		return nil, &domain.StoreError{Message: "Error fetching attendance records", Err: err}
	}
	metrics.ObserveAttendance("list", metrics.ResultSuccess)
	return s.localize(views), nil
}

func (s *AttendanceService) listFilter(in ListAttendanceInput) (domain.AttendanceFilter, error) {
	var filter domain.AttendanceFilter
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.StartDate) != "" {
		from, err := domain.ParseDay(in.StartDate, s.location)
		if err != nil {
			verr.Fields = append(verr.Fields, domain.FieldError{Field: "startDate", Message: msgDateInvalid})
		}
		filter.From = from
	}
	if strings.TrimSpace(in.EndDate) != "" {
		to, err := domain.ParseDay(in.EndDate, s.location)
		if err != nil {
			verr.Fields = append(verr.Fields, domain.FieldError{Field: "endDate", Message: msgDateInvalid})
		} else {
			filter.To = domain.NextDay(to)
		}
	}
	if len(verr.Fields) > 0 {
		return filter, verr
	}
	return filter, nil
}

// Mark records one status for an employee on one calendar day.
func (s *AttendanceService) Mark(ctx context.Context, in MarkAttendanceInput) (*domain.AttendanceView, error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.Mark")
	defer span.End()

	if err := validateAttendance(in, s.location); err != nil {
		metrics.ObserveAttendance("mark", metrics.ResultInvalid)
		return nil, err
	}
	day, _ := domain.ParseDay(in.Date, s.location)
	status := domain.AttendanceStatus(in.Status)
	span.SetAttributes(
		attribute.String("attendance.date", day.Format(domain.DateLayout)),
		attribute.String("attendance.status", in.Status),
	)

	employee, err := resolveEmployee(ctx, s.employees, strings.TrimSpace(in.EmployeeRef))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveAttendance("mark", metrics.ResultNotFound)
			return nil, &domain.NotFoundError{Message: msgEmployeeNotFound}
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveAttendance("mark", metrics.ResultError)
		return nil, &domain.StoreError{Message: "Error marking attendance", Err: err}
	}

	exists, err := s.attendance.ExistsInRange(ctx, employee.ID, day, domain.NextDay(day))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveAttendance("mark", metrics.ResultError)
		return nil, &domain.StoreError{Message: "Error marking attendance", Err: err}
	}
	if exists {
		metrics.ObserveAttendance("mark", metrics.ResultConflict)
		s.audit.LogRejected(ctx, "mark", "attendance", msgAttendanceExists)
		return nil, &domain.ConflictError{Message: msgAttendanceExists}
	}

	record := &domain.AttendanceRecord{
		EmployeeRef: employee.ID,
		Date:        day,
		Status:      status,
	}
	if err := s.attendance.Create(ctx, record); err != nil {
		// A concurrent writer won between the check and the insert.
		if key, ok := domain.DuplicateKey(err); ok {
			metrics.ObserveStoreDuplicate(key)
			metrics.ObserveAttendance("mark", metrics.ResultConflict)
			s.logger.Warn("attendance insert rejected by unique constraint",
				slog.String("employee_ref", employee.ID),
				slog.String("date", day.Format(domain.DateLayout)),
			)
			s.audit.LogRejected(ctx, "mark", "attendance", msgAttendanceExists)
			return nil, &domain.ConflictError{Message: msgAttendanceExists}
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveAttendance("mark", metrics.ResultError)
		return nil, &domain.StoreError{Message: "Error marking attendance", Err: err}
	}

	metrics.ObserveAttendance("mark", metrics.ResultSuccess)
	metrics.ObserveMarked(string(status))
	s.audit.LogAttendanceMarked(ctx, record.ID, employee.ID, day.Format(domain.DateLayout), string(status))

	record.Date = record.Date.In(s.location)
	return &domain.AttendanceView{
		AttendanceRecord: *record,
		Employee: &domain.EmployeeSummary{
			ID:         employee.ID,
			EmployeeID: employee.EmployeeID,
			FullName:   employee.FullName,
		},
	}, nil
}

// Get returns one attendance record joined with its employee
func (s *AttendanceService) Get(ctx context.Context, id string) (*domain.AttendanceView, error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.Get")
	defer span.End()

	view, err := s.attendance.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveAttendance("get", metrics.ResultNotFound)
			return nil, &domain.NotFoundError{Message: msgAttendanceMissing}
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveAttendance("get", metrics.ResultError)
		return nil, &domain.StoreError{Message: "Error fetching attendance record", Err: err}
	}
	metrics.ObserveAttendance("get", metrics.ResultSuccess)
	view.Date = view.Date.In(s.location)
	return view, nil
}

// Delete removes a single attendance record
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "AttendanceService.Delete")
	defer span.End()

	if err := s.attendance.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveAttendance("delete", metrics.ResultNotFound)
			return &domain.NotFoundError{Message: msgAttendanceMissing}
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveAttendance("delete", metrics.ResultError)
		return &domain.StoreError{Message: "Error deleting attendance record", Err: err}
	}
	metrics.ObserveAttendance("delete", metrics.ResultSuccess)
	s.audit.LogAttendanceDeleted(ctx, id)
	return nil
}

// Summary totals an employee's attendance.
func (s *AttendanceService) Summary(ctx context.Context, employeeRef string) (*domain.AttendanceSummary, error) {
	ctx, span := tracer.Start(ctx, "AttendanceService.Summary")
	defer span.End()

	employee, err := resolveEmployee(ctx, s.employees, strings.TrimSpace(employeeRef))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: msgEmployeeNotFound}
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.StoreError{Message: "Error fetching attendance summary", Err: err}
	}

	views, err := s.attendance.List(ctx, domain.AttendanceFilter{EmployeeRef: employee.ID})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.StoreError{Message: "Error fetching attendance summary", Err: err}
	}

	summary := &domain.AttendanceSummary{
		Employee:  employee,
		Records:   s.localize(views),
		TotalDays: len(views),
	}
	for _, v := range views {
		switch v.Status {
		case domain.StatusPresent:
			summary.TotalPresent++
		case domain.StatusAbsent:
			summary.TotalAbsent++
		}
	}
	if summary.TotalDays > 0 {
		rate := float64(summary.TotalPresent) / float64(summary.TotalDays) * 100
		summary.AttendanceRate = math.Round(rate*100) / 100
	}
	return summary, nil
}

func (s *AttendanceService) localize(views []*domain.AttendanceView) []*domain.AttendanceView {
	if views == nil {
		return []*domain.AttendanceView{}
	}
	for _, v := range views {
		v.Date = v.Date.In(s.location)
	}
	return views
}
