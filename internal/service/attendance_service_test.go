package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/repository"
)

// racingAttendance reports no existing record so the storage constraint is
// the only thing left to reject a duplicate.
type racingAttendance struct {
	domain.AttendanceRepository
}

func (racingAttendance) ExistsInRange(context.Context, string, time.Time, time.Time) (bool, error) {
	return false, nil
}

type fixture struct {
	store      *repository.MemoryStore
	employees  *EmployeeService
	attendance *AttendanceService
	employee   *domain.Employee
}

func newFixture(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	f := &fixture{
		store:      store,
		employees:  NewEmployeeService(store.Employees(), testLogger(), nil),
		attendance: NewAttendanceService(store.Attendance(), store.Employees(), loc, testLogger(), nil),
	}
	employee, err := f.employees.Create(context.Background(), ann())
	if err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	f.employee = employee
	return f
}

func TestMarkAttendanceByEitherID(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()

	view, err := f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-01-10", Status: "Present"})
	if err != nil {
		t.Fatalf("Mark by business id: %v", err)
	}
	if view.EmployeeRef != f.employee.ID || view.Employee == nil || view.Employee.FullName != "Ann Lee" {
		t.Fatalf("unexpected view %+v", view)
	}
	if got := view.Date.Format(domain.DateLayout); got != "2024-01-10" {
		t.Errorf("date = %s, want 2024-01-10", got)
	}

	if _, err := f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: f.employee.ID, Date: "2024-01-11", Status: "Absent"}); err != nil {
		t.Fatalf("Mark by system id: %v", err)
	}
}

func TestMarkAttendanceSameDayDifferentTimes(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()

	if _, err := f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-03-05T23:59:59Z", Status: "Present"}); err != nil {
		t.Fatalf("first Mark: %v", err)
	}
	_, err := f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-03-05T00:00:01Z", Status: "Absent"})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.Message != "Attendance already marked for this employee on this date" {
		t.Errorf("message = %q", conflict.Message)
	}
}

func TestMarkAttendanceStorageConstraintWins(t *testing.T) {
	store := repository.NewMemoryStore()
	employees := NewEmployeeService(store.Employees(), testLogger(), nil)
	if _, err := employees.Create(context.Background(), ann()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewAttendanceService(racingAttendance{store.Attendance()}, store.Employees(), time.UTC, testLogger(), nil)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Mark(context.Background(), MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-01-10", Status: "Present"})
			mu.Lock()
			defer mu.Unlock()
			var conflict *domain.ConflictError
			switch {
			case err == nil:
				created++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || conflicts != writers-1 {
		t.Fatalf("created=%d conflicts=%d, want 1 and %d", created, conflicts, writers-1)
	}
}

func TestMarkAttendanceConcurrentWritersSameDay(t *testing.T) {
	f := newFixture(t, time.UTC)

	const writers = 200
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			date := time.Date(2024, 1, 10, i%24, i%60, 0, 0, time.UTC).Format(time.RFC3339)
			_, err := f.attendance.Mark(context.Background(), MarkAttendanceInput{EmployeeRef: "E1", Date: date, Status: "Present"})
			mu.Lock()
			defer mu.Unlock()
			var conflict *domain.ConflictError
			switch {
			case err == nil:
				created++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 || conflicts != writers-1 {
		t.Fatalf("created=%d conflicts=%d, want 1 and %d", created, conflicts, writers-1)
	}
	views, err := f.attendance.List(context.Background(), ListAttendanceInput{EmployeeRef: "E1"})
	if err != nil || len(views) != 1 {
		t.Fatalf("List = %d records, %v; want 1", len(views), err)
	}
}

func TestGetAttendance(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()

	marked, err := f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-01-10", Status: "Absent"})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}

	got, err := f.attendance.Get(ctx, marked.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusAbsent || got.Employee == nil || got.Employee.EmployeeID != "E1" {
		t.Fatalf("Get = %+v", got)
	}

	var notFound *domain.NotFoundError
	if _, err := f.attendance.Get(ctx, "missing"); !errors.As(err, &notFound) || notFound.Message != "Attendance record not found" {
		t.Fatalf("Get(missing) err = %v, want NotFoundError", err)
	}
}

func TestMarkAttendanceValidation(t *testing.T) {
	f := newFixture(t, time.UTC)

	_, err := f.attendance.Mark(context.Background(), MarkAttendanceInput{EmployeeRef: " ", Date: "10/01/2024", Status: "Late"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	want := []domain.FieldError{
		{Field: "employeeId", Message: "Employee ID is required"},
		{Field: "date", Message: "Valid date is required"},
		{Field: "status", Message: "Status must be Present or Absent"},
	}
	if len(verr.Fields) != len(want) {
		t.Fatalf("fields = %+v, want %+v", verr.Fields, want)
	}
	for i := range want {
		if verr.Fields[i] != want[i] {
			t.Errorf("fields[%d] = %+v, want %+v", i, verr.Fields[i], want[i])
		}
	}
}

func TestMarkAttendanceUnknownEmployee(t *testing.T) {
	f := newFixture(t, time.UTC)

	_, err := f.attendance.Mark(context.Background(), MarkAttendanceInput{EmployeeRef: "E404", Date: "2024-01-10", Status: "Present"})
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) || notFound.Message != "Employee not found" {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestListAttendance(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()
	other, err := f.employees.Create(ctx, CreateEmployeeInput{EmployeeID: "E2", FullName: "Bo", Email: "bo@x.com", Department: "Ops"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, m := range []MarkAttendanceInput{
		{EmployeeRef: "E1", Date: "2024-01-09", Status: "Present"},
		{EmployeeRef: "E1", Date: "2024-01-11", Status: "Absent"},
		{EmployeeRef: "E2", Date: "2024-01-10", Status: "Present"},
	} {
		if _, err := f.attendance.Mark(ctx, m); err != nil {
			t.Fatalf("Mark %+v: %v", m, err)
		}
	}

	tests := []struct {
		name  string
		in    ListAttendanceInput
		dates []string
	}{
		{"all newest first", ListAttendanceInput{}, []string{"2024-01-11", "2024-01-10", "2024-01-09"}},
		{"by business id", ListAttendanceInput{EmployeeRef: "E1"}, []string{"2024-01-11", "2024-01-09"}},
		{"by system id", ListAttendanceInput{EmployeeRef: other.ID}, []string{"2024-01-10"}},
		{"unknown employee", ListAttendanceInput{EmployeeRef: "nobody"}, nil},
		{"inclusive range", ListAttendanceInput{StartDate: "2024-01-10", EndDate: "2024-01-11"}, []string{"2024-01-11", "2024-01-10"}},
		{"start only", ListAttendanceInput{StartDate: "2024-01-11"}, []string{"2024-01-11"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := f.attendance.List(ctx, tt.in)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if views == nil {
				t.Fatal("List returned nil slice")
			}
			if len(views) != len(tt.dates) {
				t.Fatalf("got %d records, want %d", len(views), len(tt.dates))
			}
			for i, d := range tt.dates {
				if got := views[i].Date.Format(domain.DateLayout); got != d {
					t.Errorf("views[%d].date = %s, want %s", i, got, d)
				}
			}
		})
	}

	_, err = f.attendance.List(ctx, ListAttendanceInput{EndDate: "not-a-date"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields[0].Field != "endDate" {
		t.Fatalf("err = %v, want endDate ValidationError", err)
	}
}

func TestAttendanceSurvivesEmployeeDeletion(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()

	if _, err := f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-01-10", Status: "Present"}); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := f.employees.Delete(ctx, f.employee.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	views, err := f.attendance.List(ctx, ListAttendanceInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 1 || views[0].Employee != nil {
		t.Fatalf("views = %+v, want one orphaned record", views)
	}
}

func TestAttendanceSummary(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()

	for _, m := range []MarkAttendanceInput{
		{EmployeeRef: "E1", Date: "2024-01-08", Status: "Present"},
		{EmployeeRef: "E1", Date: "2024-01-09", Status: "Present"},
		{EmployeeRef: "E1", Date: "2024-01-10", Status: "Absent"},
	} {
		if _, err := f.attendance.Mark(ctx, m); err != nil {
			t.Fatalf("Mark: %v", err)
		}
	}

	summary, err := f.attendance.Summary(ctx, "E1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalDays != 3 || summary.TotalPresent != 2 || summary.TotalAbsent != 1 {
		t.Errorf("totals = %d/%d/%d, want 3/2/1", summary.TotalDays, summary.TotalPresent, summary.TotalAbsent)
	}
	if summary.AttendanceRate != 66.67 {
		t.Errorf("rate = %v, want 66.67", summary.AttendanceRate)
	}

	empty := newFixture(t, time.UTC)
	summary, err = empty.attendance.Summary(ctx, "E1")
	if err != nil {
		t.Fatalf("Summary empty: %v", err)
	}
	if summary.TotalDays != 0 || summary.AttendanceRate != 0 || summary.Records == nil {
		t.Errorf("empty summary = %+v", summary)
	}
}

func TestDeleteAttendanceFreesDay(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()
	in := MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-01-10", Status: "Present"}

	view, err := f.attendance.Mark(ctx, in)
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := f.attendance.Delete(ctx, view.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.attendance.Mark(ctx, in); err != nil {
		t.Fatalf("re-Mark after delete: %v", err)
	}

	err = f.attendance.Delete(ctx, view.ID)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) || notFound.Message != "Attendance record not found" {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestMarkAttendanceReferenceZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	f := newFixture(t, loc)
	ctx := context.Background()

	// 20:00Z on the 4th is already the 5th at UTC+5.
	view, err := f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-03-04T20:00:00Z", Status: "Present"})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if got := view.Date.Format(domain.DateLayout); got != "2024-03-05" {
		t.Fatalf("date = %s, want 2024-03-05", got)
	}

	_, err = f.attendance.Mark(ctx, MarkAttendanceInput{EmployeeRef: "E1", Date: "2024-03-05", Status: "Absent"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}
