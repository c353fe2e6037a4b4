package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// racingEmployees hides existing rows from the pre-check, as if another
// writer inserted them between the check and the insert.
type racingEmployees struct {
	domain.EmployeeRepository
}

func (racingEmployees) GetByEmployeeID(context.Context, string) (*domain.Employee, error) {
	return nil, domain.ErrNotFound
}

func (racingEmployees) GetByEmail(context.Context, string) (*domain.Employee, error) {
	return nil, domain.ErrNotFound
}

type failingEmployees struct {
	domain.EmployeeRepository
}

func (failingEmployees) List(context.Context) ([]*domain.Employee, error) {
	return nil, errors.New("connection reset")
}

func ann() CreateEmployeeInput {
	return CreateEmployeeInput{EmployeeID: "E1", FullName: "Ann Lee", Email: "ann@x.com", Department: "Eng"}
}

func TestCreateEmployeeTrimsAndStores(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEmployeeService(store.Employees(), testLogger(), nil)
	ctx := context.Background()

	in := ann()
	in.FullName = "  Ann Lee  "
	employee, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if employee.ID == "" || employee.FullName != "Ann Lee" {
		t.Fatalf("unexpected employee %+v", employee)
	}
	if employee.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	for _, ref := range []string{employee.ID, "E1", " E1 "} {
		got, err := svc.Get(ctx, ref)
		if err != nil {
			t.Fatalf("Get(%q): %v", ref, err)
		}
		if got.ID != employee.ID {
			t.Errorf("Get(%q) returned %+v", ref, got)
		}
	}

	var notFound *domain.NotFoundError
	if _, err := svc.Get(ctx, "E404"); !errors.As(err, &notFound) || notFound.Message != "Employee not found" {
		t.Fatalf("Get(E404) err = %v, want NotFoundError", err)
	}
}

func TestCreateEmployeeValidation(t *testing.T) {
	svc := NewEmployeeService(repository.NewMemoryStore().Employees(), testLogger(), nil)

	tests := []struct {
		name   string
		mutate func(*CreateEmployeeInput)
		field  string
		msg    string
	}{
		{"blank id", func(in *CreateEmployeeInput) { in.EmployeeID = "   " }, "employeeId", "Employee ID is required"},
		{"missing name", func(in *CreateEmployeeInput) { in.FullName = "" }, "fullName", "Full name is required"},
		{"bad email", func(in *CreateEmployeeInput) { in.Email = "ann-at-x" }, "email", "Valid email is required"},
		{"missing email", func(in *CreateEmployeeInput) { in.Email = "" }, "email", "Valid email is required"},
		{"missing department", func(in *CreateEmployeeInput) { in.Department = " " }, "department", "Department is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ann()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if len(verr.Fields) != 1 || verr.Fields[0].Field != tt.field || verr.Fields[0].Message != tt.msg {
				t.Fatalf("fields = %+v, want %s: %s", verr.Fields, tt.field, tt.msg)
			}
		})
	}
}

func TestCreateEmployeeConflicts(t *testing.T) {
	tests := []struct {
		name string
		in   CreateEmployeeInput
		want string
	}{
		{"id checked before email", CreateEmployeeInput{EmployeeID: "E1", FullName: "B", Email: "ann@x.com", Department: "Ops"}, "Employee ID already exists"},
		{"email", CreateEmployeeInput{EmployeeID: "E2", FullName: "B", Email: "ann@x.com", Department: "Ops"}, "Email already exists"},
	}

	for _, tt := range tests {
		for _, racing := range []bool{false, true} {
			name := tt.name
			if racing {
				name += " via storage constraint"
			}
			t.Run(name, func(t *testing.T) {
				store := repository.NewMemoryStore()
				var repo domain.EmployeeRepository = store.Employees()
				if racing {
					repo = racingEmployees{repo}
				}
				svc := NewEmployeeService(repo, testLogger(), nil)
				if _, err := svc.Create(context.Background(), ann()); err != nil {
					t.Fatalf("seed: %v", err)
				}

				_, err := svc.Create(context.Background(), tt.in)
				var conflict *domain.ConflictError
				if !errors.As(err, &conflict) {
					t.Fatalf("err = %v, want ConflictError", err)
				}
				if conflict.Message != tt.want {
					t.Errorf("message = %q, want %q", conflict.Message, tt.want)
				}
			})
		}
	}
}

func TestListEmployeesNewestFirst(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEmployeeService(store.Employees(), testLogger(), nil)
	ctx := context.Background()

	for _, in := range []CreateEmployeeInput{
		{EmployeeID: "E1", FullName: "A", Email: "a@x.com", Department: "Eng"},
		{EmployeeID: "E2", FullName: "B", Email: "b@x.com", Department: "Eng"},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", in.EmployeeID, err)
		}
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].EmployeeID != "E2" {
		t.Fatalf("list = %+v, want E2 first", list)
	}
}

func TestListEmployeesStoreError(t *testing.T) {
	svc := NewEmployeeService(failingEmployees{}, testLogger(), nil)

	_, err := svc.List(context.Background())
	var storeErr *domain.StoreError
	if !errors.As(err, &storeErr) || storeErr.Message != "Error fetching employees" {
		t.Fatalf("err = %v, want StoreError with generic message", err)
	}
}

func TestDeleteEmployee(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewEmployeeService(store.Employees(), testLogger(), nil)
	ctx := context.Background()

	employee, err := svc.Create(ctx, ann())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, employee.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	err = svc.Delete(ctx, employee.ID)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) || notFound.Message != "Employee not found" {
		t.Fatalf("second Delete err = %v, want NotFoundError", err)
	}

	// The business id is free again.
	if _, err := svc.Create(ctx, ann()); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
}
