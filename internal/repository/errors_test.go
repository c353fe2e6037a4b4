package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yourorg/hrmslite/internal/domain"
)

func TestTranslatePostgresError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantKey string
		wantDup bool
	}{
		{"employee id", &pq.Error{Code: "23505", Constraint: "employees_employee_id_key"}, domain.KeyEmployeeCode, true},
		{"email", &pq.Error{Code: "23505", Constraint: "employees_email_key"}, domain.KeyEmployeeEmail, true},
		{"attendance day", fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "attendance_employee_date_key"}), domain.KeyAttendanceDay, true},
		{"unknown constraint", &pq.Error{Code: "23505", Constraint: "other_key"}, "", true},
		{"check violation", &pq.Error{Code: "23514", Constraint: "attendance_status_check"}, "", false},
		{"plain error", errors.New("connection refused"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translatePostgresError(tt.err)
			if errors.Is(got, domain.ErrDuplicate) != tt.wantDup {
				t.Fatalf("duplicate = %v, want %v (err %v)", !tt.wantDup, tt.wantDup, got)
			}
			key, _ := domain.DuplicateKey(got)
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
		})
	}
}

func mongoDuplicate(index string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: hrms_lite.c index: " + index + " dup key: { x: 1 }",
	}}}
}

func TestTranslateMongoError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantKey string
		wantDup bool
	}{
		{"employee id", mongoDuplicate("employeeId_unique"), domain.KeyEmployeeCode, true},
		{"email", mongoDuplicate("email_unique"), domain.KeyEmployeeEmail, true},
		{"attendance day", mongoDuplicate("employeeId_date_unique"), domain.KeyAttendanceDay, true},
		{"unknown index", mongoDuplicate("_id_"), "", true},
		{"not a duplicate", errors.New("server selection timeout"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateMongoError(tt.err)
			if errors.Is(got, domain.ErrDuplicate) != tt.wantDup {
				t.Fatalf("duplicate mismatch for %v", got)
			}
			key, _ := domain.DuplicateKey(got)
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
		})
	}
}
