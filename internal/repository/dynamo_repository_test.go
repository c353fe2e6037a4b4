package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/yourorg/hrmslite/internal/domain"
)

// fakeDynamo is an in-memory table that honors the attribute_exists and
// attribute_not_exists conditions used by the store. Scans only apply the
// item type part of the filter.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func pkOf(item map[string]types.AttributeValue) string {
	return item["pk"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := in.ExpressionAttributeValues[":0"].(*types.AttributeValueMemberS).Value
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["type"].(*types.AttributeValueMemberS).Value == want {
			out = append(out, item)
		}
	}
	return &dynamodb.ScanOutput{Items: out}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, w := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		switch {
		case w.Put != nil:
			if _, exists := f.items[pkOf(w.Put.Item)]; exists {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
				failed = true
			}
		case w.Delete != nil && w.Delete.ConditionExpression != nil:
			if _, exists := f.items[pkOf(w.Delete.Key)]; !exists {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
				failed = true
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	for _, w := range in.TransactItems {
		if w.Put != nil {
			f.items[pkOf(w.Put.Item)] = w.Put.Item
		}
		if w.Delete != nil {
			delete(f.items, pkOf(w.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestDynamoEmployeeUniqueness(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo(), "hrms_lite", nil)
	repo := store.Employees()
	ctx := context.Background()

	ann := &domain.Employee{EmployeeID: "E1", FullName: "Ann Lee", Email: "ann@x.com", Department: "Eng"}
	if err := repo.Create(ctx, ann); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name    string
		in      *domain.Employee
		wantKey string
	}{
		{"both taken reports id", &domain.Employee{EmployeeID: "E1", Email: "ann@x.com"}, domain.KeyEmployeeCode},
		{"email taken", &domain.Employee{EmployeeID: "E2", Email: "ann@x.com"}, domain.KeyEmployeeEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := domain.DuplicateKey(repo.Create(ctx, tt.in))
			if !ok || key != tt.wantKey {
				t.Fatalf("duplicate key = %q (%v), want %q", key, ok, tt.wantKey)
			}
		})
	}

	got, err := repo.GetByEmail(ctx, "ann@x.com")
	if err != nil || got.ID != ann.ID {
		t.Fatalf("GetByEmail = %+v, %v", got, err)
	}

	if err := repo.Delete(ctx, ann.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByEmployeeID(ctx, "E1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByEmployeeID after delete err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, ann.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Delete err = %v, want ErrNotFound", err)
	}
	if err := repo.Create(ctx, &domain.Employee{EmployeeID: "E1", Email: "ann@x.com"}); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
}

func TestDynamoAttendanceDayGuard(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo(), "hrms_lite", nil)
	employees := store.Employees()
	attendance := store.Attendance()
	ctx := context.Background()

	ann := &domain.Employee{EmployeeID: "E1", FullName: "Ann Lee", Email: "ann@x.com"}
	if err := employees.Create(ctx, ann); err != nil {
		t.Fatalf("Create employee: %v", err)
	}

	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	record := &domain.AttendanceRecord{EmployeeRef: ann.ID, Date: day, Status: domain.StatusPresent}
	if err := attendance.Create(ctx, record); err != nil {
		t.Fatalf("Create attendance: %v", err)
	}

	dup := &domain.AttendanceRecord{EmployeeRef: ann.ID, Date: day, Status: domain.StatusAbsent}
	if key, ok := domain.DuplicateKey(attendance.Create(ctx, dup)); !ok || key != domain.KeyAttendanceDay {
		t.Fatalf("duplicate key = %q (%v), want %q", key, ok, domain.KeyAttendanceDay)
	}

	view, err := attendance.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !view.Date.Equal(day) || view.Employee == nil || view.Employee.EmployeeID != "E1" {
		t.Fatalf("view = %+v", view)
	}

	if err := employees.Delete(ctx, ann.ID); err != nil {
		t.Fatalf("Delete employee: %v", err)
	}
	views, err := attendance.List(ctx, domain.AttendanceFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 1 || views[0].Employee != nil {
		t.Fatalf("views = %+v, want one orphan", views)
	}

	if err := attendance.Delete(ctx, record.ID); err != nil {
		t.Fatalf("Delete attendance: %v", err)
	}
	if err := attendance.Create(ctx, dup); err != nil {
		t.Fatalf("re-mark after delete: %v", err)
	}
}

func TestFailedConditions(t *testing.T) {
	err := &types.TransactionCanceledException{CancellationReasons: []types.CancellationReason{
		{Code: aws.String("None")},
		{Code: aws.String("ConditionalCheckFailed")},
		{Code: aws.String("ConditionalCheckFailed")},
	}}
	positions, ok := failedConditions(err)
	if !ok || len(positions) != 2 || positions[0] != 1 {
		t.Fatalf("positions = %v, ok = %v", positions, ok)
	}

	if _, ok := failedConditions(errors.New("throttled")); ok {
		t.Fatal("plain error reported as cancellation")
	}
}

func TestAttendanceConditions(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		filter domain.AttendanceFilter
		want   int
	}{
		{"none", domain.AttendanceFilter{}, 0},
		{"employee", domain.AttendanceFilter{EmployeeRef: "x"}, 1},
		{"range", domain.AttendanceFilter{From: from, To: from.AddDate(0, 0, 7)}, 2},
		{"all", domain.AttendanceFilter{EmployeeRef: "x", From: from, To: from.AddDate(0, 0, 7)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(attendanceConditions(tt.filter)); got != tt.want {
				t.Errorf("conditions = %d, want %d", got, tt.want)
			}
		})
	}
}
