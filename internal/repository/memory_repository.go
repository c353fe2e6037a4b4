package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/hrmslite/internal/domain"
)

// MemoryStore keeps both collections in process memory. Its lock is the
// storage-level unique constraint, so it only protects a single server
// process; use it for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        int64
	employees  map[string]*memEmployee
	attendance map[string]*memAttendance
	days       map[string]string // employeeRef|day -> attendance ID
	now        func() time.Time
}

type memEmployee struct {
	domain.Employee
	seq int64
}

type memAttendance struct {
	domain.AttendanceRecord
	seq int64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees:  map[string]*memEmployee{},
		attendance: map[string]*memAttendance{},
		days:       map[string]string{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Employees returns the employee collection
func (s *MemoryStore) Employees() *MemoryEmployeeRepository {
	return &MemoryEmployeeRepository{store: s}
}

// Attendance returns the attendance collection
func (s *MemoryStore) Attendance() *MemoryAttendanceRepository {
	return &MemoryAttendanceRepository{store: s}
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func dayKey(employeeRef string, day time.Time) string {
	return fmt.Sprintf("%s|%d", employeeRef, day.Unix())
}

// MemoryEmployeeRepository implements domain.EmployeeRepository in memory
type MemoryEmployeeRepository struct {
	store *MemoryStore
}

func (r *MemoryEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.employees {
		if e.EmployeeID == employee.EmployeeID {
			return domain.NewDuplicateKeyError(domain.KeyEmployeeCode)
		}
	}
	for _, e := range s.employees {
		if e.Email == employee.Email {
			return domain.NewDuplicateKeyError(domain.KeyEmployeeEmail)
		}
	}

	employee.ID = uuid.NewString()
	employee.CreatedAt = s.now()
	employee.UpdatedAt = employee.CreatedAt
	s.seq++
	s.employees[employee.ID] = &memEmployee{Employee: *employee, seq: s.seq}
	return nil
}

func (r *MemoryEmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if e, ok := r.store.employees[id]; ok {
		employee := e.Employee
		return &employee, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryEmployeeRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	return r.find(func(e *memEmployee) bool { return e.EmployeeID == employeeID })
}

func (r *MemoryEmployeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return r.find(func(e *memEmployee) bool { return e.Email == email })
}

func (r *MemoryEmployeeRepository) find(match func(*memEmployee) bool) (*domain.Employee, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, e := range r.store.employees {
		if match(e) {
			employee := e.Employee
			return &employee, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := make([]*memEmployee, 0, len(r.store.employees))
	for _, e := range r.store.employees {
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	employees := make([]*domain.Employee, 0, len(rows))
	for _, e := range rows {
		employee := e.Employee
		employees = append(employees, &employee)
	}
	return employees, nil
}

func (r *MemoryEmployeeRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.employees[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.employees, id)
	return nil
}

// MemoryAttendanceRepository implements domain.AttendanceRepository in memory
type MemoryAttendanceRepository struct {
	store *MemoryStore
}

func (r *MemoryAttendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(record.EmployeeRef, record.Date)
	if _, taken := s.days[key]; taken {
		return domain.NewDuplicateKeyError(domain.KeyAttendanceDay)
	}

	record.ID = uuid.NewString()
	record.CreatedAt = s.now()
	record.UpdatedAt = record.CreatedAt
	s.seq++
	s.attendance[record.ID] = &memAttendance{AttendanceRecord: *record, seq: s.seq}
	s.days[key] = record.ID
	return nil
}

func (r *MemoryAttendanceRepository) ExistsInRange(ctx context.Context, employeeRef string, from, to time.Time) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, a := range r.store.attendance {
		if a.EmployeeRef == employeeRef && !a.Date.Before(from) && a.Date.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryAttendanceRepository) GetByID(ctx context.Context, id string) (*domain.AttendanceView, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.attendance[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.view(a), nil
}

func (r *MemoryAttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]*domain.AttendanceView, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := make([]*memAttendance, 0, len(r.store.attendance))
	for _, a := range r.store.attendance {
		if filter.EmployeeRef != "" && a.EmployeeRef != filter.EmployeeRef {
			continue
		}
		if !filter.From.IsZero() && a.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !a.Date.Before(filter.To) {
			continue
		}
		rows = append(rows, a)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].seq > rows[j].seq
	})

	views := make([]*domain.AttendanceView, 0, len(rows))
	for _, a := range rows {
		views = append(views, r.view(a))
	}
	return views, nil
}

// view joins a record with its employee; callers hold the read lock.
func (r *MemoryAttendanceRepository) view(a *memAttendance) *domain.AttendanceView {
	v := &domain.AttendanceView{AttendanceRecord: a.AttendanceRecord}
	if e, ok := r.store.employees[a.EmployeeRef]; ok {
		v.Employee = &domain.EmployeeSummary{
			ID:         e.ID,
			EmployeeID: e.EmployeeID,
			FullName:   e.FullName,
		}
	}
	return v
}

func (r *MemoryAttendanceRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.attendance[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.store.days, dayKey(a.EmployeeRef, a.Date))
	delete(r.store.attendance, id)
	return nil
}

var (
	_ domain.EmployeeRepository   = (*MemoryEmployeeRepository)(nil)
	_ domain.AttendanceRepository = (*MemoryAttendanceRepository)(nil)
)
