package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels returned by repositories. Services translate them into the
// user-facing error types below.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("validation failed")
)

// Unique keys enforced by the stores.
const (
	KeyEmployeeCode  = "employee_id"
	KeyEmployeeEmail = "email"
	KeyAttendanceDay = "employee_date"
)

// DuplicateKeyError reports which unique constraint a write violated.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %s", e.Key)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicate
}

// NewDuplicateKeyError wraps ErrDuplicate with the violated key.
func NewDuplicateKeyError(key string) error {
	return &DuplicateKeyError{Key: key}
}

// DuplicateKey returns the violated key of a duplicate error, if any.
func DuplicateKey(err error) (string, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Key, true
	}
	return "", false
}

// FieldError is a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// ConflictError is a uniqueness violation with a message meant for end users.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotFoundError is a missing referenced entity.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreError is an unanticipated storage failure. Message is safe to show;
// Err is only logged.
type StoreError struct {
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
