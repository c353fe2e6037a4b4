package service

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/yourorg/hrmslite/internal/domain"
)

// Messages shown to end users; clients print them verbatim.
const (
	msgEmployeeIDRequired = "Employee ID is required"
	msgFullNameRequired   = "Full name is required"
	msgEmailInvalid       = "Valid email is required"
	msgDepartmentRequired = "Department is required"
	msgDateInvalid        = "Valid date is required"
	msgStatusInvalid      = "Status must be Present or Absent"

	msgEmployeeIDExists  = "Employee ID already exists"
	msgEmailExists       = "Email already exists"
	msgAttendanceExists  = "Attendance already marked for this employee on this date"
	msgEmployeeNotFound  = "Employee not found"
	msgAttendanceMissing = "Attendance record not found"
)

// CreateEmployeeInput is the payload of an employee registration
type CreateEmployeeInput struct {
	EmployeeID string
	FullName   string
	Email      string
	Department string
}

func (in CreateEmployeeInput) trimmed() CreateEmployeeInput {
	return CreateEmployeeInput{
		EmployeeID: strings.TrimSpace(in.EmployeeID),
		FullName:   strings.TrimSpace(in.FullName),
		Email:      strings.TrimSpace(in.Email),
		Department: strings.TrimSpace(in.Department),
	}
}

func validateEmployee(in CreateEmployeeInput) error {
	errs := validation.Errors{
		"employeeId": validation.Validate(in.EmployeeID, validation.Required.Error(msgEmployeeIDRequired)),
		"fullName":   validation.Validate(in.FullName, validation.Required.Error(msgFullNameRequired)),
		"email": validation.Validate(in.Email,
			validation.Required.Error(msgEmailInvalid),
			is.EmailFormat.Error(msgEmailInvalid),
		),
		"department": validation.Validate(in.Department, validation.Required.Error(msgDepartmentRequired)),
	}
	return toValidationError(errs, "employeeId", "fullName", "email", "department")
}

// MarkAttendanceInput is the payload of an attendance mark
type MarkAttendanceInput struct {
	EmployeeRef string
	Date        string
	Status      string
}

func validateAttendance(in MarkAttendanceInput, loc *time.Location) error {
	errs := validation.Errors{
		"employeeId": validation.Validate(strings.TrimSpace(in.EmployeeRef),
			validation.Required.Error(msgEmployeeIDRequired),
		),
		"date": validation.Validate(in.Date,
			validation.Required.Error(msgDateInvalid),
			validation.By(dayRule(loc)),
		),
		"status": validation.Validate(in.Status,
			validation.Required.Error(msgStatusInvalid),
			validation.In(string(domain.StatusPresent), string(domain.StatusAbsent)).Error(msgStatusInvalid),
		),
	}
	return toValidationError(errs, "employeeId", "date", "status")
}

func dayRule(loc *time.Location) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if _, err := domain.ParseDay(s, loc); err != nil {
			return errors.New(msgDateInvalid)
		}
		return nil
	}
}

// toValidationError flattens ozzo errors into ordered field errors, or nil.
func toValidationError(errs validation.Errors, order ...string) error {
	if errs.Filter() == nil {
		return nil
	}
	out := &domain.ValidationError{}
	for _, field := range order {
		if err := errs[field]; err != nil {
			out.Fields = append(out.Fields, domain.FieldError{Field: field, Message: err.Error()})
		}
	}
	return out
}
