package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/service"
)

// EmployeeRequest is the body of POST /api/employees
type EmployeeRequest struct {
	EmployeeID string `json:"employeeId"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// EmployeeResponse is the wire form of an employee
type EmployeeResponse struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toEmployeeResponse(e *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		FullName:   e.FullName,
		Email:      e.Email,
		Department: e.Department,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// ListEmployeesHandler handles GET /api/employees
type ListEmployeesHandler struct {
	employees *service.EmployeeService
	logger    *slog.Logger
}

func NewListEmployeesHandler(employees *service.EmployeeService, logger *slog.Logger) *ListEmployeesHandler {
	return &ListEmployeesHandler{employees: employees, logger: orDefault(logger)}
}

func (h *ListEmployeesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error fetching employees")
		return
	}

	resp := make([]EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		resp = append(resp, toEmployeeResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateEmployeeHandler handles POST /api/employees
type CreateEmployeeHandler struct {
	employees *service.EmployeeService
	logger    *slog.Logger
}

func NewCreateEmployeeHandler(employees *service.EmployeeService, logger *slog.Logger) *CreateEmployeeHandler {
	return &CreateEmployeeHandler{employees: employees, logger: orDefault(logger)}
}

func (h *CreateEmployeeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, h.logger, err)
		return
	}

	employee, err := h.employees.Create(r.Context(), service.CreateEmployeeInput{
		EmployeeID: req.EmployeeID,
		FullName:   req.FullName,
		Email:      req.Email,
		Department: req.Department,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error creating employee")
		return
	}

	h.logger.Debug("employee created", slog.String("id", employee.ID))
	writeJSON(w, http.StatusCreated, toEmployeeResponse(employee))
}

// EmployeeDetailHandler handles GET /api/employees/{id}. The id may be the
// system ID or the business employee ID.
type EmployeeDetailHandler struct {
	employees *service.EmployeeService
	logger    *slog.Logger
}

func NewEmployeeDetailHandler(employees *service.EmployeeService, logger *slog.Logger) *EmployeeDetailHandler {
	return &EmployeeDetailHandler{employees: employees, logger: orDefault(logger)}
}

func (h *EmployeeDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	employee, err := h.employees.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error fetching employee")
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// DeleteEmployeeHandler handles DELETE /api/employees/{id}. Attendance is
// not removed.
type DeleteEmployeeHandler struct {
	employees *service.EmployeeService
	logger    *slog.Logger
}

func NewDeleteEmployeeHandler(employees *service.EmployeeService, logger *slog.Logger) *DeleteEmployeeHandler {
	return &DeleteEmployeeHandler{employees: employees, logger: orDefault(logger)}
}

func (h *DeleteEmployeeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.logger.Debug("delete employee request", slog.String("id", id))

	if err := h.employees.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "Error deleting employee")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Employee deleted successfully"})
}
