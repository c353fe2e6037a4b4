package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/service"
)

// AttendanceRequest is the body of POST /api/attendance. EmployeeID may be
// the employee's system id or business id.
type AttendanceRequest struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	Status     string `json:"status"`
}

// AttendanceResponse is the wire form of a record. Employee fields are
// omitted when the employee no longer exists.
type AttendanceResponse struct {
	ID          string    `json:"id"`
	EmployeeRef string    `json:"employeeRef"`
	EmployeeID  string    `json:"employeeId,omitempty"`
	FullName    string    `json:"fullName,omitempty"`
	Date        string    `json:"date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SummaryResponse is the body of GET /api/employees/{id}/attendance/summary
type SummaryResponse struct {
	Employee       EmployeeResponse     `json:"employee"`
	Records        []AttendanceResponse `json:"records"`
	TotalDays      int                  `json:"totalDays"`
	TotalPresent   int                  `json:"totalPresent"`
	TotalAbsent    int                  `json:"totalAbsent"`
	AttendanceRate float64              `json:"attendanceRate"`
}

func toAttendanceResponse(v *domain.AttendanceView) AttendanceResponse {
	resp := AttendanceResponse{
		ID:          v.ID,
		EmployeeRef: v.EmployeeRef,
		Date:        v.Date.Format(domain.DateLayout),
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
	if v.Employee != nil {
		resp.EmployeeID = v.Employee.EmployeeID
		resp.FullName = v.Employee.FullName
	}
	return resp
}

func toAttendanceResponses(views []*domain.AttendanceView) []AttendanceResponse {
	resp := make([]AttendanceResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toAttendanceResponse(v))
	}
	return resp
}

// ListAttendanceHandler handles GET /api/attendance?employeeId=&startDate=&endDate=
type ListAttendanceHandler struct {
	attendance *service.AttendanceService
	logger     *slog.Logger
}

func NewListAttendanceHandler(attendance *service.AttendanceService, logger *slog.Logger) *ListAttendanceHandler {
	return &ListAttendanceHandler{attendance: attendance, logger: orDefault(logger)}
}

func (h *ListAttendanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := h.attendance.List(r.Context(), service.ListAttendanceInput{
		EmployeeRef: q.Get("employeeId"),
		StartDate:   q.Get("startDate"),
		EndDate:     q.Get("endDate"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error fetching attendance records")
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceResponses(views))
}

// MarkAttendanceHandler handles POST /api/attendance
type MarkAttendanceHandler struct {
	attendance *service.AttendanceService
	logger     *slog.Logger
}

func NewMarkAttendanceHandler(attendance *service.AttendanceService, logger *slog.Logger) *MarkAttendanceHandler {
	return &MarkAttendanceHandler{attendance: attendance, logger: orDefault(logger)}
}

func (h *MarkAttendanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req AttendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, h.logger, err)
		return
	}

	view, err := h.attendance.Mark(r.Context(), service.MarkAttendanceInput{
		EmployeeRef: req.EmployeeID,
		Date:        req.Date,
		Status:      req.Status,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error marking attendance")
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceResponse(view))
}

// AttendanceDetailHandler handles GET /api/attendance/{id}
type AttendanceDetailHandler struct {
	attendance *service.AttendanceService
	logger     *slog.Logger
}

func NewAttendanceDetailHandler(attendance *service.AttendanceService, logger *slog.Logger) *AttendanceDetailHandler {
	return &AttendanceDetailHandler{attendance: attendance, logger: orDefault(logger)}
}

func (h *AttendanceDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	view, err := h.attendance.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error fetching attendance record")
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceResponse(view))
}

// DeleteAttendanceHandler handles DELETE /api/attendance/{id}
type DeleteAttendanceHandler struct {
	attendance *service.AttendanceService
	logger     *slog.Logger
}

func NewDeleteAttendanceHandler(attendance *service.AttendanceService, logger *slog.Logger) *DeleteAttendanceHandler {
	return &DeleteAttendanceHandler{attendance: attendance, logger: orDefault(logger)}
}

func (h *DeleteAttendanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.attendance.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, err, "Error deleting attendance record")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Attendance record deleted successfully"})
}

// AttendanceSummaryHandler handles GET /api/employees/{id}/attendance/summary
type AttendanceSummaryHandler struct {
	attendance *service.AttendanceService
	logger     *slog.Logger
}

func NewAttendanceSummaryHandler(attendance *service.AttendanceService, logger *slog.Logger) *AttendanceSummaryHandler {
	return &AttendanceSummaryHandler{attendance: attendance, logger: orDefault(logger)}
}

func (h *AttendanceSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	summary, err := h.attendance.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Error fetching attendance summary")
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Employee:       toEmployeeResponse(summary.Employee),
		Records:        toAttendanceResponses(summary.Records),
		TotalDays:      summary.TotalDays,
		TotalPresent:   summary.TotalPresent,
		TotalAbsent:    summary.TotalAbsent,
		AttendanceRate: summary.AttendanceRate,
	})
}
