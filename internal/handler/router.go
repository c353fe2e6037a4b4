package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/hrmslite/internal/observability/metrics"
	"github.com/yourorg/hrmslite/internal/security/middleware"
	"github.com/yourorg/hrmslite/internal/security/ratelimit"
	"github.com/yourorg/hrmslite/internal/service"
)

// RouterConfig wires the API
type RouterConfig struct {
	Employees          *service.EmployeeService
	Attendance         *service.AttendanceService
	Checks             map[string]Pinger
	Limiter            ratelimit.Backend // nil disables rate limiting
	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// NewRouter registers every route and wraps the mux with
// tracing -> request ID -> CORS -> rate limit -> metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := orDefault(cfg.Logger)

	mux := http.NewServeMux()
	mux.Handle("GET /api/employees", NewListEmployeesHandler(cfg.Employees, logger))
	mux.Handle("POST /api/employees", NewCreateEmployeeHandler(cfg.Employees, logger))
	mux.Handle("GET /api/employees/{id}", NewEmployeeDetailHandler(cfg.Employees, logger))
	mux.Handle("DELETE /api/employees/{id}", NewDeleteEmployeeHandler(cfg.Employees, logger))
	mux.Handle("GET /api/employees/{id}/attendance/summary", NewAttendanceSummaryHandler(cfg.Attendance, logger))
	mux.Handle("GET /api/attendance", NewListAttendanceHandler(cfg.Attendance, logger))
	mux.Handle("POST /api/attendance", NewMarkAttendanceHandler(cfg.Attendance, logger))
	mux.Handle("GET /api/attendance/{id}", NewAttendanceDetailHandler(cfg.Attendance, logger))
	mux.Handle("DELETE /api/attendance/{id}", NewDeleteAttendanceHandler(cfg.Attendance, logger))
	mux.Handle("GET /healthz", HealthHandler{})
	mux.Handle("GET /readyz", NewReadinessHandler(cfg.Checks, logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = metrics.HTTPMetricsMiddleware(mux)
	if cfg.Limiter != nil {
		h = middleware.RateLimit(cfg.Limiter, logger)(h)
	}
	h = middleware.CORS(cfg.CORSAllowedOrigins)(h)
	h = middleware.RequestID(logger)(h)
	return otelhttp.NewHandler(h, "hrms-api")
}
