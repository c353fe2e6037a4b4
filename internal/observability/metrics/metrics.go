package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrms_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	employeeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_employee_operations_total",
		Help: "Count of employee operations by operation and result",
	}, []string{"operation", "result"})

	attendanceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_attendance_operations_total",
		Help: "Count of attendance operations by operation and result",
	}, []string{"operation", "result"})

	attendanceMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_attendance_marked_total",
		Help: "Count of attendance records written by status",
	}, []string{"status"})

	storeDuplicates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_store_duplicate_rejections_total",
		Help: "Writes rejected by a storage unique constraint after passing the service pre-check",
	}, []string{"key"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrms_rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter",
	})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hrms_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"name"})
)

// Results used as metric labels.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveEmployee increments the employee operation counter.
func ObserveEmployee(operation, result string) {
	employeeOperations.WithLabelValues(operation, result).Inc()
}

// ObserveAttendance increments the attendance operation counter.
func ObserveAttendance(operation, result string) {
	attendanceOperations.WithLabelValues(operation, result).Inc()
}

// ObserveMarked counts a stored attendance record.
func ObserveMarked(status string) {
	attendanceMarked.WithLabelValues(status).Inc()
}

// ObserveStoreDuplicate counts a race lost to the storage constraint.
func ObserveStoreDuplicate(key string) {
	storeDuplicates.WithLabelValues(key).Inc()
}

// ObserveRateLimited counts a throttled request.
func ObserveRateLimited() {
	rateLimited.Inc()
}

// SetBreakerState records the state of a named circuit breaker.
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}
