package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request ID so audit lines can be correlated with
// request logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, action, resource, resourceID, status, details string) {
	if al == nil {
		return
	}
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogEmployeeCreated(ctx context.Context, id, employeeID string) {
	al.LogAction(ctx, "create", "employee", id, "success", "employee_id="+employeeID)
}

func (al *Logger) LogEmployeeDeleted(ctx context.Context, id string) {
	al.LogAction(ctx, "delete", "employee", id, "success", "")
}

func (al *Logger) LogAttendanceMarked(ctx context.Context, id, employeeRef, day, status string) {
	al.LogAction(ctx, "mark", "attendance", id, "success", "employee="+employeeRef+" date="+day+" status="+status)
}

func (al *Logger) LogAttendanceDeleted(ctx context.Context, id string) {
	al.LogAction(ctx, "delete", "attendance", id, "success", "")
}

func (al *Logger) LogRejected(ctx context.Context, action, resource, reason string) {
	al.LogAction(ctx, action, resource, "", "rejected", reason)
}
