package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/security/audit"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

// MessageResponse confirms an operation without returning an entity
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// decodeJSON reads a single JSON object into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func writeBadBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Warn("failed to decode request",
		slog.String("request_id", audit.RequestID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeMessage(w, http.StatusBadRequest, "Invalid request body")
}

// writeServiceError maps domain errors to status codes. Unexpected errors are
// logged and answered with fallback only.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var (
		verr     *domain.ValidationError
		conflict *domain.ConflictError
		notFound *domain.NotFoundError
		storeErr *domain.StoreError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Errors: verr.Fields})
	case errors.As(err, &conflict):
		writeMessage(w, http.StatusBadRequest, conflict.Message)
	case errors.As(err, &notFound):
		writeMessage(w, http.StatusNotFound, notFound.Message)
	default:
		message := fallback
		if errors.As(err, &storeErr) && storeErr.Message != "" {
			message = storeErr.Message
		}
		logger.Error(message,
			slog.String("request_id", audit.RequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeMessage(w, http.StatusInternalServerError, message)
	}
}
