package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and map errors.
//
// CONSISTENT ERROR FORMAT:
// Every JSON error response has the same shape:
//
//	{"error": "not_found", "message": "question not found with id 7"}
//
// HTML routes use the same mapping (classifyError) for the status code and
// the message shown on the page, so a duplicate email is a 409 whether it
// came through the register form or not.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/qa-forum/internal/apperror"
)

// ErrorResponse is the standard error format returned by all JSON endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

const genericErrorMessage = "Something went wrong. Please try again."

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body. Once the body
// starts, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status code and sends it as JSON.
//
// errors.Is() UNWRAPPING:
// errors.Is walks the whole chain via Unwrap(), so this works for wrapped errors:
//
//	service returns: fmt.Errorf("service/content: ...: %w", apperror.NotFound(...))
//	which wraps:     AppError{Err: ErrNotFound, Message: "..."}
//	errors.Is walks: outer error → AppError → ErrNotFound ✓ match!
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, errorType, message := classifyError(err)
	if status == http.StatusInternalServerError {
		// NEVER expose internal error details to the client: the raw message
		// might contain SQL or file paths. Log it instead.
		logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, ErrorResponse{Error: errorType, Message: message})
}

// classifyError is the single error → HTTP mapping.
//
//	ErrValidation                          → 400
//	ErrInvalidCredentials, ErrUnauthorized → 401
//	ErrNotFound                            → 404
//	ErrDuplicateEmail, ErrDuplicateEntry   → 409
//	anything else                          → 500, generic message
func classifyError(err error) (status int, errorType, message string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", genericErrorMessage
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr.Message
	case errors.Is(err, apperror.ErrDuplicateEmail):
		return http.StatusConflict, "duplicate_email", appErr.Message
	case errors.Is(err, apperror.ErrDuplicateEntry):
		return http.StatusConflict, "duplicate_entry", appErr.Message
	}
	return http.StatusInternalServerError, "internal_error", genericErrorMessage
}

// errorField returns the form field an error refers to, if any.
func errorField(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// parseID parses a positive integer id from a path or form value.
func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(field, field+" must be a positive integer")
	}
	return id, nil
}

// parseIDs parses every value that is a positive integer and skips the rest.
// The service drops ids that don't resolve, so a malformed id is treated
// the same way as an unknown one.
func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
