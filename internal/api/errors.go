package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pagemarkapp/pagemark-server/internal/errors"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// ErrorDetail is the coded error half of the response envelope.
type ErrorDetail struct {
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with the
// {"success": false, "error": {...}} envelope clients parse.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Success bool        `json:"success"`
	Detail  ErrorDetail `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Detail.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		// Check if any of the errors are domain errors
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status: domainErr.HTTPStatus(),
					Detail: ErrorDetail{
						Code:    string(domainErr.Code),
						Message: domainErr.Message,
						Details: domainErr.Details,
					},
				}
			}

			// Check for store "not found" errors and convert to 404
			if isNotFoundError(err) {
				return &APIError{
					status: http.StatusNotFound,
					Detail: ErrorDetail{
						Code:    string(domainerrors.CodeNotFound),
						Message: err.Error(),
					},
				}
			}
		}

		// Anything uncoded that reaches a 5xx must not leak internals.
		if status >= http.StatusInternalServerError {
			message = "internal server error"
		}

		return &APIError{
			status: status,
			Detail: ErrorDetail{
				Code:    statusToCode(status),
				Message: message,
			},
		}
	}
}

// isNotFoundError checks if the error is a "not found" type error from the store.
func isNotFoundError(err error) bool {
	var storeErr *store.Error
	if errors.As(err, &storeErr) && storeErr.HTTPCode() == http.StatusNotFound {
		return true
	}
	return errors.Is(err, store.ErrNotFound)
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return string(domainerrors.CodeUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}
