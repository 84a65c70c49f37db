// Package response writes Pagemark's JSON envelopes from plain http handlers.
//
// Most of the API goes through huma, which shapes errors via the registered
// error handler. This package covers the handlers that run outside huma
// (middleware rejections, panics) so every error body on the wire has the
// same {"success": false, "error": {...}} shape.
package response

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"

	domainerrors "github.com/pagemarkapp/pagemark-server/internal/errors"
)

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the JSON error envelope.
type Envelope struct {
	Success bool       `json:"success"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Error writes an error envelope with the given status, code, and message.
func Error(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	envelope := Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    string(code),
			Message: message,
		},
	}

	// json/v2 MarshalWrite doesn't add a newline, but that's fine for HTTP responses.
	if err := json.MarshalWrite(w, envelope); err != nil {
		if logger != nil {
			logger.Error("failed to encode error response", "error", err)
		}
	}
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, domainerrors.CodeUnavailable, message, logger)
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, domainerrors.CodeInternal, message, logger)
}
