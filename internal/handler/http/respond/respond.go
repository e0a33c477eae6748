// Package respond provides utilities for sending HTTP responses in JSON format.
// Error responses are sanitized so upstream details and credentials never reach clients.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	// Details carries optional machine-readable context such as the failing segment.
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// headers already sent
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes a JSON error response with the error's message.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, ErrorBody{Error: err.Error()})
}

// safePhrases mark validation messages that may be returned verbatim for 4xx responses.
var safePhrases = []string{
	"required",
	"invalid",
	"must be",
	"cannot be",
	"too long",
	"too large",
	"empty",
}

// SafeError returns err to the client only when it is a client error whose message
// looks like a validation message. Everything else becomes "internal server error"
// (or the AppError's user message) and the sanitized detail is logged.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			slog.Default().Error("application error",
				slog.String("status", http.StatusText(appErr.Code)),
				slog.Int("code", appErr.Code),
				slog.String("user_message", appErr.UserMsg),
				slog.String("error", SanitizeError(appErr.Err)))
		}
		JSON(w, appErr.Code, ErrorBody{Error: appErr.UserMsg, Details: appErr.Details})
		return
	}

	msg := err.Error()
	if code < 500 && isSafe(msg) {
		JSON(w, code, ErrorBody{Error: msg})
		return
	}

	// 内部エラーは汎用メッセージのみ返し、詳細はマスクしてログに出す
	slog.Default().Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, ErrorBody{Error: "internal server error"})
}

func isSafe(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range safePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// AppError is an error type that carries a user-facing message.
type AppError struct {
	UserMsg string         // Message to display to users
	Err     error          // Internal error (logged for debugging)
	Code    int            // HTTP status code
	Details map[string]any // Optional structured context returned to users
}

// Error returns the error message, implementing the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMsg
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError with the given parameters.
func NewAppError(code int, userMsg string, err error) *AppError {
	return &AppError{Code: code, UserMsg: userMsg, Err: err}
}
