// Package apperr defines the error taxonomy surfaced to API clients.
package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the JSON error body returned by every handler.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Login      string `json:"login,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error carrying message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// WithLogin returns a copy of the error pointing the client at the login page.
func (e *APIError) WithLogin(location string) *APIError {
	cp := *e
	cp.Login = location
	return &cp
}

var (
	ErrUnauthenticated = &APIError{
		Code:       "unauthenticated",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &APIError{
		Code:       "access_denied",
		Message:    "You don't have permission to access this resource",
		StatusCode: http.StatusForbidden,
	}

	ErrCredential = &APIError{
		Code:       "invalid_credentials",
		Message:    "Invalid email or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAccountInactive = &APIError{
		Code:       "account_inactive",
		Message:    "This account is not active",
		StatusCode: http.StatusForbidden,
	}

	ErrTransientBackend = &APIError{
		Code:       "backend_unavailable",
		Message:    "The service is temporarily unreachable, please retry",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrServiceUnavailable = &APIError{
		Code:       "service_unavailable",
		Message:    "Service unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrValidation = &APIError{
		Code:       "validation_error",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "Too many requests. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
)

// Respond writes err as JSON. Errors that are not *APIError become ErrInternal.
func Respond(c *gin.Context, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = ErrInternal
	}
	c.JSON(apiErr.StatusCode, apiErr)
}

// Abort is Respond for middleware.
func Abort(c *gin.Context, err error) {
	Respond(c, err)
	c.Abort()
}
