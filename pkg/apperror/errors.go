package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that classifies every failure the engine
// can surface. The HTTP status is a hint for the embedding presentation
// layer; this package never writes responses itself.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to callers)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code extracts the error code from err, or SYS_001 for untyped errors.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "SYS_001"
}

// ---- Lookup (WAL) ----

func ErrNotFound(entity string) *AppError {
	return New("WAL_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrDuplicate(what string) *AppError {
	return New("WAL_002", fmt.Sprintf("%s already exists", what), http.StatusConflict)
}

// ---- Authorization (AUTH) ----

// ErrInvalidAuthorization is deliberately detail-free: callers must not be
// able to tell which part of the authorization check failed.
func ErrInvalidAuthorization() *AppError {
	return New("AUTH_001", "Authorization failed", http.StatusUnauthorized)
}

func ErrTooManyAuthAttempts() *AppError {
	return New("AUTH_002", "Too many failed authorization attempts", http.StatusTooManyRequests)
}

// ---- Fund movement (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient balance in account", http.StatusPaymentRequired)
}

func ErrInvalidTransaction(reason string) *AppError {
	return New("PAY_002", reason, http.StatusUnprocessableEntity)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrTransientConflict is returned when optimistic-lock retries are
// exhausted. The operation left no partial state and may be retried.
func ErrTransientConflict(err error) *AppError {
	return Wrap("SYS_002", "Operation conflicted with concurrent activity, retry", http.StatusServiceUnavailable, err)
}

// ErrIdentifierCollision indicates the identifier generator produced a
// duplicate twice in a row. Treated as a generator defect, not user error.
func ErrIdentifierCollision(err error) *AppError {
	return Wrap("SYS_003", "Transaction identifier generation failed", http.StatusInternalServerError, err)
}

// ---- Input validation (VAL) ----

// Validation rejects malformed input before any business rule runs. Distinct
// from PAY_002, which rejects well-formed input a business rule refuses.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
