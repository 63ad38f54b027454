package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure the boundary layer can map to a status.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrSessionBusy       ErrorCode = "SESSION_BUSY"       // 409
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION" // 409
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// Error is a structured error with code, status and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for bad input.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewSessionBusy creates a 409 error when another turn holds the session.
func NewSessionBusy(sessionID string) *Error {
	return &Error{
		Code:    ErrSessionBusy,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("session %s is processing another message", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewInvalidTransition creates a 409 error for a rejected phase change.
func NewInvalidTransition(from, to, reason string) *Error {
	msg := fmt.Sprintf("invalid phase transition from %s to %s", from, to)
	if reason != "" {
		msg += ": " + reason
	}
	return &Error{
		Code:    ErrInvalidTransition,
		Status:  http.StatusConflict,
		Message: msg,
		Details: map[string]any{"from": from, "to": to},
	}
}

// NewInternal creates a 500 error.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  http.StatusInternalServerError,
		Message: msg,
	}
}

// Is reports whether err (or anything it wraps) is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by err, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}
