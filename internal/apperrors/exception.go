package apperrors

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindConflict         Kind = "conflict"
	KindInvalidOperation Kind = "invalid_operation"
	KindAuthentication   Kind = "authentication_failure"
	KindInternal         Kind = "internal_error"
)

// Exception is an error the HTTP layer can surface as-is. Two exceptions
// match under errors.Is when their kinds match, so callers compare against
// the Err* sentinels regardless of the message.
type Exception struct {
	Kind       Kind
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation       = &Exception{Kind: KindValidation, Message: "validation failed", StatusCode: http.StatusBadRequest}
	ErrNotFound         = &Exception{Kind: KindNotFound, Message: "not found", StatusCode: http.StatusNotFound}
	ErrForbidden        = &Exception{Kind: KindForbidden, Message: "forbidden", StatusCode: http.StatusForbidden}
	ErrConflict         = &Exception{Kind: KindConflict, Message: "conflict", StatusCode: http.StatusConflict}
	ErrInvalidOperation = &Exception{Kind: KindInvalidOperation, Message: "invalid operation", StatusCode: http.StatusBadRequest}
	ErrAuthentication   = &Exception{Kind: KindAuthentication, Message: "invalid username or password", StatusCode: http.StatusUnauthorized}
)

func Validation(message string) error {
	return &Exception{Kind: KindValidation, Message: message, StatusCode: http.StatusBadRequest}
}

func NotFound(message string) error {
	return &Exception{Kind: KindNotFound, Message: message, StatusCode: http.StatusNotFound}
}

func Forbidden(message string) error {
	return &Exception{Kind: KindForbidden, Message: message, StatusCode: http.StatusForbidden}
}

func Conflict(message string) error {
	return &Exception{Kind: KindConflict, Message: message, StatusCode: http.StatusConflict}
}

func InvalidOperation(message string) error {
	return &Exception{Kind: KindInvalidOperation, Message: message, StatusCode: http.StatusBadRequest}
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func KindOf(err error) Kind {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
