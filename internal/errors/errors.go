// Package errors defines the error taxonomy shared by the reflection model and
// the resolvers.
package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
)

// Sentinels for errors.Is. They match any Error with the same code.
var (
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument}
)

// Error is a classified failure. Subject names the class, member or field the
// failure is about.
type Error struct {
	Code    ErrorCode
	Message string
	Subject string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Is matches on code. A target with a Subject also requires the same subject.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Subject == "" || t.Subject == e.Subject
}

func NotFound(subject, format string, args ...any) error {
	return &Error{Code: CodeNotFound, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

func AlreadyInitialized(subject string) error {
	return &Error{
		Code:    CodeAlreadyInitialized,
		Subject: subject,
		Message: fmt.Sprintf("Property %s already set", subject),
	}
}

func InvalidArgument(subject, format string, args ...any) error {
	return &Error{Code: CodeInvalidArgument, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// PathnameNotFound is the NotFound error resolvers return for a class name.
func PathnameNotFound(className string) error {
	return NotFound(className, "no pathname found for class %s", className)
}

// IsCode reports whether err (or anything it wraps) is an Error with code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// SubjectOf returns the subject of the first Error in err's chain.
func SubjectOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
	}
	return ""
}
