package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can pick a reply or status.
type Kind string

const (
	KindBadArity        Kind = "BAD_ARITY"
	KindBadDateTime     Kind = "BAD_DATETIME"
	KindPastDateTime    Kind = "PAST_DATETIME"
	KindBadReminderSpec Kind = "BAD_REMINDER_SPEC"
	KindBadTimezone     Kind = "BAD_TIMEZONE"
	KindNotFound        Kind = "NOT_FOUND"
	KindIO              Kind = "IO_ERROR"
)

// Error is a classified error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a classified error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps err with a classification.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IO wraps a storage or delivery failure.
func IO(message string, err error) *Error {
	return WrapError(KindIO, message, err)
}

var ErrTaskNotFound = NewError(KindNotFound, "task not found")

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Kind == kind
	}
	return false
}

// KindOf returns the classification of err, or KindIO for unclassified errors.
func KindOf(err error) Kind {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Kind
	}
	return KindIO
}
