package calls

import (
	"errors"
	"fmt"
)

// Kind classifies lifecycle failures so callers can map them without string matching.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidTransition  Kind = "invalid_transition"
	KindValidationFailed   Kind = "validation_failed"
	KindInvariantViolation Kind = "invariant_violation"
	KindPersistenceFailure Kind = "persistence_failure"
	KindConflict           Kind = "conflict"
	KindForbidden          Kind = "forbidden"
)

// Sentinels for errors.Is checks against an *Error of the same kind.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrValidationFailed   = &Error{Kind: KindValidationFailed}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrForbidden          = &Error{Kind: KindForbidden}
)

// Validation codes. Presentation layers key their messages off these.
const (
	CodeRemarksRequired       = "remarks_required"
	CodeFlaggedFieldsRequired = "flagged_fields_required"
	CodeFlaggedFieldUnknown   = "flagged_field_unknown"
	CodeTargetOfficeRequired  = "target_office_required"
	CodeTargetOfficeUnknown   = "target_office_unknown"
	CodeTargetOfficeSame      = "target_office_same"
)

// Error is the typed failure returned by the registry and the lifecycle engine.
type Error struct {
	Kind Kind
	// Code and Field are set for KindValidationFailed.
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("calls: %s: %v", msg, e.Err)
	}
	return "calls: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the kind of a lifecycle error, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func NotFound(identifier string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("call %q not found", identifier)}
}

func InvalidTransition(format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func ValidationFailed(field, code, message string) error {
	return &Error{Kind: KindValidationFailed, Field: field, Code: code, Message: message}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Forbidden rejects a caller who may not act on the call in its current state.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func PersistenceFailure(err error) error {
	return &Error{Kind: KindPersistenceFailure, Message: "durable write failed", Err: err}
}

func invariantf(format string, args ...any) error {
	return &Error{Kind: KindInvariantViolation, Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation reports internal data corruption; callers log it loudly.
func InvariantViolation(format string, args ...any) error {
	return invariantf(format, args...)
}
