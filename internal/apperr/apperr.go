// Package apperr defines the error taxonomy shared by the transit and
// inventory services. Handlers map each kind to an HTTP status; callers
// distinguish kinds with the predicate helpers instead of string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// KindValidation: missing or malformed input. No side effect occurred.
	KindValidation Kind = iota
	// KindStateConflict: well-formed request against an entity not in a
	// legal source state (e.g. receiving an already-received destination).
	KindStateConflict
	// KindDuplicate: unique-identity conflict (correlative already taken,
	// asset already verified in this session).
	KindDuplicate
	// KindUnauthorized: the caller's dependency or role does not entitle
	// them to act on this resource.
	KindUnauthorized
	// KindNotFound: referenced entity does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindStateConflict:
		return "state_conflict"
	case KindDuplicate:
		return "duplicate"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is a classified application error. Fields carries per-field
// violations for KindValidation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

// Validation builds a validation error from field violations.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func StateConflict(format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

func Duplicate(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err and true when err is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func is(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

func IsValidation(err error) bool    { return is(err, KindValidation) }
func IsStateConflict(err error) bool { return is(err, KindStateConflict) }
func IsDuplicate(err error) bool     { return is(err, KindDuplicate) }
func IsUnauthorized(err error) bool  { return is(err, KindUnauthorized) }
func IsNotFound(err error) bool      { return is(err, KindNotFound) }
