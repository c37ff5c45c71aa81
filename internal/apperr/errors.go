package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies errors raised while building, resolving and executing queries.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindInvalidFilter      Kind = "invalid_filter"
	KindInvalidFacet       Kind = "invalid_facet"
	KindUnknownField       Kind = "unknown_field"
	KindUnsupportedUseCase Kind = "unsupported_use_case"
	KindUnsupported        Kind = "unsupported"
	KindParse              Kind = "parse"
)

// Error is the single error type of the query core. Construction-time kinds
// (invalid filter/facet, validation, parse) are raised immediately by constructors;
// resolution kinds (unknown field, unsupported use-case) only in strict mode.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError is kept as an alias so existing callers matching on it keep working.
type ValidationError = Error

func NewValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewValidationWrap(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func InvalidFilter(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidFilter, Message: fmt.Sprintf(format, args...)}
}

func InvalidFacet(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidFacet, Message: fmt.Sprintf(format, args...)}
}

func UnknownField(field, schemaType string) *Error {
	return &Error{
		Kind:    KindUnknownField,
		Message: fmt.Sprintf("unknown field in schema %q", schemaType),
		Field:   field,
	}
}

func UnsupportedUseCase(field, useCase string) *Error {
	return &Error{
		Kind:    KindUnsupportedUseCase,
		Message: fmt.Sprintf("field does not support use-case %s", useCase),
		Field:   field,
	}
}

func Unsupported(format string, args ...any) *Error {
	return &Error{Kind: KindUnsupported, Message: fmt.Sprintf(format, args...)}
}

func Parse(msg string, err error) *Error {
	return &Error{Kind: KindParse, Message: msg, Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
