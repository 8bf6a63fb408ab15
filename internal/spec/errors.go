package spec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes parser errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	ParseError      ErrorCode = "ParseError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured parse failure with an optional location.
type SpecError struct {
	Code     ErrorCode
	Message  string
	Location string
	Cause    error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// ErrParserNotRegistered is returned when no parser is registered for a type.
// It is distinct from a parse failure of a supported type.
var ErrParserNotRegistered = errors.New("spec: parser not registered")

type ParserNotRegisteredError struct {
	Type      string
	Available []string
}

func (e *ParserNotRegisteredError) Error() string {
	return fmt.Sprintf("no parser registered for type %q (available: %s)", e.Type, strings.Join(e.Available, ", "))
}

func (e *ParserNotRegisteredError) Is(target error) bool {
	return target == ErrParserNotRegistered
}
