package decode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/bitparse/internal/bitcursor"
)

// ErrorType represents the category of a decode failure
type ErrorType int

const (
	// ErrTypeInsufficientData indicates a read past the buffer or the current budget
	ErrTypeInsufficientData ErrorType = iota
	// ErrTypeConstraintViolation indicates a value failing a literal or cross-field constraint
	ErrTypeConstraintViolation
	// ErrTypeUnknownDiscriminant indicates a kind/version value outside its closed set
	ErrTypeUnknownDiscriminant
	// ErrTypeNoMatchingVariant indicates every dispatch candidate was rejected
	ErrTypeNoMatchingVariant
	// ErrTypeLengthMismatch indicates the consumed bits differ from the declared length
	ErrTypeLengthMismatch
	// ErrTypeInternalDefinition indicates a broken format definition, not bad input
	ErrTypeInternalDefinition
)

// Sentinels for use with errors.Is. A *DecodeError matches the sentinel of its Type.
var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrUnknownDiscriminant = errors.New("unknown discriminant")
	ErrNoMatchingVariant   = errors.New("no matching variant")
	ErrLengthMismatch      = errors.New("length mismatch")
	ErrInternalDefinition  = errors.New("internal definition error")
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeInsufficientData:
		return "InsufficientData"
	case ErrTypeConstraintViolation:
		return "ConstraintViolation"
	case ErrTypeUnknownDiscriminant:
		return "UnknownDiscriminant"
	case ErrTypeNoMatchingVariant:
		return "NoMatchingVariant"
	case ErrTypeLengthMismatch:
		return "LengthMismatch"
	case ErrTypeInternalDefinition:
		return "InternalDefinitionError"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

func (et ErrorType) sentinel() error {
	switch et {
	case ErrTypeInsufficientData:
		return ErrInsufficientData
	case ErrTypeConstraintViolation:
		return ErrConstraintViolation
	case ErrTypeUnknownDiscriminant:
		return ErrUnknownDiscriminant
	case ErrTypeNoMatchingVariant:
		return ErrNoMatchingVariant
	case ErrTypeLengthMismatch:
		return ErrLengthMismatch
	case ErrTypeInternalDefinition:
		return ErrInternalDefinition
	default:
		return nil
	}
}

// DecodeError is the single failure value produced by the engine.
type DecodeError struct {
	Type    ErrorType // Category of failure
	Offset  uint64    // Absolute bit offset the failing read started at
	Record  string    // Innermost record being decoded, if any
	Field   string    // Field, option or candidate name, if any
	Message string    // Human-readable detail
	Err     error     // Underlying cause, if any

	// Attempts holds each rejected candidate's failure for ErrTypeNoMatchingVariant.
	// They are deliberately not part of the Unwrap chain.
	Attempts []error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	switch {
	case e.Record != "" && e.Field != "":
		fmt.Fprintf(&b, " in %s.%s", e.Record, e.Field)
	case e.Field != "":
		fmt.Fprintf(&b, " in %s", e.Field)
	case e.Record != "":
		fmt.Fprintf(&b, " in %s", e.Record)
	}
	fmt.Fprintf(&b, " at bit %d", e.Offset)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for e.Type.
func (e *DecodeError) Is(target error) bool {
	return target != nil && target == e.Type.sentinel()
}

// Recoverable reports whether another interpretation of the same input may succeed.
// Definition errors are never recoverable.
func (e *DecodeError) Recoverable() bool {
	return e.Type != ErrTypeInternalDefinition
}

// TypeOf extracts the ErrorType of err, if err carries a *DecodeError.
func TypeOf(err error) (ErrorType, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Type, true
	}
	return 0, false
}

// IsRecoverable reports whether err may be retried against another candidate.
// Errors that are not decode errors are treated as definition defects.
func IsRecoverable(err error) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Recoverable()
	}
	return false
}

func newError(t ErrorType, offset uint64, field, format string, args ...any) *DecodeError {
	return &DecodeError{
		Type:    t,
		Offset:  offset,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// cursorError classifies an error returned by the bit cursor.
func cursorError(err error, offset uint64, field string) *DecodeError {
	var de *DecodeError
	if errors.As(err, &de) {
		return de
	}
	t := ErrTypeInternalDefinition
	if errors.Is(err, bitcursor.ErrOutOfBounds) {
		t = ErrTypeInsufficientData
	}
	return &DecodeError{Type: t, Offset: offset, Field: field, Err: err}
}

// inRecord stamps the record name on decode errors that do not carry one yet.
func inRecord(err error, record string) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Record == "" {
		de.Record = record
	}
	return err
}
