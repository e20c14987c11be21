package ir

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an Error.
type ErrorCode string

const (
	// CodeBuilderUsage indicates an invalid sequence or combination of
	// builder calls, e.g. AndWhere before Where or mixing From and Record.
	CodeBuilderUsage ErrorCode = "BUILDER_USAGE"

	// CodeInvalidArgument indicates a structurally invalid value passed to a
	// builder call, e.g. a non-positive limit.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeUnsupportedOperation indicates a comparator or clause combination
	// the target dialect cannot express.
	CodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// CodeUnsupportedValueType indicates a literal the target dialect cannot
	// represent.
	CodeUnsupportedValueType ErrorCode = "UNSUPPORTED_VALUE_TYPE"

	// CodeNoResults indicates a single-record terminal call matched nothing.
	CodeNoResults ErrorCode = "NO_RESULTS"

	// CodeAmbiguousResult indicates One matched more than one record.
	CodeAmbiguousResult ErrorCode = "AMBIGUOUS_RESULT"

	// CodeDriverFailure wraps anything reported by a driver.
	CodeDriverFailure ErrorCode = "DRIVER_FAILURE"
)

// Error is the classified error returned by every layer of spider.
//
// Driver failures keep the driver's error in Err unchanged; Unwrap exposes
// it so errors.Is and errors.As on the original error still work.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the call that failed (e.g. "Where", "Compile", "Execute").
	Op string

	// Message is a human-readable description.
	Message string

	// Dialect and Script identify the compiled command, when there is one.
	Dialect string
	Script  string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	prefix := string(e.Code)
	if e.Op != "" {
		prefix = fmt.Sprintf("%s %s", e.Code, e.Op)
	}
	if e.Dialect != "" && e.Script != "" {
		return fmt.Sprintf("%s: %s (dialect=%s, script=%q)", prefix, msg, e.Dialect, e.Script)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewDriverError wraps a driver-reported failure with the command that
// caused it.
func NewDriverError(op, dialect string, cmd Command, err error) *Error {
	return &Error{
		Code:    CodeDriverFailure,
		Op:      op,
		Dialect: dialect,
		Script:  cmd.Script,
		Err:     err,
	}
}

// CodeOf returns the code of the first Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsBuilderUsage reports whether err is a builder usage error.
func IsBuilderUsage(err error) bool { return CodeOf(err) == CodeBuilderUsage }

// IsInvalidArgument reports whether err is an invalid argument error.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsUnsupported reports whether err is an unsupported operation or an
// unsupported value type error.
func IsUnsupported(err error) bool {
	code := CodeOf(err)
	return code == CodeUnsupportedOperation || code == CodeUnsupportedValueType
}

// IsNoResults reports whether err is a no-results error.
func IsNoResults(err error) bool { return CodeOf(err) == CodeNoResults }

// IsAmbiguous reports whether err is an ambiguous-result error.
func IsAmbiguous(err error) bool { return CodeOf(err) == CodeAmbiguousResult }

// IsDriverFailure reports whether err came from a driver.
func IsDriverFailure(err error) bool { return CodeOf(err) == CodeDriverFailure }
