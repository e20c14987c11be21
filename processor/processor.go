// Package processor defines the Command Processor contract and the rendering
// helpers shared by the bundled dialects.
//
// A Processor is a pure function from a Command Bag to a native script:
//
//	bag.Bag → Processor.Compile → ir.Command{Script, Language, RW}
//
// Processors hold no state between calls. The same Bag always compiles to
// the same script for a given dialect, so every dialect is covered by
// golden-output tests.
package processor

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
)

// Processor compiles Bags for one dialect.
type Processor interface {
	// Dialect is the name used to select this processor in configuration.
	Dialect() string

	// Language is the script language tag attached to compiled Commands.
	Language() string

	// Compile renders b as a native script. The returned Command's RW is
	// copied from the Bag.
	Compile(b *bag.Bag) (ir.Command, error)
}

// Prepare runs bag.Validate and tags any failure with the dialect.
// Every Compile implementation calls it before rendering.
func Prepare(dialect string, b *bag.Bag) error {
	return Tag(dialect, bag.Validate(b))
}

// Tag marks an *ir.Error as raised by Compile for dialect. Other errors
// and nil pass through unchanged.
func Tag(dialect string, err error) error {
	var e *ir.Error
	if errors.As(err, &e) {
		e.Op = "Compile"
		e.Dialect = dialect
	}
	return err
}

// StringOperand returns the operand of a text comparator (Contains, Like,
// Regex), which must be a string.
func StringOperand(dialect string, c bag.Constraint) (string, error) {
	switch v := c.Value.(type) {
	case string:
		return v, nil
	case ir.ID:
		return string(v), nil
	}
	return "", UnsupportedValue(dialect, "%s on %q needs a string operand, got %T", c.Comparator, c.Field, c.Value)
}

// Unsupported creates an UNSUPPORTED_OPERATION error for dialect.
func Unsupported(dialect, format string, args ...any) *ir.Error {
	return &ir.Error{
		Code:    ir.CodeUnsupportedOperation,
		Op:      "Compile",
		Dialect: dialect,
		Message: fmt.Sprintf("%s: %s", dialect, fmt.Sprintf(format, args...)),
	}
}

// UnsupportedValue creates an UNSUPPORTED_VALUE_TYPE error for dialect.
func UnsupportedValue(dialect, format string, args ...any) *ir.Error {
	return &ir.Error{
		Code:    ir.CodeUnsupportedValueType,
		Op:      "Compile",
		Dialect: dialect,
		Message: fmt.Sprintf("%s: %s", dialect, fmt.Sprintf(format, args...)),
	}
}

// InvalidID creates an INVALID_ARGUMENT error for a record id the dialect
// cannot address.
func InvalidID(dialect string, id ir.ID, want string) *ir.Error {
	return &ir.Error{
		Code:    ir.CodeInvalidArgument,
		Op:      "Compile",
		Dialect: dialect,
		Message: fmt.Sprintf("%s: record id %q is not %s", dialect, id, want),
	}
}

// Command builds the compiled Command for b.
func Command(p Processor, b *bag.Bag, script string) ir.Command {
	return ir.Command{Script: script, Language: p.Language(), RW: b.RW()}
}

var simpleIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsSimpleIdent reports whether s can be written as a bare identifier in
// every bundled dialect.
func IsSimpleIdent(s string) bool {
	return simpleIdent.MatchString(s)
}

var integerID = regexp.MustCompile(`^-?[0-9]+$`)

// IsIntegerID reports whether id is a plain decimal integer.
func IsIntegerID(id ir.ID) bool {
	return integerID.MatchString(string(id))
}

// Conjunction returns the effective conjunction of the i-th constraint.
// The first constraint has none; an unset conjunction means And.
func Conjunction(where []bag.Constraint, i int) bag.Conjunction {
	if i == 0 {
		return ""
	}
	if where[i].Conjunction == "" {
		return bag.And
	}
	return where[i].Conjunction
}
