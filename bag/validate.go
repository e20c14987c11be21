package bag

import (
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/spider/ir"
)

// NormalizeName prepares a collection, label or field name for a Bag:
// NFC normalization then surrounding whitespace trimmed.
func NormalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Validate checks the structural rules every processor relies on and
// returns a BUILDER_USAGE error describing the first violation.
//
// Rules:
//  1. Command is one of retrieve, create, update or delete
//  2. Target has exactly one form; ids are non-empty
//  3. Every where entry has a field, a known comparator and a known
//     conjunction; In and NotIn operands are lists
//  4. Limit is not negative
//  5. Create has at least one record, targets a name and has no where,
//     projections, order or grouping
//  6. Update has exactly one non-empty record
//  7. Retrieve and Delete carry no data
//  8. Projections, GroupBy and OrderBy are Retrieve-only
//
// Validate is a pure function with no side effects.
func Validate(b *Bag) error {
	if b == nil {
		return usage("bag is nil")
	}

	switch b.Command {
	case Retrieve, Create, Update, Delete:
	case "":
		return usage("no command has been begun")
	default:
		return usage("unknown command %q", b.Command)
	}

	if err := validateTarget(b); err != nil {
		return err
	}
	if err := validateWhere(b.Where); err != nil {
		return err
	}
	if b.Limit < 0 {
		return &ir.Error{Code: ir.CodeInvalidArgument, Op: "Validate", Message: fmt.Sprintf("limit must not be negative, got %d", b.Limit)}
	}
	for _, o := range b.OrderBy {
		if o.Field == "" {
			return usage("order by field is empty")
		}
		if o.Direction != Asc && o.Direction != Desc {
			return usage("unknown order direction %q", o.Direction)
		}
	}

	switch b.Command {
	case Create:
		if len(b.Data) == 0 {
			return usage("create has no records")
		}
		if b.Target.IsID() {
			return usage("create must target a name, not record ids")
		}
		if len(b.Where) > 0 {
			return usage("create does not accept where constraints")
		}
		if b.Limit > 0 {
			return usage("create does not accept a limit")
		}
	case Update:
		if len(b.Data) != 1 {
			return usage("update needs exactly one field map, got %d", len(b.Data))
		}
		if len(b.Data[0]) == 0 {
			return usage("update has no fields to set")
		}
	case Retrieve, Delete:
		if len(b.Data) > 0 {
			return usage("%s does not accept data", b.Command)
		}
	}

	if b.Command != Retrieve {
		if len(b.Projections) > 0 {
			return usage("projections are only valid on retrieve")
		}
		if len(b.GroupBy) > 0 {
			return usage("group by is only valid on retrieve")
		}
		if len(b.OrderBy) > 0 {
			return usage("order by is only valid on retrieve")
		}
	}
	return nil
}

func validateTarget(b *Bag) error {
	t := b.Target
	switch {
	case t.IsZero():
		return usage("%s has no target", b.Command)
	case t.Name != "" && t.IsID():
		return usage("target has both a name and record ids")
	}
	for i, id := range t.IDs {
		if id == "" {
			return usage("target id %d is empty", i)
		}
	}
	return nil
}

func validateWhere(where []Constraint) error {
	for i, c := range where {
		if c.Field == "" {
			return usage("where %d has an empty field", i)
		}
		if !c.Comparator.Valid() {
			return usage("where %d has unknown comparator %q", i, c.Comparator)
		}
		switch c.Conjunction {
		case And, Or:
		case "":
			if i > 0 {
				return usage("where %d has no conjunction", i)
			}
		default:
			return usage("where %d has unknown conjunction %q", i, c.Conjunction)
		}
		if c.Comparator == In || c.Comparator == NotIn {
			if !IsList(c.Value) {
				return usage("where %d: %s needs a list operand, got %T", i, c.Comparator, c.Value)
			}
		}
	}
	return nil
}

// IsList reports whether v is a slice or array.
func IsList(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func usage(format string, args ...any) *ir.Error {
	return ir.Errorf(ir.CodeBuilderUsage, "Validate", format, args...)
}
