package bag

import (
	"reflect"
	"slices"

	"github.com/roach88/spider/ir"
)

// CommandType is the kind of command a Bag describes.
// The zero value means no command has been begun.
type CommandType string

const (
	Retrieve CommandType = "retrieve"
	Create   CommandType = "create"
	Update   CommandType = "update"
	Delete   CommandType = "delete"
)

// Comparator is the operator of a where constraint.
type Comparator string

const (
	Equal              Comparator = "EQUAL"
	NotEqual           Comparator = "NOT_EQUAL"
	GreaterThan        Comparator = "GT"
	GreaterThanOrEqual Comparator = "GTE"
	LessThan           Comparator = "LT"
	LessThanOrEqual    Comparator = "LTE"
	In                 Comparator = "IN"
	NotIn              Comparator = "NOT_IN"
	Contains           Comparator = "CONTAINS" // substring match
	Like               Comparator = "LIKE"     // SQL pattern with % and _
	Regex              Comparator = "REGEX"    // whole-value regular expression match
)

// Comparators lists every comparator in declaration order.
var Comparators = []Comparator{
	Equal, NotEqual,
	GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual,
	In, NotIn, Contains, Like, Regex,
}

// Valid reports whether c is a known comparator.
func (c Comparator) Valid() bool {
	return slices.Contains(Comparators, c)
}

// Conjunction joins a constraint to the one before it.
type Conjunction string

const (
	And Conjunction = "AND"
	Or  Conjunction = "OR"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Target is what a command addresses: a bare collection or label name, or
// one or more specific records. Exactly one form is set on a valid Bag.
type Target struct {
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`
	IDs  []ir.ID `json:"ids,omitempty" yaml:"ids,omitempty"`
}

// IsZero reports whether no target form is set.
func (t Target) IsZero() bool {
	return t.Name == "" && len(t.IDs) == 0
}

// IsID reports whether the target addresses specific records.
func (t Target) IsID() bool {
	return len(t.IDs) > 0
}

// Constraint is one where entry.
type Constraint struct {
	Field       string      `json:"field" yaml:"field"`
	Comparator  Comparator  `json:"comparator" yaml:"comparator"`
	Value       any         `json:"value" yaml:"value"`
	Conjunction Conjunction `json:"conjunction" yaml:"conjunction"`
}

// Order is one order-by entry.
type Order struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// Bag is the canonical, backend-neutral representation of one command.
type Bag struct {
	Command     CommandType  `json:"command" yaml:"command"`
	Target      Target       `json:"target" yaml:"target"`
	Projections []string     `json:"projections,omitempty" yaml:"projections,omitempty"`
	Where       []Constraint `json:"where,omitempty" yaml:"where,omitempty"`
	Limit       int          `json:"limit,omitempty" yaml:"limit,omitempty"`
	GroupBy     []string     `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	OrderBy     []Order      `json:"order_by,omitempty" yaml:"order_by,omitempty"`

	// Data is the CREATE payload (one or more records) or the UPDATE field
	// map (exactly one record).
	Data []ir.Record `json:"data,omitempty" yaml:"data,omitempty"`
}

// RW classifies the command: Retrieve is a read, everything else a write.
func (b *Bag) RW() ir.RW {
	if b.Command == Retrieve {
		return ir.Read
	}
	return ir.Write
}

// CreateCount is the number of records a CREATE command inserts.
// It is derived from Data and is 0 for any other command.
func (b *Bag) CreateCount() int {
	if b.Command != Create {
		return 0
	}
	return len(b.Data)
}

// Clone returns a deep copy of the Bag's slices and records so callers
// cannot alias builder state. Slice operands of constraints (the lists
// given to In and NotIn) get a fresh backing array; their elements are
// copied as is.
func (b *Bag) Clone() Bag {
	out := Bag{
		Command:     b.Command,
		Target:      Target{Name: b.Target.Name, IDs: slices.Clone(b.Target.IDs)},
		Projections: slices.Clone(b.Projections),
		Where:       cloneWhere(b.Where),
		Limit:       b.Limit,
		GroupBy:     slices.Clone(b.GroupBy),
		OrderBy:     slices.Clone(b.OrderBy),
	}
	if b.Data != nil {
		out.Data = make([]ir.Record, len(b.Data))
		for i, rec := range b.Data {
			out.Data[i] = rec.Clone()
		}
	}
	return out
}

func cloneWhere(where []Constraint) []Constraint {
	if where == nil {
		return nil
	}
	out := make([]Constraint, len(where))
	for i, c := range where {
		c.Value = cloneOperand(c.Value)
		out[i] = c
	}
	return out
}

func cloneOperand(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return slices.Clone(x)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(cp, rv)
	return cp.Interface()
}
