package query

import (
	"context"
	"fmt"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/normalize"
)

// Executor compiles and executes a finished Bag.
// connection.Connection is the production implementation.
type Executor interface {
	ExecuteBag(ctx context.Context, b *bag.Bag) (*normalize.Response, error)
	RunBag(ctx context.Context, b *bag.Bag) error
}

// Builder accumulates one Bag. The zero value is not usable; call New.
type Builder struct {
	exec Executor
	bag  bag.Bag
	into string
	err  error
	done bool
}

// New creates a Builder that executes through exec. A nil exec is allowed
// for builders that are only inspected with GetBag.
func New(exec Executor) *Builder {
	return &Builder{exec: exec}
}

// Err returns the first error recorded by a builder call, or nil.
func (b *Builder) Err() error {
	return b.err
}

// GetBag returns a copy of the accumulated Bag without executing it.
func (b *Builder) GetBag() (bag.Bag, error) {
	if b.err != nil {
		return bag.Bag{}, b.err
	}
	return b.bag.Clone(), nil
}

// Select begins a RETRIEVE command. fields become the projections; none
// means all fields.
func (b *Builder) Select(fields ...string) *Builder {
	if !b.begin("Select", bag.Retrieve) {
		return b
	}
	if names, ok := b.names("Select", fields); ok {
		b.bag.Projections = names
	}
	return b
}

// From sets the target to a collection or label name.
func (b *Builder) From(name string) *Builder {
	if !b.ok("From") {
		return b
	}
	switch b.bag.Command {
	case "":
		return b.usage("From", "call Select, Update or Drop first")
	case bag.Create:
		return b.usage("From", "create targets are set with Into")
	}
	if !b.targetFree("From") {
		return b
	}
	name = bag.NormalizeName(name)
	if name == "" {
		return b.invalid("From", "target name is empty")
	}
	b.bag.Target.Name = name
	return b
}

// Record sets the target to one specific record.
func (b *Builder) Record(id ir.ID) *Builder {
	return b.records("Record", []ir.ID{id})
}

// Records sets the target to several specific records.
func (b *Builder) Records(ids ...ir.ID) *Builder {
	return b.records("Records", ids)
}

func (b *Builder) records(op string, ids []ir.ID) *Builder {
	if !b.ok(op) {
		return b
	}
	switch b.bag.Command {
	case "":
		return b.usage(op, "call Select, Update or Drop first")
	case bag.Create:
		return b.usage(op, "create cannot target existing records")
	}
	if !b.targetFree(op) {
		return b
	}
	return b.setIDs(op, ids)
}

func (b *Builder) setIDs(op string, ids []ir.ID) *Builder {
	if len(ids) == 0 {
		return b.invalid(op, "no record ids given")
	}
	for i, id := range ids {
		if id == "" {
			return b.invalid(op, "record id %d is empty", i)
		}
	}
	b.bag.Target.IDs = append([]ir.ID(nil), ids...)
	return b
}

// Only replaces the projections of a RETRIEVE command whose target is
// already set.
func (b *Builder) Only(fields ...string) *Builder {
	if !b.ok("Only") {
		return b
	}
	if b.bag.Command != bag.Retrieve {
		return b.usage("Only", "projections need a Select command")
	}
	if b.bag.Target.IsZero() {
		return b.usage("Only", "call From or Record first")
	}
	if names, ok := b.names("Only", fields); ok {
		b.bag.Projections = names
	}
	return b
}

// Where appends a constraint joined with AND to the previous one.
//
// value is compared for equality unless it is a bag.Condition:
//
//	Where("name", "marko")
//	Where("age", bag.Gte(30))
//	Where("name", bag.InValues("josh", "peter"))
func (b *Builder) Where(field string, value any) *Builder {
	return b.where("Where", field, value, bag.And, false)
}

// AndWhere appends a constraint joined with AND. It requires a prior Where.
func (b *Builder) AndWhere(field string, value any) *Builder {
	return b.where("AndWhere", field, value, bag.And, true)
}

// OrWhere appends a constraint joined with OR. It requires a prior Where.
func (b *Builder) OrWhere(field string, value any) *Builder {
	return b.where("OrWhere", field, value, bag.Or, true)
}

func (b *Builder) where(op, field string, value any, conj bag.Conjunction, needsPrior bool) *Builder {
	if !b.ok(op) {
		return b
	}
	switch b.bag.Command {
	case "":
		return b.usage(op, "call Select, Update or Drop first")
	case bag.Create:
		return b.usage(op, "create does not accept constraints")
	case bag.Retrieve:
		if b.bag.Target.IsZero() {
			return b.usage(op, "call From or Record first")
		}
	}
	if needsPrior && len(b.bag.Where) == 0 {
		return b.usage(op, "needs a prior Where")
	}

	field = bag.NormalizeName(field)
	if field == "" {
		return b.invalid(op, "field name is empty")
	}
	cond := bag.ConditionOf(value)
	if !cond.Comparator.Valid() {
		return b.invalid(op, "unknown comparator %q", cond.Comparator)
	}

	if (cond.Comparator == bag.In || cond.Comparator == bag.NotIn) && !bag.IsList(cond.Value) {
		return b.invalid(op, "%s needs a list operand, got %T", cond.Comparator, cond.Value)
	}

	b.bag.Where = append(b.bag.Where, bag.Constraint{
		Field:       field,
		Comparator:  cond.Comparator,
		Value:       cond.Value,
		Conjunction: conj,
	})
	return b
}

// Limit caps the number of records returned or affected. n must be
// positive.
func (b *Builder) Limit(n int) *Builder {
	if !b.ok("Limit") {
		return b
	}
	switch b.bag.Command {
	case "":
		return b.usage("Limit", "call Select, Update or Drop first")
	case bag.Create:
		return b.usage("Limit", "create does not accept a limit")
	}
	if n <= 0 {
		return b.invalid("Limit", "limit must be positive, got %d", n)
	}
	b.bag.Limit = n
	return b
}

// OrderBy appends a sort key to a RETRIEVE command.
func (b *Builder) OrderBy(field string, dir bag.Direction) *Builder {
	if !b.retrieveOnly("OrderBy") {
		return b
	}
	if dir != bag.Asc && dir != bag.Desc {
		return b.invalid("OrderBy", "unknown direction %q", dir)
	}
	field = bag.NormalizeName(field)
	if field == "" {
		return b.invalid("OrderBy", "field name is empty")
	}
	b.bag.OrderBy = append(b.bag.OrderBy, bag.Order{Field: field, Direction: dir})
	return b
}

// GroupBy appends grouping fields to a RETRIEVE command.
func (b *Builder) GroupBy(fields ...string) *Builder {
	if !b.retrieveOnly("GroupBy") {
		return b
	}
	if len(fields) == 0 {
		return b.invalid("GroupBy", "no fields given")
	}
	if names, ok := b.names("GroupBy", fields); ok {
		b.bag.GroupBy = append(b.bag.GroupBy, names...)
	}
	return b
}

// Into names the collection or label a following Create inserts into.
func (b *Builder) Into(name string) *Builder {
	if !b.ok("Into") {
		return b
	}
	if b.bag.Command != "" || b.into != "" {
		return b.usage("Into", "must be the first call, before Create")
	}
	name = bag.NormalizeName(name)
	if name == "" {
		return b.invalid("Into", "target name is empty")
	}
	b.into = name
	return b
}

// Create begins a CREATE command inserting one record per argument.
func (b *Builder) Create(records ...ir.Record) *Builder {
	if !b.ok("Create") {
		return b
	}
	if b.into == "" {
		return b.usage("Create", "call Into first")
	}
	if !b.begin("Create", bag.Create) {
		return b
	}
	if len(records) == 0 {
		return b.invalid("Create", "no records given")
	}
	data := make([]ir.Record, len(records))
	for i, rec := range records {
		if rec == nil {
			return b.invalid("Create", "record %d is nil", i)
		}
		data[i] = normalizeKeys(rec)
	}
	b.bag.Target.Name = b.into
	b.bag.Data = data
	return b
}

// Insert is an alias of Create.
func (b *Builder) Insert(records ...ir.Record) *Builder {
	return b.Create(records...)
}

// Update begins an UPDATE command setting every field of data.
func (b *Builder) Update(data ir.Record) *Builder {
	if !b.begin("Update", bag.Update) {
		return b
	}
	if len(data) == 0 {
		return b.invalid("Update", "no fields to set")
	}
	b.bag.Data = []ir.Record{normalizeKeys(data)}
	return b
}

// Set adds one field to an UPDATE command, beginning it if needed.
func (b *Builder) Set(field string, value any) *Builder {
	if !b.ok("Set") {
		return b
	}
	if b.bag.Command == "" && !b.begin("Set", bag.Update) {
		return b
	}
	if b.bag.Command != bag.Update {
		return b.usage("Set", "a %s command has already begun", b.bag.Command)
	}
	field = bag.NormalizeName(field)
	if field == "" {
		return b.invalid("Set", "field name is empty")
	}
	if len(b.bag.Data) == 0 {
		b.bag.Data = []ir.Record{{}}
	}
	b.bag.Data[0][field] = value
	return b
}

// Drop begins a DELETE command. With ids it targets those records;
// without, follow it with From and Where.
func (b *Builder) Drop(ids ...ir.ID) *Builder {
	if !b.begin("Drop", bag.Delete) {
		return b
	}
	if len(ids) > 0 {
		return b.setIDs("Drop", ids)
	}
	return b
}

// ok reports whether the builder accepts another call, recording a usage
// error if it was already finalized.
func (b *Builder) ok(op string) bool {
	if b.err != nil {
		return false
	}
	if b.done {
		b.usage(op, "builder already executed; start a new query")
		return false
	}
	return true
}

func (b *Builder) begin(op string, cmd bag.CommandType) bool {
	if !b.ok(op) {
		return false
	}
	if b.bag.Command != "" {
		b.usage(op, "a %s command has already begun", b.bag.Command)
		return false
	}
	if b.into != "" && cmd != bag.Create {
		b.usage(op, "Into is only valid before Create")
		return false
	}
	b.bag.Command = cmd
	return true
}

func (b *Builder) targetFree(op string) bool {
	switch {
	case b.bag.Target.Name != "":
		b.usage(op, "target is already set to %q", b.bag.Target.Name)
		return false
	case b.bag.Target.IsID():
		b.usage(op, "target is already set to record ids")
		return false
	}
	return true
}

func (b *Builder) retrieveOnly(op string) bool {
	if !b.ok(op) {
		return false
	}
	if b.bag.Command != bag.Retrieve {
		b.usage(op, "only valid after Select")
		return false
	}
	return true
}

func (b *Builder) names(op string, fields []string) ([]string, bool) {
	if len(fields) == 0 {
		return nil, true
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = bag.NormalizeName(f)
		if out[i] == "" {
			b.invalid(op, "field name %d is empty", i)
			return nil, false
		}
	}
	return out, true
}

func normalizeKeys(rec ir.Record) ir.Record {
	out := make(ir.Record, len(rec))
	for k, v := range rec {
		out[bag.NormalizeName(k)] = v
	}
	return out
}

func (b *Builder) fail(code ir.ErrorCode, op, format string, args ...any) *Builder {
	if b.err == nil {
		b.err = &ir.Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
	}
	return b
}

func (b *Builder) usage(op, format string, args ...any) *Builder {
	return b.fail(ir.CodeBuilderUsage, op, format, args...)
}

func (b *Builder) invalid(op, format string, args ...any) *Builder {
	return b.fail(ir.CodeInvalidArgument, op, format, args...)
}
