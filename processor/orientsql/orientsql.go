// Package orientsql compiles Command Bags to OrientDB SQL.
//
// Clause order follows the OrientDB grammar:
//
//	SELECT [fields] FROM <class|#c:p|[#c:p, ..]> [WHERE] [GROUP BY] [ORDER BY] [LIMIT]
//	INSERT INTO <class> CONTENT <json>
//	UPDATE <class|#c:p|V> SET f = v, .. RETURN AFTER [WHERE] [LIMIT]
//	DELETE VERTEX <class|#c:p|V> [WHERE] [LIMIT]
//
// Several record ids on UPDATE and DELETE address the base vertex class V
// filtered by @rid.
package orientsql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/processor"
)

// Dialect is the name this processor is registered under.
const Dialect = "orientsql"

var (
	ridPattern   = regexp.MustCompile(`^#-?[0-9]+:-?[0-9]+$`)
	identPattern = regexp.MustCompile(`^@?[A-Za-z_][A-Za-z0-9_]*$`)
)

var literals = processor.LiteralStyle{
	Dialect: Dialect,
	Null:    "null",
	True:    "true",
	False:   "false",
	Quote:   func(s string) string { return processor.QuoteBackslash(s, '\'') },
	Open:    "[",
	Close:   "]",
	Sep:     ", ",
	Map: func(keys, values []string) string {
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = processor.QuoteBackslash(k, '"') + ": " + values[i]
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	},
}

// Processor compiles Bags to OrientDB SQL.
type Processor struct{}

// New creates an OrientDB SQL processor.
func New() *Processor {
	return &Processor{}
}

func (p *Processor) Dialect() string  { return Dialect }
func (p *Processor) Language() string { return ir.LanguageOrientSQL }

// Compile renders b as one OrientDB SQL statement.
func (p *Processor) Compile(b *bag.Bag) (ir.Command, error) {
	if err := processor.Prepare(Dialect, b); err != nil {
		return ir.Command{}, err
	}

	var script string
	var err error
	switch b.Command {
	case bag.Retrieve:
		script, err = compileSelect(b)
	case bag.Create:
		script, err = compileInsert(b)
	case bag.Update:
		script, err = compileUpdate(b)
	case bag.Delete:
		script, err = compileDelete(b)
	}
	if err != nil {
		return ir.Command{}, err
	}
	return processor.Command(p, b, script), nil
}

func compileSelect(b *bag.Bag) (string, error) {
	parts := []string{"SELECT"}
	if len(b.Projections) > 0 {
		parts = append(parts, identList(b.Projections))
	}

	from, err := selectTarget(b.Target)
	if err != nil {
		return "", err
	}
	parts = append(parts, "FROM", from)

	where, err := compileWhere(b.Where)
	if err != nil {
		return "", err
	}
	if where != "" {
		parts = append(parts, "WHERE", where)
	}
	if len(b.GroupBy) > 0 {
		parts = append(parts, "GROUP BY", identList(b.GroupBy))
	}
	if len(b.OrderBy) > 0 {
		parts = append(parts, "ORDER BY", orderList(b.OrderBy))
	}
	if b.Limit > 0 {
		parts = append(parts, "LIMIT", strconv.Itoa(b.Limit))
	}
	return strings.Join(parts, " "), nil
}

func compileInsert(b *bag.Bag) (string, error) {
	var content []byte
	var err error
	if len(b.Data) == 1 {
		content, err = ir.MarshalCanonical(b.Data[0])
	} else {
		content, err = ir.MarshalCanonical(b.Data)
	}
	if err != nil {
		return "", processor.Tag(Dialect, err)
	}
	return "INSERT INTO " + ident(b.Target.Name) + " CONTENT " + string(content), nil
}

func compileUpdate(b *bag.Bag) (string, error) {
	target, where, err := writeTarget(b)
	if err != nil {
		return "", err
	}

	data := b.Data[0]
	sets := make([]string, 0, len(data))
	for _, k := range ir.SortedKeys(data) {
		lit, err := literals.Render(data[k])
		if err != nil {
			return "", err
		}
		sets = append(sets, ident(k)+" = "+lit)
	}

	parts := []string{"UPDATE", target, "SET", strings.Join(sets, ", "), "RETURN AFTER"}
	if where != "" {
		parts = append(parts, "WHERE", where)
	}
	if b.Limit > 0 {
		parts = append(parts, "LIMIT", strconv.Itoa(b.Limit))
	}
	return strings.Join(parts, " "), nil
}

func compileDelete(b *bag.Bag) (string, error) {
	target, where, err := writeTarget(b)
	if err != nil {
		return "", err
	}

	parts := []string{"DELETE VERTEX", target}
	if where != "" {
		parts = append(parts, "WHERE", where)
	}
	if b.Limit > 0 {
		parts = append(parts, "LIMIT", strconv.Itoa(b.Limit))
	}
	return strings.Join(parts, " "), nil
}

// selectTarget renders a SELECT target: a class, one rid or a rid list.
func selectTarget(t bag.Target) (string, error) {
	if !t.IsID() {
		return ident(t.Name), nil
	}
	rids, err := ridList(t.IDs)
	if err != nil {
		return "", err
	}
	if len(rids) == 1 {
		return rids[0], nil
	}
	return "[" + strings.Join(rids, ", ") + "]", nil
}

// writeTarget renders the target and where clause of UPDATE and DELETE.
func writeTarget(b *bag.Bag) (string, string, error) {
	where, err := compileWhere(b.Where)
	if err != nil {
		return "", "", err
	}
	if !b.Target.IsID() {
		return ident(b.Target.Name), where, nil
	}

	rids, err := ridList(b.Target.IDs)
	if err != nil {
		return "", "", err
	}
	if len(rids) == 1 {
		return rids[0], where, nil
	}

	byRID := "@rid IN [" + strings.Join(rids, ", ") + "]"
	if where != "" {
		byRID += " AND " + processor.Group(where, b.Where)
	}
	return "V", byRID, nil
}

func ridList(ids []ir.ID) ([]string, error) {
	out := make([]string, len(ids))
	for i, id := range ids {
		if !ridPattern.MatchString(string(id)) {
			return nil, processor.InvalidID(Dialect, id, "a record id of the form #cluster:position")
		}
		out[i] = string(id)
	}
	return out, nil
}

func compileWhere(where []bag.Constraint) (string, error) {
	return processor.FoldWhere(where, "AND", "OR", compileConstraint)
}

func compileConstraint(c bag.Constraint) (string, error) {
	field := ident(c.Field)

	switch c.Comparator {
	case bag.Equal, bag.NotEqual:
		if c.Value == nil {
			if c.Comparator == bag.Equal {
				return field + " IS NULL", nil
			}
			return field + " IS NOT NULL", nil
		}
	case bag.In, bag.NotIn:
		list, err := literals.RenderList(c.Value)
		if err != nil {
			return "", err
		}
		if c.Comparator == bag.In {
			return field + " IN " + list, nil
		}
		return field + " NOT IN " + list, nil
	case bag.Contains, bag.Like, bag.Regex:
		s, err := processor.StringOperand(Dialect, c)
		if err != nil {
			return "", err
		}
		return field + " " + textOperators[c.Comparator] + " " + literals.Quote(s), nil
	}

	op, ok := scalarOperators[c.Comparator]
	if !ok {
		return "", processor.Unsupported(Dialect, "comparator %s", c.Comparator)
	}
	lit, err := literals.RenderScalar(c.Value)
	if err != nil {
		return "", err
	}
	return field + " " + op + " " + lit, nil
}

var scalarOperators = map[bag.Comparator]string{
	bag.Equal:              "=",
	bag.NotEqual:           "<>",
	bag.GreaterThan:        ">",
	bag.GreaterThanOrEqual: ">=",
	bag.LessThan:           "<",
	bag.LessThanOrEqual:    "<=",
}

var textOperators = map[bag.Comparator]string{
	bag.Contains: "CONTAINSTEXT",
	bag.Like:     "LIKE",
	bag.Regex:    "MATCHES",
}

func ident(name string) string {
	if identPattern.MatchString(name) {
		return name
	}
	return processor.QuoteBackslash(name, '`')
}

func identList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return strings.Join(out, ", ")
}

func orderList(orders []bag.Order) string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = ident(o.Field) + " " + string(o.Direction)
	}
	return strings.Join(out, ", ")
}
