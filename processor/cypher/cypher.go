// Package cypher compiles Command Bags to Cypher for Neo4j.
//
//	MATCH (n[:label]) [WHERE ..] RETURN n|n.f AS f, .. [ORDER BY ..] [LIMIT k]
//	CREATE (n:label {..}) RETURN n
//	UNWIND [{..}, ..] AS props CREATE (n:label) SET n = props RETURN n
//	MATCH .. [WITH n LIMIT k] SET n.f = v, .. RETURN n
//	MATCH .. [WITH n LIMIT k] DETACH DELETE n
//
// Record ids that are plain integers match on id(n); any other id form
// matches on elementId(n).
package cypher

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/processor"
)

// Dialect is the name this processor is registered under.
const Dialect = "cypher"

// node is the pattern variable every statement binds.
const node = "n"

var literals = processor.LiteralStyle{
	Dialect: Dialect,
	Null:    "null",
	True:    "true",
	False:   "false",
	Quote:   func(s string) string { return processor.QuoteBackslash(s, '\'') },
	Open:    "[",
	Close:   "]",
	Sep:     ", ",
	Map:     mapLiteral,
}

func mapLiteral(keys, values []string) string {
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = ident(k) + ": " + values[i]
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// Processor compiles Bags to Cypher.
type Processor struct{}

// New creates a Cypher processor.
func New() *Processor {
	return &Processor{}
}

func (p *Processor) Dialect() string  { return Dialect }
func (p *Processor) Language() string { return ir.LanguageCypher }

// Compile renders b as one Cypher statement.
func (p *Processor) Compile(b *bag.Bag) (ir.Command, error) {
	if err := processor.Prepare(Dialect, b); err != nil {
		return ir.Command{}, err
	}
	if len(b.GroupBy) > 0 {
		return ir.Command{}, processor.Unsupported(Dialect, "group by has no node-returning form")
	}

	var script string
	var err error
	switch b.Command {
	case bag.Retrieve:
		script, err = compileMatch(b)
	case bag.Create:
		script, err = compileCreate(b)
	case bag.Update:
		script, err = compileSet(b)
	case bag.Delete:
		script, err = compileDelete(b)
	}
	if err != nil {
		return ir.Command{}, err
	}
	return processor.Command(p, b, script), nil
}

func compileMatch(b *bag.Bag) (string, error) {
	parts, err := matchClause(b)
	if err != nil {
		return "", err
	}

	parts = append(parts, "RETURN", returnList(b.Projections))
	if len(b.OrderBy) > 0 {
		orders := make([]string, len(b.OrderBy))
		for i, o := range b.OrderBy {
			orders[i] = property(o.Field) + " " + string(o.Direction)
		}
		parts = append(parts, "ORDER BY", strings.Join(orders, ", "))
	}
	if b.Limit > 0 {
		parts = append(parts, "LIMIT", strconv.Itoa(b.Limit))
	}
	return strings.Join(parts, " "), nil
}

func compileSet(b *bag.Bag) (string, error) {
	parts, err := matchClause(b)
	if err != nil {
		return "", err
	}
	parts = withLimit(parts, b.Limit)

	data := b.Data[0]
	sets := make([]string, 0, len(data))
	for _, k := range ir.SortedKeys(data) {
		lit, err := propertyValue(data[k])
		if err != nil {
			return "", err
		}
		sets = append(sets, property(k)+" = "+lit)
	}
	parts = append(parts, "SET", strings.Join(sets, ", "), "RETURN", node)
	return strings.Join(parts, " "), nil
}

func compileDelete(b *bag.Bag) (string, error) {
	parts, err := matchClause(b)
	if err != nil {
		return "", err
	}
	parts = withLimit(parts, b.Limit)
	parts = append(parts, "DETACH DELETE", node)
	return strings.Join(parts, " "), nil
}

func compileCreate(b *bag.Bag) (string, error) {
	label := ident(b.Target.Name)

	if len(b.Data) == 1 {
		props, err := propertyMap(b.Data[0])
		if err != nil {
			return "", err
		}
		return "CREATE (" + node + ":" + label + " " + props + ") RETURN " + node, nil
	}

	rows := make([]string, len(b.Data))
	for i, rec := range b.Data {
		props, err := propertyMap(rec)
		if err != nil {
			return "", err
		}
		rows[i] = props
	}
	return "UNWIND [" + strings.Join(rows, ", ") + "] AS props CREATE (" + node + ":" + label + ") SET " + node + " = props RETURN " + node, nil
}

// matchClause renders MATCH and the optional WHERE shared by reads and
// writes.
func matchClause(b *bag.Bag) ([]string, error) {
	where, err := processor.FoldWhere(b.Where, "AND", "OR", compileConstraint)
	if err != nil {
		return nil, err
	}

	if !b.Target.IsID() {
		parts := []string{"MATCH (" + node + ":" + ident(b.Target.Name) + ")"}
		if where != "" {
			parts = append(parts, "WHERE", where)
		}
		return parts, nil
	}

	pred := idPredicate(b.Target.IDs)
	if where != "" {
		pred += " AND " + processor.Group(where, b.Where)
	}
	return []string{"MATCH (" + node + ")", "WHERE", pred}, nil
}

func withLimit(parts []string, limit int) []string {
	if limit > 0 {
		return append(parts, "WITH", node, "LIMIT", strconv.Itoa(limit))
	}
	return parts
}

func idPredicate(ids []ir.ID) string {
	fn := "id"
	for _, id := range ids {
		if !processor.IsIntegerID(id) {
			fn = "elementId"
			break
		}
	}

	lits := make([]string, len(ids))
	for i, id := range ids {
		if fn == "id" {
			lits[i] = string(id)
		} else {
			lits[i] = literals.Quote(string(id))
		}
	}

	target := fn + "(" + node + ")"
	if len(lits) == 1 {
		return target + " = " + lits[0]
	}
	return target + " IN [" + strings.Join(lits, ", ") + "]"
}

func compileConstraint(c bag.Constraint) (string, error) {
	field := property(c.Field)

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
		return "NOT " + field + " IN " + list, nil
	case bag.Contains, bag.Regex:
		s, err := processor.StringOperand(Dialect, c)
		if err != nil {
			return "", err
		}
		op := "CONTAINS"
		if c.Comparator == bag.Regex {
			op = "=~"
		}
		return field + " " + op + " " + literals.Quote(s), nil
	}

	op, ok := operators[c.Comparator]
	if !ok {
		return "", processor.Unsupported(Dialect, "comparator %s", c.Comparator)
	}
	lit, err := literals.RenderScalar(c.Value)
	if err != nil {
		return "", err
	}
	return field + " " + op + " " + lit, nil
}

var operators = map[bag.Comparator]string{
	bag.Equal:              "=",
	bag.NotEqual:           "<>",
	bag.GreaterThan:        ">",
	bag.GreaterThanOrEqual: ">=",
	bag.LessThan:           "<",
	bag.LessThanOrEqual:    "<=",
}

// propertyMap renders a record as a property map literal. Nil fields are
// omitted since Neo4j never stores null properties.
func propertyMap(rec ir.Record) (string, error) {
	keys := make([]string, 0, len(rec))
	values := make([]string, 0, len(rec))
	for _, k := range ir.SortedKeys(rec) {
		if rec[k] == nil {
			continue
		}
		lit, err := propertyValue(rec[k])
		if err != nil {
			return "", err
		}
		keys = append(keys, k)
		values = append(values, lit)
	}
	return mapLiteral(keys, values), nil
}

// propertyValue renders a value that will be stored as a node property.
// Neo4j properties are scalars or homogeneous lists of scalars, so maps
// are rejected.
func propertyValue(v any) (string, error) {
	if processor.IsMap(v) {
		return "", processor.UnsupportedValue(Dialect, "map values cannot be stored as properties")
	}
	if bag.IsList(v) {
		rv := reflect.ValueOf(v)
		for i := 0; i < rv.Len(); i++ {
			if item := rv.Index(i).Interface(); processor.IsMap(item) || bag.IsList(item) {
				return "", processor.UnsupportedValue(Dialect, "list properties must hold scalars, got %T", item)
			}
		}
	}
	return literals.Render(v)
}

func returnList(fields []string) string {
	if len(fields) == 0 {
		return node
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = property(f) + " AS " + ident(f)
	}
	return strings.Join(out, ", ")
}

func property(field string) string {
	return node + "." + ident(field)
}

func ident(name string) string {
	if processor.IsSimpleIdent(name) {
		return name
	}
	return processor.QuoteDoubled(name, '`')
}
