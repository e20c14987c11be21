// Package sqlite compiles Command Bags to SQL for the embedded SQLite
// backend.
//
// Every vertex is one row of a single table:
//
//	vertices(rid INTEGER PRIMARY KEY, label TEXT, version INTEGER, data JSON)
//
// Fields live in the data JSON document and are addressed with
// json_extract. Every SELECT ends with "rid ASC" so results are ordered
// deterministically even when the caller orders by a non-unique field.
// Writes use RETURNING so the driver reads back the affected rows.
package sqlite

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/processor"
)

// Dialect is the name this processor is registered under.
const Dialect = "sqlite"

// Table and Columns describe the storage layout the driver creates.
const (
	Table   = "vertices"
	Columns = "rid, label, version, data"
)

const returning = " RETURNING " + Columns

var literals = processor.LiteralStyle{
	Dialect: Dialect,
	Null:    "NULL",
	True:    "TRUE",
	False:   "FALSE",
	Quote:   quote,
	Open:    "(",
	Close:   ")",
	Sep:     ", ",
}

// quote writes a SQL string literal. SQLite's tokenizer stops at a NUL
// byte, so strings containing one are written as a hex blob cast to text.
func quote(s string) string {
	if strings.IndexByte(s, 0) >= 0 {
		return "CAST(X'" + hex.EncodeToString([]byte(s)) + "' AS TEXT)"
	}
	return processor.QuoteDoubled(s, '\'')
}

// Processor compiles Bags to SQLite SQL.
type Processor struct{}

// New creates a SQLite processor.
func New() *Processor {
	return &Processor{}
}

func (p *Processor) Dialect() string  { return Dialect }
func (p *Processor) Language() string { return ir.LanguageSQLite }

// Compile renders b as one SQL statement.
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
	cond, err := filter(b)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectColumns(b.Projections))
	sb.WriteString(" FROM " + Table + " WHERE " + cond)

	if len(b.GroupBy) > 0 {
		groups := make([]string, len(b.GroupBy))
		for i, g := range b.GroupBy {
			groups[i] = field(g)
		}
		sb.WriteString(" GROUP BY " + strings.Join(groups, ", "))
	}

	orders := make([]string, 0, len(b.OrderBy)+1)
	for _, o := range b.OrderBy {
		orders = append(orders, field(o.Field)+" "+string(o.Direction))
	}
	orders = append(orders, "rid ASC")
	sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))

	if b.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(b.Limit))
	}
	return sb.String(), nil
}

func compileInsert(b *bag.Bag) (string, error) {
	label := quote(b.Target.Name)
	rows := make([]string, len(b.Data))
	for i, rec := range b.Data {
		doc, err := jsonLiteral(rec)
		if err != nil {
			return "", err
		}
		rows[i] = "(" + label + ", " + doc + ")"
	}
	return "INSERT INTO " + Table + " (label, data) VALUES " + strings.Join(rows, ", ") + returning, nil
}

func compileUpdate(b *bag.Bag) (string, error) {
	cond, err := writeFilter(b)
	if err != nil {
		return "", err
	}

	data := b.Data[0]
	args := []string{"data"}
	for _, k := range ir.SortedKeys(data) {
		doc, err := jsonLiteral(data[k])
		if err != nil {
			return "", err
		}
		args = append(args, quote(path(k)), doc)
	}

	set := "data = json_set(" + strings.Join(args, ", ") + "), version = version + 1"
	return "UPDATE " + Table + " SET " + set + " WHERE " + cond + returning, nil
}

func compileDelete(b *bag.Bag) (string, error) {
	cond, err := writeFilter(b)
	if err != nil {
		return "", err
	}
	return "DELETE FROM " + Table + " WHERE " + cond + returning, nil
}

// filter renders the WHERE condition: the target predicate, then the
// folded where constraints grouped as one operand.
func filter(b *bag.Bag) (string, error) {
	target, err := targetPredicate(b.Target)
	if err != nil {
		return "", err
	}
	where, err := processor.FoldWhere(b.Where, "AND", "OR", compileConstraint)
	if err != nil {
		return "", err
	}
	if where == "" {
		return target, nil
	}
	return target + " AND " + processor.Group(where, b.Where), nil
}

// writeFilter is filter for UPDATE and DELETE. SQLite has no LIMIT on
// those statements by default, so a limit selects the affected rids in a
// subquery.
func writeFilter(b *bag.Bag) (string, error) {
	cond, err := filter(b)
	if err != nil {
		return "", err
	}
	if b.Limit == 0 {
		return cond, nil
	}
	return "rid IN (SELECT rid FROM " + Table + " WHERE " + cond + " ORDER BY rid ASC LIMIT " + strconv.Itoa(b.Limit) + ")", nil
}

func targetPredicate(t bag.Target) (string, error) {
	if !t.IsID() {
		return "label = " + quote(t.Name), nil
	}
	rids := make([]string, len(t.IDs))
	for i, id := range t.IDs {
		if !processor.IsIntegerID(id) {
			return "", processor.InvalidID(Dialect, id, "an integer rowid")
		}
		rids[i] = string(id)
	}
	if len(rids) == 1 {
		return "rid = " + rids[0], nil
	}
	return "rid IN (" + strings.Join(rids, ", ") + ")", nil
}

func compileConstraint(c bag.Constraint) (string, error) {
	f := field(c.Field)

	switch c.Comparator {
	case bag.Equal, bag.NotEqual:
		if c.Value == nil {
			if c.Comparator == bag.Equal {
				return f + " IS NULL", nil
			}
			return f + " IS NOT NULL", nil
		}
	case bag.In, bag.NotIn:
		list, err := literals.RenderList(c.Value)
		if err != nil {
			return "", err
		}
		if c.Comparator == bag.In {
			return f + " IN " + list, nil
		}
		return f + " NOT IN " + list, nil
	case bag.Contains:
		s, err := processor.StringOperand(Dialect, c)
		if err != nil {
			return "", err
		}
		return "instr(" + f + ", " + quote(s) + ") > 0", nil
	case bag.Like:
		s, err := processor.StringOperand(Dialect, c)
		if err != nil {
			return "", err
		}
		return f + " LIKE " + quote(s), nil
	}

	op, ok := operators[c.Comparator]
	if !ok {
		return "", processor.Unsupported(Dialect, "comparator %s", c.Comparator)
	}
	lit, err := literals.RenderScalar(c.Value)
	if err != nil {
		return "", err
	}
	return f + " " + op + " " + lit, nil
}

var operators = map[bag.Comparator]string{
	bag.Equal:              "=",
	bag.NotEqual:           "<>",
	bag.GreaterThan:        ">",
	bag.GreaterThanOrEqual: ">=",
	bag.LessThan:           "<",
	bag.LessThanOrEqual:    "<=",
}

func selectColumns(projections []string) string {
	if len(projections) == 0 {
		return Columns
	}
	args := make([]string, 0, 2*len(projections))
	for _, p := range projections {
		args = append(args, quote(p), field(p))
	}
	return "rid, label, version, json_object(" + strings.Join(args, ", ") + ") AS data"
}

// jsonLiteral renders v as canonical JSON wrapped in json() so SQLite
// stores it as a JSON value rather than text.
func jsonLiteral(v any) (string, error) {
	doc, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", processor.Tag(Dialect, err)
	}
	return "json(" + quote(string(doc)) + ")", nil
}

func field(name string) string {
	return "json_extract(data, " + quote(path(name)) + ")"
}

// path renders a JSON path selecting the top-level key name.
func path(name string) string {
	if processor.IsSimpleIdent(name) {
		return "$." + name
	}
	return `$."` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}
