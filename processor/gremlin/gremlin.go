// Package gremlin compiles Command Bags to Gremlin traversals in the Groovy
// script language accepted by Gremlin Server.
//
// Every traversal starts from g.V(), narrows by label or ids, applies the
// where tree as has() steps, then orders and limits. Reads end with
// elementMap() so the driver receives id and label with every vertex.
//
// Gremlin has no infix boolean operators. Where constraints are folded
// into a tree (see processor.WhereTree) and rendered as chained has()
// steps for AND and or(__.., __..) steps for OR.
package gremlin

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/processor"
)

// Dialect is the name this processor is registered under.
const Dialect = "gremlin"

var literals = processor.LiteralStyle{
	Dialect: Dialect,
	Null:    "null",
	True:    "true",
	False:   "false",
	Quote:   quote,
	Int: func(s string, v int64) string {
		if v > math.MaxInt32 || v < math.MinInt32 {
			return s + "L"
		}
		return s
	},
	Float: func(s string) string { return s + "d" },
	Open:  "[",
	Close: "]",
	Sep:   ", ",
	Map: func(keys, values []string) string {
		if len(keys) == 0 {
			return "[:]"
		}
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = quote(k) + ": " + values[i]
		}
		return "[" + strings.Join(pairs, ", ") + "]"
	},
}

func quote(s string) string { return processor.QuoteBackslash(s, '\'') }

// Processor compiles Bags to Gremlin-Groovy.
type Processor struct{}

// New creates a Gremlin processor.
func New() *Processor {
	return &Processor{}
}

func (p *Processor) Dialect() string  { return Dialect }
func (p *Processor) Language() string { return ir.LanguageGremlin }

// Compile renders b as one traversal.
func (p *Processor) Compile(b *bag.Bag) (ir.Command, error) {
	if err := processor.Prepare(Dialect, b); err != nil {
		return ir.Command{}, err
	}
	if len(b.GroupBy) > 0 {
		return ir.Command{}, processor.Unsupported(Dialect, "group by does not return vertices")
	}

	var script string
	var err error
	if b.Command == bag.Create {
		script, err = compileCreate(b)
	} else {
		script, err = compileTraversal(b)
	}
	if err != nil {
		return ir.Command{}, err
	}
	return processor.Command(p, b, script), nil
}

// compileTraversal renders RETRIEVE, UPDATE and DELETE, which share the
// g.V() filter prefix.
func compileTraversal(b *bag.Bag) (string, error) {
	var sb strings.Builder
	sb.WriteString(start(b.Target))

	steps, err := whereSteps(processor.WhereTree(b.Where))
	if err != nil {
		return "", err
	}
	for _, s := range steps {
		sb.WriteString("." + s)
	}

	if len(b.OrderBy) > 0 {
		sb.WriteString(".order()")
		for _, o := range b.OrderBy {
			sb.WriteString(".by(" + quote(o.Field) + ", " + strings.ToLower(string(o.Direction)) + ")")
		}
	}
	if b.Limit > 0 {
		sb.WriteString(".limit(" + strconv.Itoa(b.Limit) + ")")
	}

	switch b.Command {
	case bag.Retrieve:
		sb.WriteString(".elementMap(" + quoteList(b.Projections) + ")")
	case bag.Update:
		props, err := updateSteps(b.Data[0])
		if err != nil {
			return "", err
		}
		sb.WriteString(props)
		sb.WriteString(".elementMap()")
	case bag.Delete:
		sb.WriteString(".drop()")
	}
	return sb.String(), nil
}

func compileCreate(b *bag.Bag) (string, error) {
	adds := make([]string, len(b.Data))
	for i, rec := range b.Data {
		add, err := addVertex(b.Target.Name, rec)
		if err != nil {
			return "", err
		}
		adds[i] = add
	}
	if len(adds) == 1 {
		return "g." + adds[0] + ".elementMap()", nil
	}
	for i := range adds {
		adds[i] = "__." + adds[i]
	}
	return "g.inject(0).union(" + strings.Join(adds, ", ") + ").elementMap()", nil
}

// addVertex renders addV(label) with one property step per field.
// Nil fields are omitted; an absent property reads back as null.
func addVertex(label string, rec ir.Record) (string, error) {
	var sb strings.Builder
	sb.WriteString("addV(" + quote(label) + ")")
	for _, k := range ir.SortedKeys(rec) {
		if rec[k] == nil {
			continue
		}
		lit, err := literals.Render(rec[k])
		if err != nil {
			return "", err
		}
		sb.WriteString(".property(" + quote(k) + ", " + lit + ")")
	}
	return sb.String(), nil
}

// updateSteps renders single-cardinality property steps. A nil value
// drops the property.
func updateSteps(data ir.Record) (string, error) {
	var sb strings.Builder
	for _, k := range ir.SortedKeys(data) {
		if data[k] == nil {
			sb.WriteString(".sideEffect(__.properties(" + quote(k) + ").drop())")
			continue
		}
		lit, err := literals.Render(data[k])
		if err != nil {
			return "", err
		}
		sb.WriteString(".property(single, " + quote(k) + ", " + lit + ")")
	}
	return sb.String(), nil
}

func start(t bag.Target) string {
	if !t.IsID() {
		return "g.V().hasLabel(" + quote(t.Name) + ")"
	}
	ids := make([]string, len(t.IDs))
	for i, id := range t.IDs {
		if processor.IsIntegerID(id) {
			ids[i] = string(id)
		} else {
			ids[i] = quote(string(id))
		}
	}
	return "g.V(" + strings.Join(ids, ", ") + ")"
}

// whereSteps renders a where tree as a sequence of steps without the
// leading dot.
func whereSteps(n *processor.WhereNode) ([]string, error) {
	if n == nil {
		return nil, nil
	}
	if n.Leaf != nil {
		step, err := hasStep(*n.Leaf)
		if err != nil {
			return nil, err
		}
		return []string{step}, nil
	}

	if n.Op == bag.And {
		var steps []string
		for _, child := range n.Children {
			s, err := whereSteps(child)
			if err != nil {
				return nil, err
			}
			steps = append(steps, s...)
		}
		return steps, nil
	}

	branches := make([]string, len(n.Children))
	for i, child := range n.Children {
		s, err := whereSteps(child)
		if err != nil {
			return nil, err
		}
		branches[i] = "__." + strings.Join(s, ".")
	}
	return []string{"or(" + strings.Join(branches, ", ") + ")"}, nil
}

var predicates = map[bag.Comparator]string{
	bag.NotEqual:           "neq",
	bag.GreaterThan:        "gt",
	bag.GreaterThanOrEqual: "gte",
	bag.LessThan:           "lt",
	bag.LessThanOrEqual:    "lte",
	bag.In:                 "within",
	bag.NotIn:              "without",
	bag.Contains:           "TextP.containing",
	bag.Regex:              "TextP.regex",
}

// anchor makes a pattern match the whole value. TextP.regex finds the
// pattern anywhere in the string, unlike =~ and MATCHES.
func anchor(re string) string {
	return "^(?:" + re + ")$"
}

func hasStep(c bag.Constraint) (string, error) {
	key := quote(c.Field)

	switch c.Comparator {
	case bag.Equal:
		if c.Value == nil {
			return "hasNot(" + key + ")", nil
		}
		lit, err := literals.RenderScalar(c.Value)
		if err != nil {
			return "", err
		}
		return "has(" + key + ", " + lit + ")", nil
	case bag.NotEqual:
		if c.Value == nil {
			return "has(" + key + ")", nil
		}
	case bag.In, bag.NotIn:
		items, err := literals.RenderItems(c.Value)
		if err != nil {
			return "", err
		}
		return "has(" + key + ", " + predicates[c.Comparator] + "(" + strings.Join(items, ", ") + "))", nil
	case bag.Contains, bag.Regex:
		s, err := processor.StringOperand(Dialect, c)
		if err != nil {
			return "", err
		}
		if c.Comparator == bag.Regex {
			s = anchor(s)
		}
		return "has(" + key + ", " + predicates[c.Comparator] + "(" + quote(s) + "))", nil
	}

	pred, ok := predicates[c.Comparator]
	if !ok {
		return "", processor.Unsupported(Dialect, "comparator %s", c.Comparator)
	}
	lit, err := literals.RenderScalar(c.Value)
	if err != nil {
		return "", err
	}
	return "has(" + key + ", " + pred + "(" + lit + "))", nil
}

func quoteList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return strings.Join(out, ", ")
}
