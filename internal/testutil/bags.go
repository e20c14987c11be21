package testutil

import (
	"fmt"
	"strings"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/processor"
)

// BagCase is one named Bag in the shared processor corpus.
type BagCase struct {
	Name string
	Bag  bag.Bag
}

// BagCorpus returns the Bags every processor is golden-tested against.
//
// Record ids differ per backend, so callers supply two ids in their
// dialect's native form. The corpus is rebuilt on every call; tests may
// mutate it freely.
func BagCorpus(id1, id2 ir.ID) []BagCase {
	person := bag.Target{Name: "person"}
	one := bag.Target{IDs: []ir.ID{id1}}
	both := bag.Target{IDs: []ir.ID{id1, id2}}

	eq := func(field string, v any, conj bag.Conjunction) bag.Constraint {
		return bag.Constraint{Field: field, Comparator: bag.Equal, Value: v, Conjunction: conj}
	}
	cmp := func(field string, op bag.Comparator, v any, conj bag.Conjunction) bag.Constraint {
		return bag.Constraint{Field: field, Comparator: op, Value: v, Conjunction: conj}
	}

	return []BagCase{
		{"retrieve_all", bag.Bag{Command: bag.Retrieve, Target: person}},
		{"retrieve_projection", bag.Bag{Command: bag.Retrieve, Target: person, Projections: []string{"name", "age"}}},
		{"retrieve_where", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			eq("name", "marko", bag.And),
		}}},
		{"retrieve_and_or", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			cmp("age", bag.GreaterThan, 30, bag.And),
			cmp("name", bag.NotEqual, "josh", bag.And),
			eq("name", "vadas", bag.Or),
		}}},
		{"retrieve_or_and", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			eq("name", "marko", bag.And),
			eq("name", "vadas", bag.Or),
			cmp("age", bag.LessThanOrEqual, 28, bag.And),
		}}},
		{"retrieve_null", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			eq("nickname", nil, bag.And),
			cmp("email", bag.NotEqual, nil, bag.And),
		}}},
		{"retrieve_in", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			cmp("age", bag.In, []any{27, 29}, bag.And),
			cmp("name", bag.NotIn, []string{"josh"}, bag.And),
		}}},
		{"retrieve_contains", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			cmp("name", bag.Contains, "ar", bag.And),
		}}},
		{"retrieve_like", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			cmp("name", bag.Like, "m%", bag.And),
		}}},
		{"retrieve_regex", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			cmp("name", bag.Regex, "^m.*", bag.And),
		}}},
		{"retrieve_order_limit", bag.Bag{Command: bag.Retrieve, Target: person,
			OrderBy: []bag.Order{{Field: "age", Direction: bag.Desc}, {Field: "name", Direction: bag.Asc}},
			Limit:   3,
		}},
		{"retrieve_group", bag.Bag{Command: bag.Retrieve, Target: bag.Target{Name: "software"}, GroupBy: []string{"lang"}}},
		{"retrieve_record", bag.Bag{Command: bag.Retrieve, Target: one}},
		{"retrieve_records_where", bag.Bag{Command: bag.Retrieve, Target: both, Where: []bag.Constraint{
			cmp("age", bag.GreaterThan, 30, bag.And),
			eq("name", "marko", bag.Or),
		}}},
		{"retrieve_odd_identifiers", bag.Bag{Command: bag.Retrieve, Target: bag.Target{Name: "my class"},
			Projections: []string{"first name"},
			Where:       []bag.Constraint{eq("first name", "it's", bag.And)},
		}},
		{"create_one", bag.Bag{Command: bag.Create, Target: person, Data: []ir.Record{
			{"name": "marko", "age": 29},
		}}},
		{"create_many", bag.Bag{Command: bag.Create, Target: person, Data: []ir.Record{
			{"name": "marko", "age": 29},
			{"name": "vadas", "age": 27},
		}}},
		{"create_literals", bag.Bag{Command: bag.Create, Target: person, Data: []ir.Record{
			{"active": true, "nickname": nil, "quote": `O'Brien "\"`, "score": 1.5, "tags": []string{"a", "b"}},
		}}},
		{"create_nested", bag.Bag{Command: bag.Create, Target: person, Data: []ir.Record{
			{"address": map[string]any{"city": "Santa Fe"}, "name": "marko"},
		}}},
		{"update_where", bag.Bag{Command: bag.Update, Target: person,
			Where: []bag.Constraint{eq("name", "marko", bag.And)},
			Data:  []ir.Record{{"age": 30}},
		}},
		{"update_record", bag.Bag{Command: bag.Update, Target: one, Data: []ir.Record{
			{"age": 30, "nickname": nil},
		}}},
		{"update_limit", bag.Bag{Command: bag.Update, Target: person,
			Where: []bag.Constraint{cmp("age", bag.GreaterThan, 30, bag.And)},
			Limit: 1,
			Data:  []ir.Record{{"senior": true}},
		}},
		{"delete_where", bag.Bag{Command: bag.Delete, Target: person, Where: []bag.Constraint{
			eq("name", "marko", bag.And),
		}}},
		{"delete_record", bag.Bag{Command: bag.Delete, Target: one}},
		{"delete_records", bag.Bag{Command: bag.Delete, Target: both}},
		{"delete_limit", bag.Bag{Command: bag.Delete, Target: person,
			Where: []bag.Constraint{cmp("age", bag.LessThan, 30, bag.And)},
			Limit: 2,
		}},
		{"unsupported_value", bag.Bag{Command: bag.Retrieve, Target: person, Where: []bag.Constraint{
			eq("name", struct{}{}, bag.And),
		}}},
	}
}

// RenderCorpus compiles every case with p and renders the results as one
// golden document:
//
//	== retrieve_all [read] ==
//	SELECT FROM person
//
// Failed compilations render "error: <CODE>" so golden files pin which
// cases a dialect rejects without depending on message wording.
func RenderCorpus(p processor.Processor, cases []BagCase) []byte {
	var sb strings.Builder
	for i, tc := range cases {
		if i > 0 {
			sb.WriteString("\n")
		}
		b := tc.Bag
		fmt.Fprintf(&sb, "== %s [%s] ==\n", tc.Name, b.RW())
		cmd, err := p.Compile(&b)
		if err != nil {
			fmt.Fprintf(&sb, "error: %s\n", ir.CodeOf(err))
			continue
		}
		sb.WriteString(cmd.Script)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}
