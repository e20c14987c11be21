package bag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spider/ir"
)

func retrieveBag() *Bag {
	return &Bag{
		Command: Retrieve,
		Target:  Target{Name: "person"},
		Where: []Constraint{
			{Field: "age", Comparator: GreaterThan, Value: 30, Conjunction: And},
		},
	}
}

func TestBag_RW(t *testing.T) {
	assert.Equal(t, ir.Read, (&Bag{Command: Retrieve}).RW())
	assert.Equal(t, ir.Write, (&Bag{Command: Create}).RW())
	assert.Equal(t, ir.Write, (&Bag{Command: Update}).RW())
	assert.Equal(t, ir.Write, (&Bag{Command: Delete}).RW())
}

func TestBag_CreateCount(t *testing.T) {
	one := &Bag{Command: Create, Data: []ir.Record{{"name": "a"}}}
	two := &Bag{Command: Create, Data: []ir.Record{{"name": "a"}, {"name": "b"}}}
	upd := &Bag{Command: Update, Data: []ir.Record{{"name": "a"}}}

	assert.Equal(t, 1, one.CreateCount())
	assert.Equal(t, 2, two.CreateCount())
	assert.Equal(t, 0, upd.CreateCount(), "only create commands count records")
}

func TestBag_CloneDoesNotAlias(t *testing.T) {
	b := &Bag{
		Command:     Create,
		Target:      Target{Name: "person"},
		Projections: []string{"name"},
		Data:        []ir.Record{{"name": "marko"}},
	}

	c := b.Clone()
	c.Data[0]["name"] = "vadas"
	c.Projections[0] = "age"

	assert.Equal(t, "marko", b.Data[0]["name"])
	assert.Equal(t, "name", b.Projections[0])
}

func TestBag_CloneCopiesListOperands(t *testing.T) {
	names := []string{"josh", "peter"}
	b := &Bag{
		Command: Retrieve,
		Target:  Target{Name: "person"},
		Where: []Constraint{
			{Field: "name", Comparator: In, Value: names},
			{Field: "age", Comparator: NotIn, Value: []any{27, 29}, Conjunction: And},
		},
	}

	c := b.Clone()
	c.Where[0].Value.([]string)[0] = "marko"
	c.Where[1].Value.([]any)[1] = 35

	assert.Equal(t, []string{"josh", "peter"}, names)
	assert.Equal(t, []any{27, 29}, b.Where[1].Value)
	assert.Equal(t, []string{"marko", "peter"}, c.Where[0].Value)
}

func TestBag_CloneKeepsNilSlices(t *testing.T) {
	b := retrieveBag()
	c := b.Clone()
	assert.Nil(t, c.Data)
	assert.Nil(t, c.Projections)
	assert.Equal(t, *b, c)
}

func TestConditionOf(t *testing.T) {
	assert.Equal(t, Condition{Comparator: Equal, Value: "marko"}, ConditionOf("marko"))
	assert.Equal(t, Condition{Comparator: GreaterThan, Value: 30}, ConditionOf(Gt(30)))

	c := Lte(5)
	assert.Equal(t, c, ConditionOf(&c))

	assert.Equal(t, []any{}, InValues().Value, "empty list stays a list")
	assert.Equal(t, []any{1, 2}, NotInValues(1, 2).Value)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "person", NormalizeName("  person\t"))
	assert.Equal(t, "caf\u00e9", NormalizeName("cafe\u0301"))
}

func TestValidate_Valid(t *testing.T) {
	tests := []struct {
		name string
		bag  *Bag
	}{
		{"retrieve by name", retrieveBag()},
		{"retrieve by ids", &Bag{Command: Retrieve, Target: Target{IDs: []ir.ID{"#12:1", "#12:2"}}}},
		{"create many", &Bag{Command: Create, Target: Target{Name: "person"}, Data: []ir.Record{{"a": 1}, {"a": 2}}}},
		{"update with where", &Bag{
			Command: Update,
			Target:  Target{Name: "person"},
			Where:   []Constraint{{Field: "name", Comparator: Equal, Value: "marko"}},
			Data:    []ir.Record{{"age": 30}},
		}},
		{"delete by id", &Bag{Command: Delete, Target: Target{IDs: []ir.ID{"#12:1"}}}},
		{"retrieve with in list", &Bag{
			Command: Retrieve,
			Target:  Target{Name: "person"},
			Where:   []Constraint{{Field: "age", Comparator: In, Value: []int{27, 29}, Conjunction: And}},
			OrderBy: []Order{{Field: "age", Direction: Desc}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.bag))
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		bag     *Bag
		message string
	}{
		{"nil", nil, "bag is nil"},
		{"no command", &Bag{Target: Target{Name: "person"}}, "no command has been begun"},
		{"unknown command", &Bag{Command: "merge", Target: Target{Name: "person"}}, `unknown command "merge"`},
		{"no target", &Bag{Command: Retrieve}, "retrieve has no target"},
		{"both targets", &Bag{Command: Retrieve, Target: Target{Name: "person", IDs: []ir.ID{"#1:1"}}}, "both a name and record ids"},
		{"empty id", &Bag{Command: Retrieve, Target: Target{IDs: []ir.ID{""}}}, "target id 0 is empty"},
		{"empty field", &Bag{
			Command: Retrieve, Target: Target{Name: "person"},
			Where: []Constraint{{Comparator: Equal, Value: 1}},
		}, "where 0 has an empty field"},
		{"unknown comparator", &Bag{
			Command: Retrieve, Target: Target{Name: "person"},
			Where: []Constraint{{Field: "a", Comparator: "BETWEEN", Value: 1}},
		}, `unknown comparator "BETWEEN"`},
		{"missing conjunction", &Bag{
			Command: Retrieve, Target: Target{Name: "person"},
			Where: []Constraint{
				{Field: "a", Comparator: Equal, Value: 1},
				{Field: "b", Comparator: Equal, Value: 2},
			},
		}, "where 1 has no conjunction"},
		{"in without list", &Bag{
			Command: Retrieve, Target: Target{Name: "person"},
			Where: []Constraint{{Field: "a", Comparator: In, Value: 1}},
		}, "IN needs a list operand"},
		{"create without data", &Bag{Command: Create, Target: Target{Name: "person"}}, "create has no records"},
		{"create into id", &Bag{Command: Create, Target: Target{IDs: []ir.ID{"#1:1"}}, Data: []ir.Record{{"a": 1}}}, "create must target a name"},
		{"update two maps", &Bag{Command: Update, Target: Target{Name: "person"}, Data: []ir.Record{{"a": 1}, {"a": 2}}}, "exactly one field map"},
		{"update empty map", &Bag{Command: Update, Target: Target{Name: "person"}, Data: []ir.Record{{}}}, "no fields to set"},
		{"delete with data", &Bag{Command: Delete, Target: Target{Name: "person"}, Data: []ir.Record{{"a": 1}}}, "delete does not accept data"},
		{"delete with projections", &Bag{Command: Delete, Target: Target{Name: "person"}, Projections: []string{"a"}}, "projections are only valid on retrieve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.bag)
			require.Error(t, err)
			assert.True(t, ir.IsBuilderUsage(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_NegativeLimit(t *testing.T) {
	b := retrieveBag()
	b.Limit = -1

	err := Validate(b)
	require.Error(t, err)
	assert.True(t, ir.IsInvalidArgument(err))
}
