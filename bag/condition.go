package bag

// Condition pairs a comparator with its operand. Passing a Condition as the
// value of a where call selects that comparator; any other value means
// Equal.
type Condition struct {
	Comparator Comparator
	Value      any
}

// Eq matches field == v. A nil v matches a missing or null field.
func Eq(v any) Condition { return Condition{Comparator: Equal, Value: v} }

// Neq matches field != v. A nil v matches a present, non-null field.
func Neq(v any) Condition { return Condition{Comparator: NotEqual, Value: v} }

func Gt(v any) Condition  { return Condition{Comparator: GreaterThan, Value: v} }
func Gte(v any) Condition { return Condition{Comparator: GreaterThanOrEqual, Value: v} }
func Lt(v any) Condition  { return Condition{Comparator: LessThan, Value: v} }
func Lte(v any) Condition { return Condition{Comparator: LessThanOrEqual, Value: v} }

// InValues matches when the field equals any of values.
func InValues(values ...any) Condition {
	return Condition{Comparator: In, Value: nonNil(values)}
}

// NotInValues matches when the field equals none of values.
func NotInValues(values ...any) Condition {
	return Condition{Comparator: NotIn, Value: nonNil(values)}
}

// ContainsText matches a substring of a string field.
func ContainsText(s string) Condition { return Condition{Comparator: Contains, Value: s} }

// LikePattern matches a SQL LIKE pattern.
func LikePattern(p string) Condition { return Condition{Comparator: Like, Value: p} }

// Matches matches a regular expression against the whole field value,
// as if the pattern were wrapped in ^ and $. Dialects whose regex
// predicate finds a partial match anchor the pattern when compiling.
func Matches(re string) Condition { return Condition{Comparator: Regex, Value: re} }

// ConditionOf splits a where value into comparator and operand.
func ConditionOf(v any) Condition {
	switch c := v.(type) {
	case Condition:
		return c
	case *Condition:
		if c != nil {
			return *c
		}
	}
	return Condition{Comparator: Equal, Value: v}
}

func nonNil(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}
