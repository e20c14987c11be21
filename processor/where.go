package processor

import (
	"strings"

	"github.com/roach88/spider/bag"
)

// FragmentFunc renders one constraint as an infix boolean expression.
type FragmentFunc func(c bag.Constraint) (string, error)

// FoldWhere renders where as a strict left-to-right fold of infix
// fragments joined by the and/or keywords.
//
// Each constraint's conjunction joins it to the accumulated expression on
// its left. When the conjunction changes, the left side is parenthesized,
// so native AND/OR precedence cannot reorder evaluation:
//
//	a AND b OR c   →  (a AND b) OR c
//	a OR b AND c   →  (a OR b) AND c
//	a AND b AND c  →  a AND b AND c
//
// An empty where renders as "".
func FoldWhere(where []bag.Constraint, and, or string, render FragmentFunc) (string, error) {
	var acc strings.Builder
	var prev bag.Conjunction
	for i, c := range where {
		frag, err := render(c)
		if err != nil {
			return "", err
		}
		if i == 0 {
			acc.WriteString(frag)
			continue
		}
		conj := Conjunction(where, i)
		if prev != "" && conj != prev {
			left := acc.String()
			acc.Reset()
			acc.WriteString("(" + left + ")")
		}
		kw := and
		if conj == bag.Or {
			kw = or
		}
		acc.WriteString(" " + kw + " " + frag)
		prev = conj
	}
	return acc.String(), nil
}

// Group parenthesizes a folded where clause that joins more than one
// constraint, for dialects that combine it with another predicate.
func Group(clause string, where []bag.Constraint) string {
	if len(where) > 1 {
		return "(" + clause + ")"
	}
	return clause
}

// WhereNode is one node of a where tree: either a single constraint or a
// group of children joined by the same conjunction.
//
// Dialects without infix boolean operators (step-based traversals) render
// this tree instead of a folded string.
type WhereNode struct {
	Leaf     *bag.Constraint
	Op       bag.Conjunction
	Children []*WhereNode
}

// WhereTree folds where into a tree with the same left-to-right semantics
// as FoldWhere. Consecutive constraints joined by the same conjunction are
// flattened into one group. Returns nil for an empty where.
func WhereTree(where []bag.Constraint) *WhereNode {
	var acc *WhereNode
	for i := range where {
		leaf := &WhereNode{Leaf: &where[i]}
		if i == 0 {
			acc = leaf
			continue
		}
		conj := Conjunction(where, i)
		if acc.Leaf == nil && acc.Op == conj {
			acc.Children = append(acc.Children, leaf)
			continue
		}
		acc = &WhereNode{Op: conj, Children: []*WhereNode{acc, leaf}}
	}
	return acc
}
