// Package bag provides the Command Bag: the backend-neutral intermediate
// representation of one read or write command.
//
// A Bag is the abstraction boundary between the fluent query builder and
// the per-dialect processors:
//
//	[query.Builder] → [bag.Bag] → [orientsql | gremlin | cypher | sqlite]
//
// A Bag is pure data. The builder owns its construction; processors only
// read it. Validate is the structural contract every processor checks before
// rendering.
//
// WHERE ORDERING:
//
// Where entries keep insertion order. Each constraint's Conjunction joins it
// to the constraint immediately before it; the first constraint's
// Conjunction is ignored. Processors fold constraints strictly left to
// right, so
//
//	a AND b OR c
//
// means (a AND b) OR c in every dialect, regardless of native precedence.
//
// MAP ORDERING:
//
// Data records are Go maps and therefore unordered. Processors render their
// keys in ir.SortedKeys order so compilation stays deterministic.
package bag
