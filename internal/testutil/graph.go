package testutil

import (
	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
)

// ModernLabel is the label every fixture vertex carries.
const ModernLabel = "person"

// ModernGraph returns the vertices of the TinkerPop "modern" graph in
// insertion order. Every vertex is labelled person so one label scan sees
// the whole graph; the two software vertices carry lang instead of age.
func ModernGraph() []ir.Record {
	return []ir.Record{
		{"name": "marko", "age": 29},
		{"name": "vadas", "age": 27},
		{"name": "peter", "age": 35},
		{"name": "josh", "age": 32},
		{"name": "lop", "lang": "java"},
		{"name": "ripple", "lang": "java"},
	}
}

// ModernGraphBag returns a Create bag that inserts ModernGraph.
func ModernGraphBag() *bag.Bag {
	return &bag.Bag{
		Command: bag.Create,
		Target:  bag.Target{Name: ModernLabel},
		Data:    ModernGraph(),
	}
}
