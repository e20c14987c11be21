// Package dialect selects a Command Processor by name.
package dialect

import (
	"slices"
	"strings"

	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/processor"
	"github.com/roach88/spider/processor/cypher"
	"github.com/roach88/spider/processor/gremlin"
	"github.com/roach88/spider/processor/orientsql"
	"github.com/roach88/spider/processor/sqlite"
)

var processors = map[string]func() processor.Processor{
	orientsql.Dialect: func() processor.Processor { return orientsql.New() },
	gremlin.Dialect:   func() processor.Processor { return gremlin.New() },
	cypher.Dialect:    func() processor.Processor { return cypher.New() },
	sqlite.Dialect:    func() processor.Processor { return sqlite.New() },
}

// aliases map script language tags and common backend names to dialects.
var aliases = map[string]string{
	ir.LanguageOrientSQL: orientsql.Dialect,
	"orientdb":           orientsql.Dialect,
	ir.LanguageGremlin:   gremlin.Dialect,
	"neo4j":              cypher.Dialect,
	"sqlite3":            sqlite.Dialect,
}

// Lookup returns the processor registered under name or one of its
// aliases. Names are case-insensitive.
func Lookup(name string) (processor.Processor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[key]; ok {
		key = target
	}
	newProcessor, ok := processors[key]
	if !ok {
		return nil, ir.Errorf(ir.CodeInvalidArgument, "dialect.Lookup", "unknown dialect %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return newProcessor(), nil
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(processors))
	for name := range processors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
