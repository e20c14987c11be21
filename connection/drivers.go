package connection

import (
	"slices"
	"strings"

	"github.com/roach88/spider/driver"
	gremlindriver "github.com/roach88/spider/driver/gremlin"
	"github.com/roach88/spider/driver/neo4j"
	"github.com/roach88/spider/driver/orientdb"
	sqlitedriver "github.com/roach88/spider/driver/sqlite"
)

type driverEntry struct {
	newDriver func() driver.Driver
	dialect   string
}

// drivers maps a driver alias to its constructor and default dialect.
var drivers = map[string]driverEntry{
	"orientdb": {func() driver.Driver { return orientdb.New() }, "orientsql"},
	"gremlin":  {func() driver.Driver { return gremlindriver.New() }, "gremlin"},
	"neo4j":    {func() driver.Driver { return neo4j.New() }, "cypher"},
	"sqlite":   {func() driver.Driver { return sqlitedriver.New() }, "sqlite"},
}

// Drivers returns the known driver aliases, sorted.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultDialect returns the dialect a driver alias compiles to.
func DefaultDialect(alias string) (string, bool) {
	e, ok := drivers[strings.ToLower(alias)]
	return e.dialect, ok
}
