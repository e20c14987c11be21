package ir

// RW classifies a Command as a read or a write so the execution layer can
// route it without re-inspecting the script text.
type RW string

const (
	Read  RW = "read"
	Write RW = "write"
)

// Script languages produced by the bundled processors.
const (
	LanguageOrientSQL = "orientdb-sql"
	LanguageGremlin   = "gremlin-groovy"
	LanguageCypher    = "cypher"
	LanguageSQLite    = "sqlite"
)

// Command is a native script ready for a driver.
//
// A Command is either produced by a processor from a Bag or supplied
// directly by a caller who already has a native script. Both take the same
// execution path.
type Command struct {
	Script   string `json:"script" yaml:"script"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	RW       RW     `json:"rw" yaml:"rw"`
}

// NewCommand creates a write Command from a native script.
// Use NewReadCommand for queries so they are routed to the read path.
func NewCommand(script, language string) Command {
	return Command{Script: script, Language: language, RW: Write}
}

// NewReadCommand creates a read Command from a native script.
func NewReadCommand(script, language string) Command {
	return Command{Script: script, Language: language, RW: Read}
}

// IsRead reports whether the command is classified as a read.
func (c Command) IsRead() bool {
	return c.RW == Read
}

// String returns the script.
func (c Command) String() string {
	return c.Script
}
