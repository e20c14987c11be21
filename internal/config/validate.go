package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError reports settings that do not match the schema.
type ValidationError struct {
	// Path is the dotted location of the first offending value, e.g.
	// "connections.local.driver".
	Path string

	// Problems lists every schema violation.
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid settings: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid settings (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate checks s against the embedded CUE schema and checks that the
// default connection is defined.
func Validate(s *Settings) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}

	value := ctx.Encode(s)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Settings")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return validationError(err)
	}

	if len(s.Connections) > 0 {
		if _, ok := s.Connections[s.Default]; !ok {
			return &ValidationError{
				Path:     "default",
				Problems: []string{fmt.Sprintf("default: connection %q is not defined", s.Default)},
			}
		}
	}
	return nil
}

func validationError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	out := &ValidationError{Path: strings.Join(errs[0].Path(), ".")}
	for _, e := range errs {
		msg := e.Error()
		if path := strings.Join(e.Path(), "."); path != "" && !strings.HasPrefix(msg, path) {
			msg = path + ": " + msg
		}
		out.Problems = append(out.Problems, msg)
	}
	return out
}
