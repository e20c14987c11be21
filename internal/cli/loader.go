package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/connection"
	"github.com/roach88/spider/internal/config"
	"github.com/roach88/spider/ir"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeNotFound       = "E002" // Bag or settings file not found
	ErrCodeParseFailed    = "E003" // Bag file is not valid YAML for a Bag
	ErrCodeConfigInvalid  = "E004" // Settings failed to load or validate
	ErrCodeCompileFailed  = "E005" // Builder usage, invalid argument or unsupported construct
	ErrCodeNoConnection   = "E006" // Connection name not defined
	ErrCodeDriverFailure  = "E007" // Backend reported a failure
	ErrCodeNoResults      = "E008" // Nothing matched
	ErrCodeAmbiguous      = "E009" // More than one record matched
	ErrCodeMissingConfig  = "E010" // No --config given
	ErrCodeInvalidCommand = "E011" // Bad flag combination
)

// LoadError is a classified failure to load CLI input.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadBag reads a YAML Bag definition:
//
//	command: retrieve
//	target:
//	  name: person
//	where:
//	  - field: age
//	    comparator: GT
//	    value: 30
//	order_by:
//	  - field: name
//	    direction: ASC
//	limit: 10
//
// A constraint without a comparator compares for equality; constraints
// after the first default to AND. Order entries default to ASC.
func LoadBag(path string) (*bag.Bag, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("bag file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "reading bag file", Err: err}
	}
	return DecodeBag(data)
}

// DecodeBag parses a YAML Bag definition and fills in defaults.
// Unknown keys are rejected.
func DecodeBag(data []byte) (*bag.Bag, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var b bag.Bag
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeParseFailed, Message: "bag file is empty"}
		}
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: "parsing bag file", Err: err}
	}

	for i := range b.Where {
		c := &b.Where[i]
		if c.Comparator == "" {
			c.Comparator = bag.Equal
		}
		if c.Conjunction == "" && i > 0 {
			c.Conjunction = bag.And
		}
	}
	for i := range b.OrderBy {
		if b.OrderBy[i].Direction == "" {
			b.OrderBy[i].Direction = bag.Asc
		}
	}
	for _, rec := range b.Data {
		for k, v := range rec {
			rec[k] = plainValue(v)
		}
	}
	return &b, nil
}

// plainValue rewrites nested mappings as map[string]any. yaml.v3 decodes
// maps nested in an ir.Record as ir.Record too, while a field value built
// in Go is a plain map; loaded and built Bags must compare equal.
func plainValue(v any) any {
	switch x := v.(type) {
	case ir.Record:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plainValue(e)
		}
		return m
	case map[string]any:
		for k, e := range x {
			x[k] = plainValue(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = plainValue(e)
		}
		return x
	}
	return v
}

// loadSettings reads the --config file.
func loadSettings(opts *RootOptions) (*config.Settings, error) {
	if opts.Config == "" {
		return nil, &LoadError{Code: ErrCodeMissingConfig, Message: "no settings file: pass --config"}
	}
	if _, err := os.Stat(opts.Config); errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("settings file not found: %s", opts.Config)}
	}
	s, err := config.Load(opts.Config, opts.EnvPrefix)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfigInvalid, Message: "loading settings", Err: err}
	}
	return s, nil
}

// classify maps an error to its E-code and exit code.
func classify(err error) (string, int) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, ExitCommandError
	}
	if errors.Is(err, connection.ErrConnectionNotFound) {
		return ErrCodeNoConnection, ExitCommandError
	}

	switch ir.CodeOf(err) {
	case ir.CodeBuilderUsage, ir.CodeInvalidArgument, ir.CodeUnsupportedOperation, ir.CodeUnsupportedValueType:
		return ErrCodeCompileFailed, ExitCommandError
	case ir.CodeDriverFailure:
		return ErrCodeDriverFailure, ExitFailure
	case ir.CodeNoResults:
		return ErrCodeNoResults, ExitFailure
	case ir.CodeAmbiguousResult:
		return ErrCodeAmbiguous, ExitFailure
	}
	return ErrCodeGeneric, ExitFailure
}
