package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/normalize"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The backend rejected the command or matched nothing
	ExitCommandError = 2 // Bad input: missing files, invalid settings, uncompilable bags
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status    string    `json:"status"`               // "ok" or "error"
	Data      any       `json:"data,omitempty"`       // success payload
	Error     *CLIError `json:"error,omitempty"`      // error details
	CommandID string    `json:"command_id,omitempty"` // correlates with log lines
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail prints err with the E-code its classification maps to and returns
// the matching ExitError.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := classify(err)
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exit, code, err)
}

// Response prints a normalized driver response. Text mode renders records
// as a table with one column per field, reserved keys first.
func (f *OutputFormatter) Response(resp *normalize.Response) error {
	if f.Format == "json" {
		if resp.Scalar != nil {
			return f.Success(map[string]any{"scalar": resp.Scalar})
		}
		return f.Success(resp.Records)
	}

	if resp.Scalar != nil {
		fmt.Fprintln(f.Writer, formatCell(resp.Scalar))
		return nil
	}
	if resp.Len() == 0 {
		fmt.Fprintln(f.Writer, "(no records)")
		return nil
	}

	cols := recordColumns(resp.Records)
	table := tablewriter.NewWriter(f.Writer)
	table.SetHeader(cols)
	table.SetAutoFormatHeaders(false)
	for _, rec := range resp.Records {
		row := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := rec[c]; ok {
				row[i] = formatCell(v)
			}
		}
		table.Append(row)
	}
	table.Render()
	fmt.Fprintf(f.Writer, "%d record(s)\n", resp.Len())
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

var reservedColumns = []string{ir.KeyID, ir.KeyLabel, ir.KeyVersion}

// recordColumns is the union of record keys: id, label and version first,
// then the rest in canonical order. The raw ref is left out since id
// carries the same identity as text.
func recordColumns(records []ir.Record) []string {
	seen := map[string]bool{ir.KeyRef: true}
	var cols []string
	for _, key := range reservedColumns {
		for _, rec := range records {
			if _, ok := rec[key]; ok {
				cols = append(cols, key)
				break
			}
		}
		seen[key] = true
	}

	union := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				union[k] = struct{}{}
			}
		}
	}
	return append(cols, ir.SortedKeys(union)...)
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		s, err := ir.FormatFloat(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return s
	case []any, map[string]any, ir.Record:
		b, err := ir.MarshalCanonical(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// joinLines indents each line of s by two spaces.
func joinLines(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ")
}
