package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spider/connection"
	"github.com/roach88/spider/internal/config"
)

// ConnectionSummary describes one validated connection definition.
type ConnectionSummary struct {
	Name    string `json:"name"`
	Driver  string `json:"driver"`
	Dialect string `json:"dialect"`
	Default bool   `json:"default,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	Connections []ConnectionSummary `json:"connections"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the settings file without connecting",
		Long: `Validate the --config settings file against the settings schema and
resolve every connection's driver and dialect. No backend is contacted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	settings, err := loadSettings(opts)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			_ = formatter.Error(ErrCodeConfigInvalid, verr.Error(), verr.Problems)
			return WrapExitError(ExitCommandError, ErrCodeConfigInvalid, err)
		}
		return formatter.Fail(err)
	}

	result := ValidationResult{Valid: true}
	m := settings.Manager()
	for _, name := range m.Names() {
		cfg, _ := m.Config(name)
		formatter.VerboseLog("Resolving connection: %s", name)

		conn, err := connection.New(name, cfg)
		if err != nil {
			return formatter.Fail(err)
		}
		result.Connections = append(result.Connections, ConnectionSummary{
			Name:    name,
			Driver:  cfg.Driver,
			Dialect: conn.Dialect(),
			Default: name == m.DefaultName(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Settings valid: %d connection(s)\n", len(result.Connections))
	for _, c := range result.Connections {
		marker := ""
		if c.Default {
			marker = " (default)"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s → %s%s\n", c.Name, c.Driver, c.Dialect, marker)
	}
	return nil
}
