package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spider/dialect"
	"github.com/roach88/spider/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect string
}

// CompilationResult is the compile command's JSON payload.
type CompilationResult struct {
	Dialect string     `json:"dialect"`
	Command ir.Command `json:"command"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <bag.yaml>",
		Short: "Compile a command bag to a native script",
		Long: `Compile a YAML command bag for one dialect and print the script.

Nothing is executed and no settings file is needed.

Example:
  spider compile --dialect cypher adults.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "target dialect (orientsql|gremlin|cypher|sqlite)")
	_ = cmd.MarkFlagRequired("dialect")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	proc, err := dialect.Lookup(opts.Dialect)
	if err != nil {
		return formatter.Fail(err)
	}

	b, err := LoadBag(path)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded %s bag targeting %q from %s", b.Command, b.Target.Name, path)

	command, err := proc.Compile(b)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CompilationResult{Dialect: proc.Dialect(), Command: command})
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %s bag for %s (%s, %s)\n\n",
		b.Command, proc.Dialect(), command.Language, command.RW)
	fmt.Fprintln(formatter.Writer, joinLines(command.Script))
	return nil
}
