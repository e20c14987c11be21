package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spider/ir"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	ConnectOptions
	Read bool
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{ConnectOptions: ConnectOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "exec <script>",
		Short: "Run a native script on a connection",
		Long: `Run a script written in the connection's own language.

Scripts are writes unless --read is given. Writes print nothing on
success; reads print their records.

Example:
  spider --config spider.yaml exec --read "SELECT count(*) AS total FROM vertices"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.Read, "read", false, "route the script as a read and print its result")

	return cmd
}

func runExec(opts *ExecOptions, script string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if script == "" {
		return formatter.Fail(&LoadError{Code: ErrCodeInvalidCommand, Message: "empty script"})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := connect(ctx, &opts.ConnectOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}

	language := s.conn.Processor().Language()
	if opts.Read {
		resp, err := s.conn.Execute(ctx, ir.NewReadCommand(script, language))
		closeErr := s.close(ctx, &opts.ConnectOptions, cmd)
		if err != nil {
			return formatter.Fail(err)
		}
		if closeErr != nil {
			return formatter.Fail(closeErr)
		}
		return formatter.Response(resp)
	}

	err = s.conn.Run(ctx, ir.NewCommand(script, language))
	closeErr := s.close(ctx, &opts.ConnectOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	if closeErr != nil {
		return formatter.Fail(closeErr)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"connection": s.conn.Name(), "rw": string(ir.Write)})
	}
	fmt.Fprintf(formatter.Writer, "✓ Ran write on %s\n", s.conn.Name())
	return nil
}
