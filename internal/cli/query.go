package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/spider/connection"
	"github.com/roach88/spider/internal/metrics"
)

// ConnectOptions are the flags shared by commands that reach a backend.
type ConnectOptions struct {
	*RootOptions
	Connection string // empty means the settings' default
	Metrics    bool   // dump Prometheus metrics to stderr when done
}

func (o *ConnectOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Connection, "connection", "", "connection name (default: the settings' default)")
	cmd.Flags().BoolVar(&o.Metrics, "metrics", false, "print command metrics to stderr when done")
}

// session is one CLI invocation's open connection.
type session struct {
	conn    *connection.Connection
	manager *connection.Manager
	metrics *metrics.Collector
}

// connect loads settings and fetches the requested connection.
func connect(ctx context.Context, opts *ConnectOptions, cmd *cobra.Command) (*session, error) {
	settings, err := loadSettings(opts.RootOptions)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.RootOptions, settings.Log)
	collector := metrics.New()
	manager := settings.Manager(
		connection.WithLogger(logger),
		connection.WithMetrics(collector),
	)

	conn, err := manager.Fetch(ctx, opts.Connection)
	if err != nil {
		return nil, errors.Join(err, manager.Close(ctx))
	}
	logger.Debug("connection open", "connection", conn.Name(), "dialect", conn.Dialect())
	return &session{conn: conn, manager: manager, metrics: collector}, nil
}

func (s *session) close(ctx context.Context, opts *ConnectOptions, cmd *cobra.Command) error {
	if opts.Metrics {
		if err := s.metrics.WriteText(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	return s.manager.Close(ctx)
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConnectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <bag.yaml>",
		Short: "Compile a command bag and execute it",
		Long: `Compile a YAML command bag for the connection's dialect, execute it
and print the normalized records.

Example:
  spider --config spider.yaml query --connection graph adults.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)

	return cmd
}

func runQuery(opts *ConnectOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	b, err := LoadBag(path)
	if err != nil {
		return formatter.Fail(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := connect(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}

	resp, err := s.conn.ExecuteBag(ctx, b)
	closeErr := s.close(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	if closeErr != nil {
		return formatter.Fail(closeErr)
	}
	return formatter.Response(resp)
}
