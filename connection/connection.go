package connection

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/dialect"
	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/normalize"
	"github.com/roach88/spider/processor"
	"github.com/roach88/spider/query"
)

// Recorder receives one observation per executed command.
// *metrics.Collector implements it.
type Recorder interface {
	ObserveCommand(dialect string, rw ir.RW, err error, d time.Duration)
}

// Connection is one configured backend.
type Connection struct {
	name    string
	cfg     driver.Config
	drv     driver.Driver
	proc    processor.Processor
	logger  *slog.Logger
	metrics Recorder
	ids     IDGenerator
	now     func() time.Time

	// seq numbers executions on this connection, starting at 1.
	seq atomic.Int64
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		c.logger = l
	}
}

// WithMetrics records every execution on r.
func WithMetrics(r Recorder) Option {
	return func(c *Connection) {
		c.metrics = r
	}
}

// WithDriver uses d instead of the driver registered for cfg.Driver.
// The configuration must then name a dialect unless cfg.Driver is a known
// alias.
func WithDriver(d driver.Driver) Option {
	return func(c *Connection) {
		c.drv = d
	}
}

// WithIDGenerator sets the command id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Connection) {
		c.ids = g
	}
}

// WithClock sets the time source used to measure durations.
func WithClock(now func() time.Time) Option {
	return func(c *Connection) {
		c.now = now
	}
}

// New creates an unopened connection. cfg.Driver selects the driver by
// alias; cfg.Dialect, when set, overrides the driver's default dialect.
func New(name string, cfg driver.Config, opts ...Option) (*Connection, error) {
	c := &Connection{
		name:   name,
		cfg:    cfg,
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	alias := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if alias == "" {
		return nil, ir.Errorf(ir.CodeInvalidArgument, "connection.New", "connection %q has no driver", name)
	}
	entry, known := drivers[alias]
	if c.drv == nil {
		if !known {
			return nil, ir.Errorf(ir.CodeInvalidArgument, "connection.New", "connection %q: unknown driver %q (known: %s)",
				name, cfg.Driver, strings.Join(Drivers(), ", "))
		}
		c.drv = entry.newDriver()
	}

	dialectName := cfg.Dialect
	if dialectName == "" {
		dialectName = entry.dialect
	}
	if dialectName == "" {
		return nil, ir.Errorf(ir.CodeInvalidArgument, "connection.New", "connection %q: driver %q needs a dialect", name, cfg.Driver)
	}
	proc, err := dialect.Lookup(dialectName)
	if err != nil {
		return nil, err
	}
	c.proc = proc
	return c, nil
}

// Name returns the connection name.
func (c *Connection) Name() string { return c.name }

// Config returns the connection definition.
func (c *Connection) Config() driver.Config { return c.cfg }

// Dialect returns the name of the processor's dialect.
func (c *Connection) Dialect() string { return c.proc.Dialect() }

// Processor returns the processor commands are compiled with.
func (c *Connection) Processor() processor.Processor { return c.proc }

// Driver returns the underlying driver for driver-specific calls.
func (c *Connection) Driver() driver.Driver { return c.drv }

// Open connects the driver.
func (c *Connection) Open(ctx context.Context) error {
	if err := c.drv.Open(ctx, c.cfg); err != nil {
		return &ir.Error{Code: ir.CodeDriverFailure, Op: "Open", Message: "connection " + c.name, Err: err}
	}
	c.logger.Debug("connection opened",
		"connection", c.name,
		"driver", c.cfg.Driver,
		"dialect", c.Dialect(),
	)
	return nil
}

// Close disconnects the driver.
func (c *Connection) Close(ctx context.Context) error {
	if err := c.drv.Close(ctx); err != nil {
		return &ir.Error{Code: ir.CodeDriverFailure, Op: "Close", Message: "connection " + c.name, Err: err}
	}
	return nil
}

// Query returns a new Builder that executes on this connection.
func (c *Connection) Query() *query.Builder {
	return query.New(c)
}

// Compile translates b into this connection's dialect.
func (c *Connection) Compile(b *bag.Bag) (ir.Command, error) {
	cmd, err := c.proc.Compile(b)
	if err != nil {
		return ir.Command{}, err
	}
	c.logger.Debug("command compiled",
		"connection", c.name,
		"dialect", c.Dialect(),
		"language", cmd.Language,
		"rw", cmd.RW,
	)
	return cmd, nil
}

// ExecuteBag compiles and executes b.
func (c *Connection) ExecuteBag(ctx context.Context, b *bag.Bag) (*normalize.Response, error) {
	cmd, err := c.Compile(b)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, cmd)
}

// RunBag compiles and executes b, discarding the result.
func (c *Connection) RunBag(ctx context.Context, b *bag.Bag) error {
	cmd, err := c.Compile(b)
	if err != nil {
		return err
	}
	return c.Run(ctx, cmd)
}

// Execute sends cmd to the driver's read or write path and normalizes
// the result.
func (c *Connection) Execute(ctx context.Context, cmd ir.Command) (*normalize.Response, error) {
	var res driver.Result
	err := c.observe(ctx, "Execute", cmd, func() error {
		var err error
		if cmd.IsRead() {
			res, err = c.drv.ExecuteReadCommand(ctx, cmd)
		} else {
			res, err = c.drv.ExecuteWriteCommand(ctx, cmd)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return normalize.Normalize(res), nil
}

// Run executes cmd and discards the result.
func (c *Connection) Run(ctx context.Context, cmd ir.Command) error {
	return c.observe(ctx, "Run", cmd, func() error {
		if cmd.IsRead() {
			return c.drv.RunReadCommand(ctx, cmd)
		}
		return c.drv.RunWriteCommand(ctx, cmd)
	})
}

// observe runs call with logging, metrics and error wrapping.
func (c *Connection) observe(ctx context.Context, op string, cmd ir.Command, call func() error) error {
	id := c.ids.Generate()
	seq := c.seq.Add(1)
	start := c.now()

	err := call()
	elapsed := c.now().Sub(start)

	if c.metrics != nil {
		c.metrics.ObserveCommand(c.Dialect(), cmd.RW, err, elapsed)
	}

	if err != nil {
		c.logger.ErrorContext(ctx, "command failed",
			"connection", c.name,
			"command_id", id,
			"seq", seq,
			"rw", cmd.RW,
			"script", cmd.Script,
			"error", err,
		)
		return ir.NewDriverError(op, c.Dialect(), cmd, err)
	}

	c.logger.DebugContext(ctx, "command executed",
		"connection", c.name,
		"command_id", id,
		"seq", seq,
		"rw", cmd.RW,
		"duration", elapsed,
	)
	return nil
}

// StartTransaction begins a transaction. It reports false when the driver
// has no transaction support.
func (c *Connection) StartTransaction(ctx context.Context) (bool, error) {
	ok, err := c.drv.StartTransaction(ctx)
	if err != nil {
		return false, &ir.Error{Code: ir.CodeDriverFailure, Op: "StartTransaction", Dialect: c.Dialect(), Err: err}
	}
	return ok, nil
}

// StopTransaction commits or rolls back the open transaction.
func (c *Connection) StopTransaction(ctx context.Context, commit bool) (bool, error) {
	ok, err := c.drv.StopTransaction(ctx, commit)
	if err != nil {
		return false, &ir.Error{Code: ir.CodeDriverFailure, Op: "StopTransaction", Dialect: c.Dialect(), Err: err}
	}
	return ok, nil
}
