// Package driver defines the capability interface every backend driver
// implements and the raw result model drivers return.
//
// The core never inspects driver internals. It hands a driver a compiled
// ir.Command, picks the read or write method from the command's RW tag, and
// passes the raw Result to the response normalizer. Driver-specific
// features outside this interface are reached through
// connection.Connection.Driver.
package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/roach88/spider/ir"
)

// Driver executes native commands against one backend.
//
// Cancellation and timeouts are carried by ctx; drivers stop waiting on
// the backend when ctx is done.
type Driver interface {
	// Open connects using cfg. Calling any other method before a successful
	// Open returns ErrNotOpen.
	Open(ctx context.Context, cfg Config) error

	// Close releases the connection. Closing a closed driver is a no-op.
	Close(ctx context.Context) error

	ExecuteReadCommand(ctx context.Context, cmd ir.Command) (Result, error)
	ExecuteWriteCommand(ctx context.Context, cmd ir.Command) (Result, error)

	// RunReadCommand and RunWriteCommand execute cmd and discard its result.
	RunReadCommand(ctx context.Context, cmd ir.Command) error
	RunWriteCommand(ctx context.Context, cmd ir.Command) error

	// StartTransaction begins a transaction. It reports false when the
	// backend has no transaction support.
	StartTransaction(ctx context.Context) (bool, error)

	// StopTransaction commits or rolls back the open transaction. It
	// reports false when there was nothing to stop.
	StopTransaction(ctx context.Context, commit bool) (bool, error)
}

var (
	// ErrNotOpen is returned by drivers used before Open or after Close.
	ErrNotOpen = errors.New("driver is not open")

	// ErrTransactionOpen is returned by StartTransaction while another
	// transaction is still open.
	ErrTransactionOpen = errors.New("a transaction is already open")
)

// Config is one connection definition.
type Config struct {
	// Driver is the driver alias: orientdb, gremlin, neo4j or sqlite.
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver"`

	// Dialect overrides the driver's default processor.
	Dialect string `mapstructure:"dialect" json:"dialect,omitempty" yaml:"dialect,omitempty"`

	Host     string `mapstructure:"host" json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" json:"port,omitempty" yaml:"port,omitempty"`
	Database string `mapstructure:"database" json:"database,omitempty" yaml:"database,omitempty"`
	Username string `mapstructure:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password string `mapstructure:"password" json:"-" yaml:"password,omitempty"`

	// Path is the database file of embedded backends.
	Path string `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`

	// Options holds driver-specific settings such as "scheme" or "timeout".
	Options map[string]any `mapstructure:"options" json:"options,omitempty" yaml:"options,omitempty"`
}

// BaseURL returns scheme://host:port for HTTP backends. Host defaults to
// localhost, port to defaultPort and the scheme to the "scheme" option or
// http.
func (c Config) BaseURL(defaultPort int) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	scheme := c.Option("scheme", "http")
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)))
}

// Option returns the string option key, or def when it is unset.
func (c Config) Option(key, def string) string {
	v, ok := c.Options[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
