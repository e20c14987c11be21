// Package orientdb drives an OrientDB server through its HTTP API.
//
// Every command is posted to /command/{database}/sql. Documents in the
// response keep their fields; the @rid, @version and @class metadata
// become the record's reference, revision and label.
package orientdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/driver/internal/httpjson"
	"github.com/roach88/spider/ir"
)

// DefaultPort is the OrientDB HTTP port.
const DefaultPort = 2480

// Driver is an OrientDB HTTP driver.
type Driver struct {
	mu       sync.Mutex
	client   *httpjson.Client
	database string
}

// New returns an unopened driver.
func New() *Driver {
	return &Driver{}
}

var _ driver.Driver = (*Driver)(nil)

// Open checks the credentials against the database.
func (d *Driver) Open(ctx context.Context, cfg driver.Config) error {
	if cfg.Database == "" {
		return fmt.Errorf("orientdb: database is required")
	}
	client, err := httpjson.NewClient(cfg, DefaultPort)
	if err != nil {
		return fmt.Errorf("orientdb: %w", err)
	}

	path := "/connect/" + url.PathEscape(cfg.Database)
	if _, err := client.Do(ctx, http.MethodGet, path, nil, nil); err != nil {
		return fmt.Errorf("orientdb: connect %s: %w", cfg.Database, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = client
	d.database = cfg.Database
	return nil
}

// Close forgets the server. The HTTP API holds no session to release.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = nil
	return nil
}

func (d *Driver) ExecuteReadCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return d.command(ctx, cmd)
}

func (d *Driver) ExecuteWriteCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return d.command(ctx, cmd)
}

func (d *Driver) RunReadCommand(ctx context.Context, cmd ir.Command) error {
	_, err := d.command(ctx, cmd)
	return err
}

func (d *Driver) RunWriteCommand(ctx context.Context, cmd ir.Command) error {
	_, err := d.command(ctx, cmd)
	return err
}

// StartTransaction reports false: the HTTP API runs each command in its
// own transaction.
func (d *Driver) StartTransaction(ctx context.Context) (bool, error) {
	if _, _, err := d.session(); err != nil {
		return false, err
	}
	return false, nil
}

func (d *Driver) StopTransaction(ctx context.Context, commit bool) (bool, error) {
	if _, _, err := d.session(); err != nil {
		return false, err
	}
	return false, nil
}

func (d *Driver) session() (*httpjson.Client, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil, "", driver.ErrNotOpen
	}
	return d.client, d.database, nil
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Result any `json:"result"`
}

func (d *Driver) command(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	client, database, err := d.session()
	if err != nil {
		return driver.Result{}, err
	}

	var resp commandResponse
	path := "/command/" + url.PathEscape(database) + "/sql"
	if _, err := client.Do(ctx, http.MethodPost, path, commandRequest{Command: cmd.Script}, &resp); err != nil {
		return driver.Result{}, fmt.Errorf("orientdb: %w", err)
	}
	return mapResult(resp.Result), nil
}

// mapResult converts the "result" member of a command response.
func mapResult(v any) driver.Result {
	switch val := httpjson.Value(v).(type) {
	case nil:
		return driver.Empty()
	case []any:
		records := make([]driver.NativeRecord, 0, len(val))
		for _, item := range val {
			doc, ok := item.(map[string]any)
			if !ok {
				doc = map[string]any{"value": item}
			}
			records = append(records, mapDocument(doc))
		}
		return driver.Set(records...)
	case map[string]any:
		return driver.Single(mapDocument(val))
	default:
		return driver.Scalar(val)
	}
}

// mapDocument splits a document into fields and @-metadata.
func mapDocument(doc map[string]any) *driver.Record {
	rec := &driver.Record{Data: make(map[string]any, len(doc))}
	for k, v := range doc {
		if !strings.HasPrefix(k, "@") {
			rec.Data[k] = v
		}
	}

	if rid, ok := doc["@rid"].(string); ok && isPersistent(rid) {
		rec.NativeRef = rid
	}
	if v, ok := httpjson.Int64(doc["@version"]); ok {
		rec.Rev = v
		rec.HasRev = true
	}
	if class, ok := doc["@class"].(string); ok {
		rec.Class = class
	}
	return rec
}

// isPersistent reports whether rid names a stored record. Projections
// come back with temporary ids such as #-2:0.
func isPersistent(rid string) bool {
	return strings.HasPrefix(rid, "#") && !strings.HasPrefix(rid, "#-")
}
