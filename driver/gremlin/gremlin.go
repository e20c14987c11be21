// Package gremlin drives a TinkerPop Gremlin Server over its HTTP
// endpoint.
//
// Scripts are posted as {"gremlin": script}. Results may be typed
// GraphSON 3 or untyped JSON; both are reduced to plain values. Element
// maps and vertices become records whose id and label are the record's
// reference and label.
package gremlin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/driver/internal/httpjson"
	"github.com/roach88/spider/ir"
)

// DefaultPort is the Gremlin Server port.
const DefaultPort = 8182

// Driver is a Gremlin Server HTTP driver.
type Driver struct {
	mu     sync.Mutex
	client *httpjson.Client
}

// New returns an unopened driver.
func New() *Driver {
	return &Driver{}
}

var _ driver.Driver = (*Driver)(nil)

// Open checks the server answers a trivial traversal.
func (d *Driver) Open(ctx context.Context, cfg driver.Config) error {
	client, err := httpjson.NewClient(cfg, DefaultPort)
	if err != nil {
		return fmt.Errorf("gremlin: %w", err)
	}
	if _, err := submit(ctx, client, "g.inject(0)"); err != nil {
		return fmt.Errorf("gremlin: connect: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = client
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = nil
	return nil
}

func (d *Driver) ExecuteReadCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return d.execute(ctx, cmd)
}

func (d *Driver) ExecuteWriteCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return d.execute(ctx, cmd)
}

func (d *Driver) RunReadCommand(ctx context.Context, cmd ir.Command) error {
	_, err := d.execute(ctx, cmd)
	return err
}

func (d *Driver) RunWriteCommand(ctx context.Context, cmd ir.Command) error {
	_, err := d.execute(ctx, cmd)
	return err
}

// StartTransaction reports false: sessionless HTTP requests commit on
// their own.
func (d *Driver) StartTransaction(ctx context.Context) (bool, error) {
	if _, err := d.conn(); err != nil {
		return false, err
	}
	return false, nil
}

func (d *Driver) StopTransaction(ctx context.Context, commit bool) (bool, error) {
	if _, err := d.conn(); err != nil {
		return false, err
	}
	return false, nil
}

func (d *Driver) conn() (*httpjson.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil, driver.ErrNotOpen
	}
	return d.client, nil
}

func (d *Driver) execute(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	client, err := d.conn()
	if err != nil {
		return driver.Result{}, err
	}
	data, err := submit(ctx, client, cmd.Script)
	if err != nil {
		return driver.Result{}, fmt.Errorf("gremlin: %w", err)
	}
	return mapResult(data), nil
}

type request struct {
	Gremlin string `json:"gremlin"`
}

type response struct {
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Result struct {
		Data any `json:"data"`
	} `json:"result"`
}

// submit posts one script and returns the untyped result data.
func submit(ctx context.Context, client *httpjson.Client, script string) (any, error) {
	var resp response
	if _, err := client.Do(ctx, http.MethodPost, "/", request{Gremlin: script}, &resp); err != nil {
		return nil, err
	}
	if code := resp.Status.Code; code != 0 && (code < 200 || code > 299) {
		return nil, fmt.Errorf("status %d: %s", code, resp.Status.Message)
	}
	return untype(resp.Result.Data), nil
}

// mapResult converts result data, which is a list for every traversal.
func mapResult(data any) driver.Result {
	switch val := data.(type) {
	case nil:
		return driver.Empty()
	case []any:
		if len(val) == 0 {
			return driver.Empty()
		}
		if !allElements(val) {
			if len(val) == 1 {
				return driver.Scalar(val[0])
			}
			return driver.Scalar(val)
		}
		records := make([]driver.NativeRecord, len(val))
		for i, item := range val {
			records[i] = mapElement(item.(map[string]any))
		}
		return driver.Set(records...)
	case map[string]any:
		return driver.Single(mapElement(val))
	default:
		return driver.Scalar(val)
	}
}

func allElements(items []any) bool {
	for _, item := range items {
		if _, ok := item.(map[string]any); !ok {
			return false
		}
	}
	return true
}

// mapElement converts an element map or a vertex. Vertices carry their
// fields as property lists; only the first value of each is kept.
func mapElement(m map[string]any) *driver.Record {
	rec := &driver.Record{Data: make(map[string]any, len(m))}

	if props, ok := m["properties"].(map[string]any); ok {
		for k, p := range props {
			rec.Data[k] = propertyValue(p)
		}
	} else {
		for k, v := range m {
			if k != "id" && k != "label" {
				rec.Data[k] = v
			}
		}
	}

	if id, ok := m["id"]; ok && id != nil {
		rec.NativeRef = id
	}
	if label, ok := m["label"].(string); ok {
		rec.Class = label
	}
	return rec
}

func propertyValue(p any) any {
	list, ok := p.([]any)
	if !ok || len(list) == 0 {
		return p
	}
	if vp, ok := list[0].(map[string]any); ok {
		if v, ok := vp["value"]; ok {
			return v
		}
	}
	return list[0]
}
