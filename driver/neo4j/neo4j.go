// Package neo4j drives a Neo4j server through the HTTP transactional
// Cypher API.
//
// Outside a transaction each command is sent to /db/{database}/tx/commit.
// StartTransaction opens an explicit transaction; following commands run
// in it until StopTransaction commits it or rolls it back.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/driver/internal/httpjson"
	"github.com/roach88/spider/ir"
)

// DefaultPort is the Neo4j HTTP port.
const DefaultPort = 7474

// DefaultDatabase is used when the configuration names none.
const DefaultDatabase = "neo4j"

// Driver is a Neo4j HTTP driver. Transaction state is per driver.
type Driver struct {
	mu       sync.Mutex
	client   *httpjson.Client
	database string

	// txPath is the open transaction's path, "" when none is open.
	txPath string
}

// New returns an unopened driver.
func New() *Driver {
	return &Driver{}
}

var _ driver.Driver = (*Driver)(nil)

func (d *Driver) Open(ctx context.Context, cfg driver.Config) error {
	client, err := httpjson.NewClient(cfg, DefaultPort)
	if err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	database := cfg.Database
	if database == "" {
		database = DefaultDatabase
	}

	if _, err := post(ctx, client, dbPath(database)+"/tx/commit", "RETURN 1"); err != nil {
		return fmt.Errorf("neo4j: connect %s: %w", database, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = client
	d.database = database
	d.txPath = ""
	return nil
}

// Close rolls back an open transaction before forgetting the server.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}
	var err error
	if d.txPath != "" {
		_, err = d.client.Do(ctx, http.MethodDelete, d.txPath, nil, nil)
		d.txPath = ""
	}
	d.client = nil
	return err
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

func (d *Driver) execute(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return driver.Result{}, driver.ErrNotOpen
	}
	path := dbPath(d.database) + "/tx/commit"
	if d.txPath != "" {
		path = d.txPath
	}

	res, err := post(ctx, d.client, path, cmd.Script)
	if err != nil {
		return driver.Result{}, fmt.Errorf("neo4j: %w", err)
	}
	return mapResult(res), nil
}

// StartTransaction opens an explicit transaction.
func (d *Driver) StartTransaction(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return false, driver.ErrNotOpen
	}
	if d.txPath != "" {
		return false, driver.ErrTransactionOpen
	}

	var resp txResponse
	header, err := d.client.Do(ctx, http.MethodPost, dbPath(d.database)+"/tx", txRequest{Statements: []statement{}}, &resp)
	if err != nil {
		return false, fmt.Errorf("neo4j: begin transaction: %w", err)
	}
	if err := resp.err(); err != nil {
		return false, fmt.Errorf("neo4j: begin transaction: %w", err)
	}

	location := header.Get("Location")
	if location == "" {
		return false, errors.New("neo4j: begin transaction: no Location header")
	}
	u, err := url.Parse(location)
	if err != nil {
		return false, fmt.Errorf("neo4j: begin transaction: %w", err)
	}
	d.txPath = u.Path
	return true, nil
}

// StopTransaction commits or rolls back the open transaction.
func (d *Driver) StopTransaction(ctx context.Context, commit bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return false, driver.ErrNotOpen
	}
	if d.txPath == "" {
		return false, nil
	}

	path := d.txPath
	d.txPath = ""
	if commit {
		if _, err := post(ctx, d.client, path+"/commit", ""); err != nil {
			return false, fmt.Errorf("neo4j: commit: %w", err)
		}
		return true, nil
	}
	if _, err := d.client.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return false, fmt.Errorf("neo4j: rollback: %w", err)
	}
	return true, nil
}

func dbPath(database string) string {
	return "/db/" + url.PathEscape(database)
}

type statement struct {
	Statement          string   `json:"statement"`
	ResultDataContents []string `json:"resultDataContents,omitempty"`
}

type txRequest struct {
	Statements []statement `json:"statements"`
}

type txNode struct {
	ID        string   `json:"id"`
	ElementID string   `json:"elementId"`
	Labels    []string `json:"labels"`
}

type txRow struct {
	Row   []any `json:"row"`
	Meta  []any `json:"meta"`
	Graph struct {
		Nodes []txNode `json:"nodes"`
	} `json:"graph"`
}

type txResult struct {
	Columns []string `json:"columns"`
	Data    []txRow  `json:"data"`
}

type txError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type txResponse struct {
	Results []txResult `json:"results"`
	Errors  []txError  `json:"errors"`
}

func (r *txResponse) err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Code + ": " + e.Message
	}
	return errors.New(strings.Join(msgs, "; "))
}

// post sends one statement, or none when script is "".
func post(ctx context.Context, client *httpjson.Client, path, script string) (*txResult, error) {
	req := txRequest{Statements: []statement{}}
	if script != "" {
		req.Statements = append(req.Statements, statement{Statement: script, ResultDataContents: []string{"row", "graph"}})
	}

	var resp txResponse
	if _, err := client.Do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &txResult{}, nil
	}
	return &resp.Results[0], nil
}

// mapResult converts the rows of one statement. A single node column
// becomes node records; any other shape becomes column records.
func mapResult(res *txResult) driver.Result {
	if len(res.Data) == 0 {
		return driver.Empty()
	}

	records := make([]driver.NativeRecord, 0, len(res.Data))
	for _, row := range res.Data {
		values := make([]any, len(row.Row))
		for i, v := range row.Row {
			values[i] = httpjson.Value(v)
		}

		if len(res.Columns) == 1 && len(values) == 1 {
			if props, ok := values[0].(map[string]any); ok && len(row.Meta) == 1 {
				if meta, ok := row.Meta[0].(map[string]any); ok && meta["type"] == "node" {
					rec := &driver.Record{Data: props}
					rec.NativeRef, rec.RefText = nodeRef(meta)
					for _, n := range row.Graph.Nodes {
						if n.ElementID == meta["elementId"] || n.ID == rec.RefString() {
							if len(n.Labels) > 0 {
								rec.Class = n.Labels[0]
							}
							break
						}
					}
					records = append(records, rec)
					continue
				}
			}
		}

		data := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			if i < len(values) {
				data[col] = values[i]
			}
		}
		records = append(records, &driver.Record{Data: data})
	}
	return driver.Set(records...)
}

// nodeRef prefers the integer id, which the cypher dialect matches with
// id(n); elementId is the fallback for servers that omit it.
func nodeRef(meta map[string]any) (any, string) {
	if id, ok := httpjson.Int64(meta["id"]); ok {
		return id, ""
	}
	if eid, ok := meta["elementId"].(string); ok {
		return eid, eid
	}
	return nil, ""
}
