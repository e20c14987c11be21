package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/ir"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// vertexColumns is the row shape that maps to native records.
var vertexColumns = []string{"rid", "label", "version", "data"}

// Driver runs compiled SQL against an embedded SQLite database.
type Driver struct {
	mu sync.Mutex
	db *sql.DB
	tx *sql.Tx
}

// New returns an unopened driver.
func New() *Driver {
	return &Driver{}
}

var _ driver.Driver = (*Driver)(nil)

// Open opens the database file named by cfg.Path, falling back to
// cfg.Database and then to an in-memory database.
func (d *Driver) Open(ctx context.Context, cfg driver.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return nil
	}

	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = MemoryPath
	}

	db, err := openDB(path)
	if err != nil {
		return err
	}
	d.db = db
	return nil
}

// Close rolls back any open transaction and closes the database.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	if d.tx != nil {
		_ = d.tx.Rollback()
		d.tx = nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// DB returns the underlying database handle, or nil when closed.
func (d *Driver) DB() *sql.DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *Driver) conn() (queryer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, driver.ErrNotOpen
	}
	if d.tx != nil {
		return d.tx, nil
	}
	return d.db, nil
}

func (d *Driver) ExecuteReadCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return d.query(ctx, cmd)
}

func (d *Driver) ExecuteWriteCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return d.query(ctx, cmd)
}

func (d *Driver) RunReadCommand(ctx context.Context, cmd ir.Command) error {
	return d.exec(ctx, cmd)
}

func (d *Driver) RunWriteCommand(ctx context.Context, cmd ir.Command) error {
	return d.exec(ctx, cmd)
}

func (d *Driver) query(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	q, err := d.conn()
	if err != nil {
		return driver.Result{}, err
	}

	rows, err := q.QueryContext(ctx, cmd.Script)
	if err != nil {
		return driver.Result{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return driver.Result{}, err
	}
	return driver.Set(records...), nil
}

func (d *Driver) exec(ctx context.Context, cmd ir.Command) error {
	q, err := d.conn()
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, cmd.Script); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// StartTransaction begins a transaction that every following command runs
// in until StopTransaction.
func (d *Driver) StartTransaction(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return false, driver.ErrNotOpen
	}
	if d.tx != nil {
		return false, driver.ErrTransactionOpen
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	d.tx = tx
	return true, nil
}

func (d *Driver) StopTransaction(ctx context.Context, commit bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return false, driver.ErrNotOpen
	}
	if d.tx == nil {
		return false, nil
	}

	tx := d.tx
	d.tx = nil
	if commit {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit transaction: %w", err)
		}
		return true, nil
	}
	if err := tx.Rollback(); err != nil {
		return false, fmt.Errorf("rollback transaction: %w", err)
	}
	return true, nil
}

// scanRows reads every row. Returns empty slice (not nil) if no rows.
func scanRows(rows *sql.Rows) ([]driver.NativeRecord, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	vertex := slices.Equal(cols, vertexColumns)

	records := []driver.NativeRecord{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		var rec *driver.Record
		if vertex {
			rec, err = vertexRecord(vals)
		} else {
			rec = rowRecord(cols, vals)
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// vertexRecord maps a rid, label, version, data row.
func vertexRecord(vals []any) (*driver.Record, error) {
	rid, ok := vals[0].(int64)
	if !ok {
		return nil, fmt.Errorf("rid: expected integer, got %T", vals[0])
	}
	version, _ := vals[2].(int64)

	data, err := decodeData(vals[3])
	if err != nil {
		return nil, fmt.Errorf("vertex %d: %w", rid, err)
	}

	return &driver.Record{
		Data:      data,
		NativeRef: rid,
		Rev:       version,
		HasRev:    true,
		Class:     columnText(vals[1]),
	}, nil
}

// rowRecord maps any other row shape column by column.
func rowRecord(cols []string, vals []any) *driver.Record {
	data := make(map[string]any, len(cols))
	for i, col := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		data[col] = v
	}
	return &driver.Record{Data: data}
}

func columnText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

// decodeData parses the data document. Integers stay int64 so values
// written as integers read back as integers.
func decodeData(v any) (map[string]any, error) {
	var raw []byte
	switch s := v.(type) {
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("data: expected text, got %T", v)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	for k, val := range doc {
		doc[k] = fromJSON(val)
	}
	return doc, nil
}

// fromJSON converts json.Number values produced by UseNumber.
func fromJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, x := range val {
			val[k] = fromJSON(x)
		}
		return val
	case []any:
		for i, x := range val {
			val[i] = fromJSON(x)
		}
		return val
	default:
		return v
	}
}
