package neo4j

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/internal/testutil"
	"github.com/roach88/spider/ir"
)

const nodeBody = `{"results":[{"columns":["n"],"data":[
	{"row":[{"name":"marko","age":29}],"meta":[{"id":1,"elementId":"4:abc:1","type":"node","deleted":false}],
	 "graph":{"nodes":[{"id":"1","elementId":"4:abc:1","labels":["person"],"properties":{}}]}}
]}],"errors":[]}`

// fakeServer records requests by method and path and answers from
// routes; unknown routes get an empty result.
type fakeServer struct {
	mu     sync.Mutex
	calls  []string
	bodies map[string]string
	srv    *httptest.Server
}

func newFakeServer(t *testing.T, bodies map[string]string) *fakeServer {
	t.Helper()
	f := &fakeServer{bodies: bodies}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		var req txRequest
		if r.Method == http.MethodPost {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			for _, s := range req.Statements {
				key += " " + s.Statement
			}
		}

		f.mu.Lock()
		f.calls = append(f.calls, key)
		f.mu.Unlock()

		if key == "POST /db/neo4j/tx" {
			w.Header().Set("Location", f.srv.URL+"/db/neo4j/tx/7")
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"results":[],"errors":[]}`)
			return
		}
		if body, ok := f.bodies[key]; ok {
			io.WriteString(w, body)
			return
		}
		io.WriteString(w, `{"results":[{"columns":[],"data":[]}],"errors":[]}`)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func openDriver(t *testing.T, f *fakeServer) *Driver {
	t.Helper()
	d := New()
	require.NoError(t, d.Open(context.Background(), testutil.ServerConfig(t, f.srv.URL, driver.Config{Driver: "neo4j"})))
	return d
}

func TestExecute_NodeRecords(t *testing.T) {
	script := "MATCH (n:person) RETURN n"
	f := newFakeServer(t, map[string]string{"POST /db/neo4j/tx/commit " + script: nodeBody})
	d := openDriver(t, f)

	res, err := d.ExecuteReadCommand(context.Background(), ir.NewReadCommand(script, ir.LanguageCypher))
	require.NoError(t, err)
	assert.Equal(t, driver.KindSet, res.Kind)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, int64(1), rec.Ref())
	assert.Equal(t, "1", rec.RefString())
	label, _ := rec.Label()
	assert.Equal(t, "person", label)
	assert.Equal(t, map[string]any{"name": "marko", "age": int64(29)}, rec.Fields())
}

func TestExecute_ColumnRecords(t *testing.T) {
	script := "MATCH (n:person) RETURN n.name AS name, n.age AS age"
	f := newFakeServer(t, map[string]string{
		"POST /db/neo4j/tx/commit " + script: `{"results":[{"columns":["name","age"],"data":[
			{"row":["marko",29],"meta":[null,null]},
			{"row":["vadas",27.5],"meta":[null,null]}
		]}],"errors":[]}`,
	})
	d := openDriver(t, f)

	res, err := d.ExecuteReadCommand(context.Background(), ir.NewReadCommand(script, ir.LanguageCypher))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Nil(t, res.Records[0].Ref())
	assert.Equal(t, map[string]any{"name": "marko", "age": int64(29)}, res.Records[0].Fields())
	assert.Equal(t, 27.5, res.Records[1].Fields()["age"])
}

func TestExecute_ElementIDFallback(t *testing.T) {
	res := mapResult(&txResult{
		Columns: []string{"n"},
		Data: []txRow{
			{Row: []any{map[string]any{"name": "josh"}}, Meta: []any{map[string]any{"elementId": "4:x:9", "type": "node"}}},
		},
	})
	require.Len(t, res.Records, 1)
	assert.Equal(t, "4:x:9", res.Records[0].Ref())
	assert.Equal(t, "4:x:9", res.Records[0].RefString())
}

func TestExecute_Empty(t *testing.T) {
	f := newFakeServer(t, nil)
	d := openDriver(t, f)

	res, err := d.ExecuteWriteCommand(context.Background(), ir.NewCommand("MATCH (n) DETACH DELETE n", ir.LanguageCypher))
	require.NoError(t, err)
	assert.Equal(t, driver.KindEmpty, res.Kind)
}

func TestExecute_CypherError(t *testing.T) {
	f := newFakeServer(t, map[string]string{
		"POST /db/neo4j/tx/commit BAD": `{"results":[],"errors":[{"code":"Neo.ClientError.Statement.SyntaxError","message":"Invalid input"}]}`,
	})
	d := openDriver(t, f)

	err := d.RunWriteCommand(context.Background(), ir.NewCommand("BAD", ir.LanguageCypher))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Neo.ClientError.Statement.SyntaxError: Invalid input")
}

func TestTransaction_Commit(t *testing.T) {
	f := newFakeServer(t, nil)
	d := openDriver(t, f)
	ctx := context.Background()

	ok, err := d.StartTransaction(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.StartTransaction(ctx)
	assert.ErrorIs(t, err, driver.ErrTransactionOpen)

	require.NoError(t, d.RunWriteCommand(ctx, ir.NewCommand("CREATE (n:person)", ir.LanguageCypher)))

	ok, err = d.StopTransaction(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{
		"POST /db/neo4j/tx/commit RETURN 1",
		"POST /db/neo4j/tx",
		"POST /db/neo4j/tx/7 CREATE (n:person)",
		"POST /db/neo4j/tx/7/commit",
	}, f.Calls())
}

func TestTransaction_Rollback(t *testing.T) {
	f := newFakeServer(t, nil)
	d := openDriver(t, f)
	ctx := context.Background()

	_, err := d.StartTransaction(ctx)
	require.NoError(t, err)

	ok, err := d.StopTransaction(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.StopTransaction(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	calls := f.Calls()
	assert.Equal(t, "DELETE /db/neo4j/tx/7", calls[len(calls)-1])
}

func TestClose_RollsBackOpenTransaction(t *testing.T) {
	f := newFakeServer(t, nil)
	d := openDriver(t, f)
	ctx := context.Background()

	_, err := d.StartTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Close(ctx))

	calls := f.Calls()
	assert.Equal(t, "DELETE /db/neo4j/tx/7", calls[len(calls)-1])

	_, err = d.ExecuteReadCommand(ctx, ir.NewReadCommand("RETURN 1", ir.LanguageCypher))
	assert.ErrorIs(t, err, driver.ErrNotOpen)
}

func TestOpen_CustomDatabase(t *testing.T) {
	f := newFakeServer(t, nil)
	cfg := testutil.ServerConfig(t, f.srv.URL, driver.Config{Driver: "neo4j", Database: "movies"})
	require.NoError(t, New().Open(context.Background(), cfg))
	assert.Equal(t, []string{"POST /db/movies/tx/commit RETURN 1"}, f.Calls())
}
