package orientdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/internal/testutil"
	"github.com/roach88/spider/ir"
)

// fakeServer answers /connect and /command with a canned result body.
func fakeServer(t *testing.T, result string, scripts *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /connect/{db}", func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		if r.PathValue("db") != "graph" || user != "root" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /command/{db}/sql", func(w http.ResponseWriter, r *http.Request) {
		var req commandRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if scripts != nil {
			*scripts = append(*scripts, req.Command)
		}
		if req.Command == "BROKEN" {
			http.Error(w, `{"errors":[{"code":500,"content":"syntax error"}]}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(result))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func configFor(t *testing.T, srv *httptest.Server) driver.Config {
	return testutil.ServerConfig(t, srv.URL, driver.Config{
		Driver: "orientdb", Database: "graph", Username: "root", Password: "secret",
	})
}

func openDriver(t *testing.T, srv *httptest.Server) *Driver {
	t.Helper()
	d := New()
	require.NoError(t, d.Open(context.Background(), configFor(t, srv)))
	return d
}

func TestOpen_BadCredentials(t *testing.T) {
	srv := fakeServer(t, `{"result":[]}`, nil)
	cfg := configFor(t, srv)
	cfg.Password = "wrong"

	err := New().Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "401")
}

func TestOpen_NeedsDatabase(t *testing.T) {
	err := New().Open(context.Background(), driver.Config{Driver: "orientdb"})
	assert.ErrorContains(t, err, "database is required")
}

func TestExecute_MapsDocuments(t *testing.T) {
	var scripts []string
	srv := fakeServer(t, `{"result":[
		{"@type":"d","@rid":"#12:1","@version":3,"@class":"person","name":"marko","age":29},
		{"@type":"d","@rid":"#12:2","@version":1,"@class":"person","name":"vadas","age":27.5}
	]}`, &scripts)
	d := openDriver(t, srv)

	res, err := d.ExecuteReadCommand(context.Background(), ir.NewReadCommand("SELECT FROM person", ir.LanguageOrientSQL))
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT FROM person"}, scripts)
	assert.Equal(t, driver.KindSet, res.Kind)
	require.Len(t, res.Records, 2)

	marko := res.Records[0]
	assert.Equal(t, "#12:1", marko.Ref())
	assert.Equal(t, "#12:1", marko.RefString())
	version, ok := marko.Version()
	assert.True(t, ok)
	assert.Equal(t, int64(3), version)
	label, _ := marko.Label()
	assert.Equal(t, "person", label)
	assert.Equal(t, map[string]any{"name": "marko", "age": int64(29)}, marko.Fields())
	assert.Equal(t, 27.5, res.Records[1].Fields()["age"])
}

func TestExecute_SingleElementStaysSet(t *testing.T) {
	srv := fakeServer(t, `{"result":[{"@rid":"#12:1","name":"marko"}]}`, nil)
	d := openDriver(t, srv)

	res, err := d.ExecuteWriteCommand(context.Background(), ir.NewCommand("INSERT INTO person CONTENT {}", ir.LanguageOrientSQL))
	require.NoError(t, err)
	assert.Equal(t, driver.KindSet, res.Kind)
	assert.Len(t, res.Records, 1)
}

func TestExecute_TemporaryRID(t *testing.T) {
	srv := fakeServer(t, `{"result":[{"@rid":"#-2:0","@version":0,"name":"marko"}]}`, nil)
	d := openDriver(t, srv)

	res, err := d.ExecuteReadCommand(context.Background(), ir.NewReadCommand("SELECT name FROM person", ir.LanguageOrientSQL))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Nil(t, res.Records[0].Ref())
}

func TestExecute_EmptyAndScalar(t *testing.T) {
	srv := fakeServer(t, `{"result":[]}`, nil)
	res, err := openDriver(t, srv).ExecuteReadCommand(context.Background(), ir.NewReadCommand("SELECT FROM nobody", ir.LanguageOrientSQL))
	require.NoError(t, err)
	assert.Equal(t, driver.KindEmpty, res.Kind)

	assert.Equal(t, driver.Scalar(int64(4)), mapResult(json.Number("4")))
	assert.Equal(t, driver.KindRecord, mapResult(map[string]any{"@rid": "#1:1"}).Kind)
	assert.Equal(t, driver.KindEmpty, mapResult(nil).Kind)
}

func TestExecute_ServerError(t *testing.T) {
	srv := fakeServer(t, `{"result":[]}`, nil)
	d := openDriver(t, srv)

	err := d.RunWriteCommand(context.Background(), ir.NewCommand("BROKEN", ir.LanguageOrientSQL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestNotOpen(t *testing.T) {
	d := New()
	_, err := d.ExecuteReadCommand(context.Background(), ir.NewReadCommand("SELECT FROM person", ir.LanguageOrientSQL))
	assert.ErrorIs(t, err, driver.ErrNotOpen)
}

func TestTransactionsUnsupported(t *testing.T) {
	srv := fakeServer(t, `{"result":[]}`, nil)
	d := openDriver(t, srv)

	ok, err := d.StartTransaction(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Close(context.Background()))
	_, err = d.StopTransaction(context.Background(), true)
	assert.ErrorIs(t, err, driver.ErrNotOpen)
}
