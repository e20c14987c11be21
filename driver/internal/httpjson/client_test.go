package httpjson

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spider/driver"
)

func TestDo_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "root", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ping", in["q"])

		w.Write([]byte(`{"n": 42, "f": 1.5, "list": [1, 2.5]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client(), Username: "root", Password: "secret"}
	var out map[string]any
	_, err := c.Do(context.Background(), http.MethodPost, "/x", map[string]any{"q": "ping"}, &out)
	require.NoError(t, err)

	out = Value(out).(map[string]any)
	assert.Equal(t, int64(42), out["n"])
	assert.Equal(t, 1.5, out["f"])
	assert.Equal(t, []any{int64(1), 2.5}, out["list"])
}

func TestDo_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad script", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, se.Error(), "bad script")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(driver.Config{Host: "db", Options: map[string]any{"timeout": "2s", "scheme": "https"}}, 2480)
	require.NoError(t, err)
	assert.Equal(t, "https://db:2480", c.BaseURL)
	assert.Equal(t, "2s", c.HTTPClient.Timeout.String())

	_, err = NewClient(driver.Config{Options: map[string]any{"timeout": "soon"}}, 1)
	assert.Error(t, err)
}

func TestInt64(t *testing.T) {
	n, ok := Int64(json.Number("7"))
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = Int64(json.Number("7.5"))
	assert.False(t, ok)

	_, ok = Int64("7")
	assert.False(t, ok)
}
