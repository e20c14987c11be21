// Package httpjson is the JSON-over-HTTP client shared by the server
// drivers.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/spider/driver"
)

// DefaultTimeout bounds one request when the "timeout" option is unset.
const DefaultTimeout = 30 * time.Second

// Client sends JSON requests to one server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Username   string
	Password   string
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.Status, body)
}

// NewClient builds a client from cfg. The "timeout" option takes a Go
// duration string.
func NewClient(cfg driver.Config, defaultPort int) (*Client, error) {
	timeout := DefaultTimeout
	if s := cfg.Option("timeout", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("timeout option: %w", err)
		}
		timeout = d
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(cfg.BaseURL(defaultPort), "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Username:   cfg.Username,
		Password:   cfg.Password,
	}, nil
}

// Do sends in as the JSON body (nil sends none) and decodes the response
// into out (nil discards it). It returns the response headers.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) (http.Header, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return resp.Header, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// Value converts json.Number values decoded with UseNumber into int64 or
// float64, recursively.
func Value(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, x := range val {
			val[k] = Value(x)
		}
		return val
	case []any:
		for i, x := range val {
			val[i] = Value(x)
		}
		return val
	default:
		return v
	}
}

// Int64 reads an integer-valued JSON number.
func Int64(v any) (int64, bool) {
	switch n := Value(v).(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}
