package testutil

import (
	"net"
	"net/url"
	"strconv"
	"testing"

	"github.com/roach88/spider/driver"
)

// ServerConfig points cfg at a test server URL such as httptest.Server.URL.
func ServerConfig(t testing.TB, serverURL string, cfg driver.Config) driver.Config {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	host, portText, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	cfg.Host = host
	cfg.Port = port
	return cfg
}
