package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/spider/connection"
	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/internal/testutil"
)

const adultsBag = `command: retrieve
target:
  name: person
where:
  - field: age
    comparator: GT
    value: 30
order_by:
  - field: name
`

// writeFile writes content under the test's temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seededSettings creates a sqlite database holding the modern graph and a
// settings file whose default connection points at it.
func seededSettings(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "graph.db")

	ctx := context.Background()
	conn, err := connection.New("seed", driver.Config{Driver: "sqlite", Path: dbPath},
		connection.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	require.NoError(t, conn.Open(ctx))
	_, err = conn.ExecuteBag(ctx, testutil.ModernGraphBag())
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	settings := "default: local\n" +
		"connections:\n" +
		"  local:\n" +
		"    driver: sqlite\n" +
		"    path: " + dbPath + "\n" +
		"  scratch:\n" +
		"    driver: sqlite\n" +
		"    path: " + filepath.Join(dir, "scratch.db") + "\n"
	path := filepath.Join(dir, "spider.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o644))
	return path
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
