package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordsResponse struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
	Error  *CLIError        `json:"error"`
}

func TestQueryText(t *testing.T) {
	settings := seededSettings(t)
	bagPath := writeFile(t, "adults.yaml", adultsBag)

	out, _, err := run(t, "--config", settings, "query", bagPath)
	require.NoError(t, err)

	assert.Contains(t, out, "josh")
	assert.Contains(t, out, "peter")
	assert.NotContains(t, out, "marko")
	assert.Contains(t, out, "2 record(s)")
}

func TestQueryJSON(t *testing.T) {
	settings := seededSettings(t)
	bagPath := writeFile(t, "adults.yaml", adultsBag)

	out, _, err := run(t, "--format", "json", "--config", settings, "query", "--connection", "local", bagPath)
	require.NoError(t, err)

	var resp recordsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "josh", resp.Data[0]["name"])
	assert.Equal(t, float64(32), resp.Data[0]["age"])
	assert.Equal(t, "person", resp.Data[0]["label"])
	assert.Equal(t, float64(1), resp.Data[0]["version"])
	assert.Equal(t, "peter", resp.Data[1]["name"])
}

func TestQueryEmptyConnection(t *testing.T) {
	settings := seededSettings(t)
	bagPath := writeFile(t, "adults.yaml", adultsBag)

	out, _, err := run(t, "--config", settings, "query", "--connection", "scratch", bagPath)
	require.NoError(t, err)
	assert.Equal(t, "(no records)\n", out)
}

func TestQueryVerboseLogsAndMetrics(t *testing.T) {
	settings := seededSettings(t)
	bagPath := writeFile(t, "adults.yaml", adultsBag)

	_, stderr, err := run(t, "-v", "--config", settings, "query", "--metrics", bagPath)
	require.NoError(t, err)

	assert.Contains(t, stderr, "msg=\"command compiled\"")
	assert.Contains(t, stderr, "msg=\"command executed\"")
	assert.Contains(t, stderr, "connection=local")
	assert.Contains(t, stderr, `spider_commands_total{dialect="sqlite",outcome="ok",rw="read"} 1`)
	assert.Contains(t, stderr, "spider_command_duration_seconds_count")
}

func TestQueryErrors(t *testing.T) {
	settings := seededSettings(t)
	adults := writeFile(t, "adults.yaml", adultsBag)
	regex := writeFile(t, "regex.yaml", "command: retrieve\ntarget:\n  name: person\nwhere:\n  - field: name\n    comparator: REGEX\n    value: ^m\n")

	tests := []struct {
		name string
		args []string
		code string
		exit int
	}{
		{"no config", []string{"query", adults}, ErrCodeMissingConfig, ExitCommandError},
		{"missing config", []string{"--config", "nope.yaml", "query", adults}, ErrCodeNotFound, ExitCommandError},
		{"unknown connection", []string{"--config", settings, "query", "--connection", "missing", adults}, ErrCodeNoConnection, ExitCommandError},
		{"missing bag", []string{"--config", settings, "query", "missing.yaml"}, ErrCodeNotFound, ExitCommandError},
		{"unsupported", []string{"--config", settings, "query", regex}, ErrCodeCompileFailed, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))

			var resp recordsResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
