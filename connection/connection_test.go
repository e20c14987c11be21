package connection

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/internal/testutil"
	"github.com/roach88/spider/ir"
)

type observation struct {
	dialect string
	rw      ir.RW
	failed  bool
	elapsed time.Duration
}

type fakeRecorder struct {
	seen []observation
}

func (f *fakeRecorder) ObserveCommand(dialect string, rw ir.RW, err error, d time.Duration) {
	f.seen = append(f.seen, observation{dialect, rw, err != nil, d})
}

func stubConnection(t *testing.T, stub *testutil.StubDriver, opts ...Option) *Connection {
	t.Helper()
	opts = append([]Option{WithDriver(stub)}, opts...)
	c, err := New("test", driver.Config{Driver: "stub", Dialect: "cypher"}, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background()))
	return c
}

func TestNew_ResolvesDriverAndDialect(t *testing.T) {
	tests := []struct {
		driver  string
		dialect string
		want    string
	}{
		{"orientdb", "", "orientsql"},
		{"gremlin", "", "gremlin"},
		{"neo4j", "", "cypher"},
		{"sqlite", "", "sqlite"},
		{"Neo4j", "", "cypher"},
		{"gremlin", "gremlin-groovy", "gremlin"},
		{"neo4j", "orientdb", "orientsql"},
	}
	for _, tt := range tests {
		t.Run(tt.driver+"/"+tt.dialect, func(t *testing.T) {
			c, err := New("x", driver.Config{Driver: tt.driver, Dialect: tt.dialect})
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Dialect())
			assert.NotNil(t, c.Driver())
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New("x", driver.Config{})
	assert.True(t, ir.IsInvalidArgument(err))
	assert.ErrorContains(t, err, `connection "x" has no driver`)

	_, err = New("x", driver.Config{Driver: "mongo"})
	assert.True(t, ir.IsInvalidArgument(err))
	assert.ErrorContains(t, err, "known: gremlin, neo4j, orientdb, sqlite")

	_, err = New("x", driver.Config{Driver: "custom"}, WithDriver(testutil.NewStubDriver()))
	assert.ErrorContains(t, err, "needs a dialect")

	_, err = New("x", driver.Config{Driver: "sqlite", Dialect: "sparql"})
	assert.True(t, ir.IsInvalidArgument(err))
}

func TestExecute_RoutesOnRW(t *testing.T) {
	stub := testutil.NewStubDriver()
	c := stubConnection(t, stub)
	ctx := context.Background()

	_, err := c.Execute(ctx, ir.NewReadCommand("MATCH (n) RETURN n", ir.LanguageCypher))
	require.NoError(t, err)
	_, err = c.Execute(ctx, ir.NewCommand("CREATE (n)", ir.LanguageCypher))
	require.NoError(t, err)
	require.NoError(t, c.Run(ctx, ir.NewReadCommand("RETURN 1", ir.LanguageCypher)))
	require.NoError(t, c.Run(ctx, ir.Command{Script: "CREATE (m)"}))

	methods := make([]string, len(stub.Calls))
	for i, call := range stub.Calls {
		methods[i] = call.Method
	}
	assert.Equal(t, []string{"ExecuteReadCommand", "ExecuteWriteCommand", "RunReadCommand", "RunWriteCommand"}, methods)
}

func TestExecute_Normalizes(t *testing.T) {
	stub := testutil.NewStubDriver(driver.Set(
		testutil.NewRecord(1, "person", map[string]any{"name": "marko"}),
	))
	c := stubConnection(t, stub)

	resp, err := c.Execute(context.Background(), ir.NewReadCommand("MATCH (n) RETURN n", ir.LanguageCypher))
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, ir.ID("1"), resp.Records[0].ID())
	assert.Equal(t, "person", resp.Records[0].Label())
	assert.Equal(t, "marko", resp.Records[0]["name"])
}

func TestExecute_WrapsDriverError(t *testing.T) {
	boom := errors.New("connection reset")
	stub := testutil.NewStubDriver()
	stub.Err = boom
	c := stubConnection(t, stub)

	cmd := ir.NewReadCommand("MATCH (n) RETURN n", ir.LanguageCypher)
	_, err := c.Execute(context.Background(), cmd)

	require.Error(t, err)
	assert.True(t, ir.IsDriverFailure(err))
	assert.ErrorIs(t, err, boom)
	var e *ir.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "Execute", e.Op)
	assert.Equal(t, "cypher", e.Dialect)
	assert.Equal(t, cmd.Script, e.Script)

	err = c.Run(context.Background(), cmd)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "Run", e.Op)
}

func TestOpen_WrapsDriverError(t *testing.T) {
	stub := testutil.NewStubDriver()
	stub.OpenErr = errors.New("refused")
	c, err := New("test", driver.Config{Driver: "stub", Dialect: "cypher"}, WithDriver(stub))
	require.NoError(t, err)

	err = c.Open(context.Background())
	assert.True(t, ir.IsDriverFailure(err))
	assert.ErrorIs(t, err, stub.OpenErr)
	assert.Equal(t, "DRIVER_FAILURE Open: connection test: refused", err.Error())
}

func TestExecuteBag_CompileErrorNeverReachesDriver(t *testing.T) {
	stub := testutil.NewStubDriver()
	c := stubConnection(t, stub)

	_, err := c.ExecuteBag(context.Background(), &bag.Bag{
		Command: bag.Retrieve,
		Target:  bag.Target{Name: "person"},
		Where:   []bag.Constraint{{Field: "name", Comparator: bag.Like, Value: "m%", Conjunction: bag.And}},
	})
	assert.True(t, ir.IsUnsupported(err))
	assert.Empty(t, stub.Calls)
}

func TestQuery_UsesConnection(t *testing.T) {
	stub := testutil.NewStubDriver(driver.Set(
		testutil.NewRecord(1, "person", map[string]any{"name": "marko"}),
	))
	c := stubConnection(t, stub)

	rec, err := c.Query().Select().From("person").Where("name", "marko").First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "marko", rec["name"])

	last, ok := stub.LastCall()
	require.True(t, ok)
	assert.Equal(t, "MATCH (n:person) WHERE n.name = 'marko' RETURN n LIMIT 1", last.Command.Script)
	assert.Equal(t, ir.Read, last.Command.RW)
}

func TestMetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	rec := &fakeRecorder{}
	clock := testutil.NewStepClock(time.Unix(0, 0), 5*time.Millisecond)
	stub := testutil.NewStubDriver()
	c := stubConnection(t, stub,
		WithLogger(logger),
		WithMetrics(rec),
		WithClock(clock.Now),
		WithIDGenerator(testutil.NewSequenceIDs("cmd")),
	)
	ctx := context.Background()

	_, err := c.Execute(ctx, ir.NewReadCommand("RETURN 1", ir.LanguageCypher))
	require.NoError(t, err)
	stub.Err = errors.New("boom")
	_, err = c.Execute(ctx, ir.NewCommand("CREATE (n)", ir.LanguageCypher))
	require.Error(t, err)

	assert.Equal(t, []observation{
		{"cypher", ir.Read, false, 5 * time.Millisecond},
		{"cypher", ir.Write, true, 5 * time.Millisecond},
	}, rec.seen)

	out := buf.String()
	assert.Contains(t, out, `level=DEBUG msg="command executed" connection=test command_id=cmd-1 seq=1 rw=read duration=5ms`)
	assert.Contains(t, out, `level=ERROR msg="command failed" connection=test command_id=cmd-2 seq=2 rw=write script="CREATE (n)" error=boom`)
}

func TestTransactions(t *testing.T) {
	stub := testutil.NewStubDriver()
	c := stubConnection(t, stub)
	ctx := context.Background()

	ok, err := c.StartTransaction(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	stub.Transactions = true
	ok, err = c.StartTransaction(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.StartTransaction(ctx)
	assert.True(t, ir.IsDriverFailure(err))
	assert.ErrorIs(t, err, driver.ErrTransactionOpen)

	ok, err = c.StopTransaction(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUUIDv7Generator(t *testing.T) {
	a := UUIDv7Generator{}.Generate()
	b := UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14])
}
