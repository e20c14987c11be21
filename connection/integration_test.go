package connection

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/internal/testutil"
	"github.com/roach88/spider/ir"
)

// openGraph opens a sqlite connection seeded with the modern graph.
func openGraph(t *testing.T) *Connection {
	t.Helper()
	ctx := context.Background()
	cfg := driver.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "modern.db")}
	c, err := New("modern", cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	require.NoError(t, c.Open(ctx))
	t.Cleanup(func() { c.Close(ctx) })

	resp, err := c.ExecuteBag(ctx, testutil.ModernGraphBag())
	require.NoError(t, err)
	require.Len(t, resp.Records, len(testutil.ModernGraph()))
	return c
}

func names(records []ir.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.String("name")
	}
	return out
}

func TestIntegration_SelectAll(t *testing.T) {
	c := openGraph(t)

	records, err := c.Query().Select().From("person").All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, "marko", records[0]["name"])
	assert.Equal(t, int64(29), records[0]["age"])
	assert.Equal(t, "person", records[0].Label())
	assert.Equal(t, ir.ID("1"), records[0].ID())
	assert.Equal(t, int64(1), records[0].Ref())
	version, ok := records[0].Version()
	assert.True(t, ok)
	assert.Equal(t, int64(1), version)
}

func TestIntegration_First(t *testing.T) {
	c := openGraph(t)

	rec, err := c.Query().Select().From("person").First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "marko", rec["name"])
}

func TestIntegration_One(t *testing.T) {
	c := openGraph(t)
	ctx := context.Background()

	_, err := c.Query().Select().From("person").One(ctx)
	assert.True(t, ir.IsAmbiguous(err))

	rec, err := c.Query().Select().From("person").Where("name", "josh").One(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(32), rec["age"])

	_, err = c.Query().Select().From("person").Where("name", "nobody").One(ctx)
	assert.True(t, ir.IsNoResults(err))

	_, err = c.Query().Select().From("person").Limit(1).One(ctx)
	assert.True(t, ir.IsAmbiguous(err))
}

func TestIntegration_AndWhere(t *testing.T) {
	c := openGraph(t)

	records, err := c.Query().Select().From("person").
		Where("name", "marko").
		AndWhere("age", 29).
		All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"marko"}, names(records))
}

func TestIntegration_OrWhere(t *testing.T) {
	c := openGraph(t)

	records, err := c.Query().Select().From("person").
		Where("name", "marko").
		OrWhere("name", "peter").
		All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"marko", "peter"}, names(records))
}

func TestIntegration_Comparators(t *testing.T) {
	c := openGraph(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		field string
		cond  bag.Condition
		want  []string
	}{
		{"gt", "age", bag.Gt(30), []string{"peter", "josh"}},
		{"lte", "age", bag.Lte(29), []string{"marko", "vadas"}},
		{"neq", "lang", bag.Neq("java"), []string{}},
		{"in", "name", bag.InValues("vadas", "lop"), []string{"vadas", "lop"}},
		{"not in", "age", bag.NotInValues(29, 27), []string{"peter", "josh"}},
		{"contains", "name", bag.ContainsText("ar"), []string{"marko"}},
		{"like", "name", bag.LikePattern("%p%"), []string{"peter", "lop", "ripple"}},
		{"is null", "age", bag.Eq(nil), []string{"lop", "ripple"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := c.Query().Select().From("person").Where(tt.field, tt.cond).All(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(records))
		})
	}
}

func TestIntegration_Limit(t *testing.T) {
	c := openGraph(t)
	ctx := context.Background()

	three, err := c.Query().Select().From("person").Limit(3).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"marko", "vadas", "peter"}, names(three))

	four, err := c.Query().Select().From("person").Limit(4).All(ctx)
	require.NoError(t, err)
	assert.Len(t, four, 4)
}

func TestIntegration_OrderAndProjection(t *testing.T) {
	c := openGraph(t)

	records, err := c.Query().Select("name").From("person").
		Where("age", bag.Gte(0)).
		OrderBy("age", bag.Desc).
		All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"peter", "josh", "marko", "vadas"}, names(records))
	_, hasAge := records[0]["age"]
	assert.False(t, hasAge)
}

func TestIntegration_InsertSelectDrop(t *testing.T) {
	c := openGraph(t)
	ctx := context.Background()

	created, err := c.Query().Into("person").Insert(ir.Record{
		"first":  "first-value",
		"second": "second-value",
	}).Go(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, ir.ID("7"), created[0].ID())

	rec, err := c.Query().Select().From("person").Where("first", "first-value").One(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second-value", rec["second"])

	dropped, err := c.Query().Drop(rec.ID()).Go(ctx)
	require.NoError(t, err)
	require.Len(t, dropped, 1)

	remaining, err := c.Query().Select().From("person").Where("first", "first-value").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestIntegration_Update(t *testing.T) {
	c := openGraph(t)
	ctx := context.Background()

	updated, err := c.Query().Update(ir.Record{"age": 30}).From("person").Where("name", "marko").Go(ctx)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, int64(30), updated[0]["age"])
	version, _ := updated[0].Version()
	assert.Equal(t, int64(2), version)

	rec, err := c.Query().Select().Record(updated[0].ID()).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30), rec["age"])
}

func TestIntegration_DropWhereLimit(t *testing.T) {
	c := openGraph(t)
	ctx := context.Background()

	dropped, err := c.Query().Drop().From("person").Where("lang", "java").Limit(1).Go(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lop"}, names(dropped))

	all, err := c.Query().Select().From("person").All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestIntegration_TransactionRollback(t *testing.T) {
	c := openGraph(t)
	ctx := context.Background()

	ok, err := c.StartTransaction(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Query().Into("person").Create(ir.Record{"name": "temp"}).Run(ctx))
	inside, err := c.Query().Select().From("person").All(ctx)
	require.NoError(t, err)
	assert.Len(t, inside, 7)

	ok, err = c.StopTransaction(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := c.Query().Select().From("person").All(ctx)
	require.NoError(t, err)
	assert.Len(t, after, 6)
}

func TestIntegration_RawCommand(t *testing.T) {
	c := openGraph(t)

	resp, err := c.Execute(context.Background(),
		ir.NewReadCommand("SELECT count(*) AS total FROM vertices", ir.LanguageSQLite))
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, int64(6), resp.Records[0]["total"])
	assert.Empty(t, resp.Records[0].ID())
}

func TestIntegration_DriverFailure(t *testing.T) {
	c := openGraph(t)

	_, err := c.Execute(context.Background(), ir.NewReadCommand("SELECT * FROM missing", ir.LanguageSQLite))
	require.Error(t, err)
	assert.True(t, ir.IsDriverFailure(err))
	assert.Contains(t, err.Error(), `script="SELECT * FROM missing"`)
	assert.Contains(t, err.Error(), "no such table")
}

func TestIntegration_ControlBytesInOperand(t *testing.T) {
	c := openGraph(t)

	records, err := c.Query().Select().From("person").Where("name", "mar\x00ko").All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = c.Query().Select().From("person").Where("name", "mar\x1bko").All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
