package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/medallion/internal/core"
)

func sampleTable() *core.Table {
	t := core.NewTable("orders", []core.Column{
		{Name: "order_id", Type: core.TypeString},
		{Name: "zip", Type: core.TypeString},
		{Name: "items", Type: core.TypeInt64},
		{Name: "total", Type: core.TypeFloat64},
		{Name: "purchased_at", Type: core.TypeTimestamp},
	})
	t.Append([]core.Value{
		core.StringValue("o1"),
		core.StringValue("01037"),
		core.Int64Value(3),
		core.Float64Value(35.5),
		core.TimestampValue(time.Date(2017, 10, 2, 10, 56, 33, 0, time.UTC)),
	})
	t.Append([]core.Value{
		core.StringValue("o2"),
		core.Null(core.TypeString),
		core.Null(core.TypeInt64),
		core.Null(core.TypeFloat64),
		core.Null(core.TypeTimestamp),
	})
	return t
}

func assertSameTable(t *testing.T, want, got *core.Table) {
	t.Helper()
	require.Equal(t, want.Columns, got.Columns)
	require.Equal(t, want.Len(), got.Len())
	for r := range want.Rows {
		for c := range want.Columns {
			assert.Truef(t, want.Rows[r][c].Equal(got.Rows[r][c]),
				"row %d col %s: want %+v, got %+v", r, want.Columns[c].Name, want.Rows[r][c], got.Rows[r][c])
		}
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" Parquet ")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	ok := sampleTable()
	assert.NoError(t, Probe(FormatParquet, ok))
	assert.NoError(t, Probe(FormatCSV, ok))

	dup := core.NewTable("dup", []core.Column{
		{Name: "a", Type: core.TypeString},
		{Name: "a", Type: core.TypeString},
	})
	assert.ErrorIs(t, Probe(FormatParquet, dup), ErrUnsupported)
	assert.NoError(t, Probe(FormatCSV, dup))

	unnamed := core.NewTable("unnamed", []core.Column{{Name: "", Type: core.TypeString}})
	assert.ErrorIs(t, Probe(FormatParquet, unnamed), ErrUnsupported)

	assert.ErrorIs(t, Probe(Format("orc"), ok), ErrUnsupported)
}

func TestStore_RoundTripParquet(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(FormatParquet)
	in := sampleTable()

	res, err := store.Write(context.Background(), dir, "silver_orders", in)
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, res.Format)
	assert.False(t, res.Degraded)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, filepath.Join(dir, "silver_orders.parquet"), res.Path)

	out, format, err := store.Read(dir, "silver_orders")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, format)
	assertSameTable(t, in, out)
}

func TestStore_RoundTripCSV(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(FormatCSV)
	in := sampleTable()

	res, err := store.Write(context.Background(), dir, "orders", in)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, res.Format)
	assert.False(t, res.Degraded)

	out, format, err := store.Read(dir, "orders")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	// Text encoding restores types by inference, so re-apply declared ones.
	core.ApplyTypes(out, core.Schema{
		Columns:  []core.Column{{Name: "total", Type: core.TypeFloat64}},
		Temporal: []string{"purchased_at"},
	})
	assertSameTable(t, in, out)
}

func TestStore_DegradesToCSV(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(FormatParquet)

	tbl := core.NewTable("dup", []core.Column{
		{Name: "id", Type: core.TypeString},
		{Name: "id", Type: core.TypeString},
	})
	tbl.Append([]core.Value{core.StringValue("a"), core.StringValue("b")})

	res, err := store.Write(context.Background(), dir, "dup", tbl)
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, FormatCSV, res.Format)
	assert.Contains(t, res.Reason, "duplicate column")
	assert.FileExists(t, filepath.Join(dir, "dup.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "dup.parquet"))
}

func TestStore_OverwriteRemovesOtherEncoding(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := NewStore(FormatCSV).Write(ctx, dir, "orders", sampleTable())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "orders.csv"))

	_, err = NewStore(FormatParquet).Write(ctx, dir, "orders", sampleTable())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "orders.parquet"))
	assert.NoFileExists(t, filepath.Join(dir, "orders.csv"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")
}

func TestStore_WriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewStore(FormatParquet)

	_, err := store.Write(ctx, dir, "orders", sampleTable())
	require.NoError(t, err)
	first, _, err := store.Read(dir, "orders")
	require.NoError(t, err)

	_, err = store.Write(ctx, dir, "orders", sampleTable())
	require.NoError(t, err)
	second, _, err := store.Read(dir, "orders")
	require.NoError(t, err)

	assertSameTable(t, first, second)
}

func TestStore_ReadMissing(t *testing.T) {
	store := NewStore(FormatParquet)

	_, _, err := store.Read(t.TempDir(), "silver_orders")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingArtifact))

	var pe *core.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, core.CodeMissingArtifact, pe.Code)
}

func TestStore_Exists(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(FormatCSV)
	assert.False(t, store.Exists(dir, "orders"))

	_, err := store.Write(context.Background(), dir, "orders", sampleTable())
	require.NoError(t, err)
	assert.True(t, store.Exists(dir, "orders"))
}

func TestReadRecords(t *testing.T) {
	header, records, err := ReadRecords(strings.NewReader("a,b\n1,\"x\ny\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Equal(t, [][]string{{"1", "x\ny"}}, records)

	_, _, err = ReadRecords(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err, "ragged rows are rejected")

	_, _, err = ReadRecords(strings.NewReader(""))
	assert.Error(t, err, "header is required")
}
