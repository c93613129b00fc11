package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/JonMunkholm/medallion/internal/core"
)

// columnsMetadataKey holds the ordered, typed column list. A parquet group
// orders its fields by name, so the table's own column order is kept here.
const columnsMetadataKey = "medallion.columns"

const parquetBatchSize = 1024

type columnMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// probeParquet checks that every column can become a distinct parquet field.
func probeParquet(t *core.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: parquet needs at least one column", ErrUnsupported)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for i, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("%w: parquet cannot encode unnamed column %d", ErrUnsupported, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: parquet cannot encode duplicate column %q", ErrUnsupported, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

func parquetNode(t core.ColumnType) parquet.Node {
	switch t {
	case core.TypeInt64:
		return parquet.Int(64)
	case core.TypeFloat64:
		return parquet.Leaf(parquet.DoubleType)
	case core.TypeTimestamp:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		return parquet.String()
	}
}

// leafIndexes maps each schema leaf path to its column index.
func leafIndexes(schema *parquet.Schema) map[string]int {
	leaves := make(map[string]int)
	for i, path := range schema.Columns() {
		if len(path) == 1 {
			leaves[path[0]] = i
		}
	}
	return leaves
}

func writeParquet(w io.Writer, t *core.Table) error {
	group := make(parquet.Group, len(t.Columns))
	meta := make([]columnMeta, len(t.Columns))
	for i, c := range t.Columns {
		group[c.Name] = parquet.Optional(parquetNode(c.Type))
		meta[i] = columnMeta{Name: c.Name, Type: c.Type.String()}
	}
	schema := parquet.NewSchema(t.Name, group)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode column metadata: %w", err)
	}

	leaves := leafIndexes(schema)
	pos := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		pos[i] = leaves[c.Name]
	}

	pw := parquet.NewWriter(w, schema, parquet.KeyValueMetadata(columnsMetadataKey, string(metaJSON)))

	batch := make([]parquet.Row, 0, parquetBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(batch); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, r := range t.Rows {
		row := make(parquet.Row, len(t.Columns))
		for i, v := range r {
			row[pos[i]] = toParquetValue(v, pos[i])
		}
		batch = append(batch, row)
		if len(batch) == parquetBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func toParquetValue(v core.Value, col int) parquet.Value {
	if !v.Valid {
		return parquet.NullValue().Level(0, 0, col)
	}
	var pv parquet.Value
	switch v.Type {
	case core.TypeInt64:
		pv = parquet.Int64Value(v.Int)
	case core.TypeFloat64:
		pv = parquet.DoubleValue(v.Float)
	case core.TypeTimestamp:
		pv = parquet.Int64Value(v.Time.UnixMicro())
	default:
		pv = parquet.ByteArrayValue([]byte(v.Str))
	}
	return pv.Level(0, 1, col)
}

func fromParquetValue(v parquet.Value, typ core.ColumnType) core.Value {
	if v.IsNull() {
		return core.Null(typ)
	}
	switch typ {
	case core.TypeInt64:
		return core.Int64Value(v.Int64())
	case core.TypeFloat64:
		return core.Float64Value(v.Double())
	case core.TypeTimestamp:
		return core.TimestampValue(time.UnixMicro(v.Int64()))
	default:
		return core.StringValue(string(v.ByteArray()))
	}
}

func readParquet(path, name string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	raw, ok := pf.Lookup(columnsMetadataKey)
	if !ok {
		return nil, errors.New("parquet artifact has no column metadata")
	}
	var meta []columnMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("decode column metadata: %w", err)
	}

	cols := make([]core.Column, len(meta))
	for i, m := range meta {
		typ, err := core.ParseColumnType(m.Type)
		if err != nil {
			return nil, err
		}
		cols[i] = core.Column{Name: m.Name, Type: typ}
	}

	// leaf index -> table position
	leaves := leafIndexes(pf.Schema())
	byLeaf := make(map[int]int, len(cols))
	for i, c := range cols {
		leaf, ok := leaves[c.Name]
		if !ok {
			return nil, fmt.Errorf("column %q missing from parquet schema", c.Name)
		}
		byLeaf[leaf] = i
	}

	t := core.NewTable(name, cols)
	t.Rows = make([][]core.Value, 0, pf.NumRows())
	buf := make([]parquet.Row, parquetBatchSize)

	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, t, byLeaf, buf); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func readRowGroup(rg parquet.RowGroup, t *core.Table, byLeaf map[int]int, buf []parquet.Row) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, pr := range buf[:n] {
			row := make([]core.Value, len(t.Columns))
			for i, c := range t.Columns {
				row[i] = core.Null(c.Type)
			}
			for _, v := range pr {
				if i, ok := byLeaf[v.Column()]; ok {
					row[i] = fromParquetValue(v, t.Columns[i].Type)
				}
			}
			t.Rows = append(t.Rows, row)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}
