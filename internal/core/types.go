package core

import (
	"fmt"
	"strconv"
	"time"
)

// ColumnType represents the logical data type of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt64
	TypeFloat64
	TypeTimestamp
)

// String returns the stable name used in artifact metadata.
func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// ParseColumnType is the inverse of ColumnType.String.
func ParseColumnType(s string) (ColumnType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "int64":
		return TypeInt64, nil
	case "float64":
		return TypeFloat64, nil
	case "timestamp":
		return TypeTimestamp, nil
	default:
		return TypeString, fmt.Errorf("unknown column type %q", s)
	}
}

// TimestampLayout is the canonical text form for timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Value is a nullable scalar. Only the field matching Type is meaningful,
// and only when Valid is true.
type Value struct {
	Type  ColumnType
	Valid bool
	Str   string
	Int   int64
	Float float64
	Time  time.Time
}

// Null returns an invalid value of the given type.
func Null(t ColumnType) Value { return Value{Type: t} }

func StringValue(s string) Value { return Value{Type: TypeString, Valid: true, Str: s} }
func Int64Value(i int64) Value { return Value{Type: TypeInt64, Valid: true, Int: i} }
func Float64Value(f float64) Value { return Value{Type: TypeFloat64, Valid: true, Float: f} }
func TimestampValue(t time.Time) Value {
	return Value{Type: TypeTimestamp, Valid: true, Time: t.UTC()}
}

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return !v.Valid }

// String renders the value for text output. Nulls render as "".
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	switch v.Type {
	case TypeInt64:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat64:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case TypeTimestamp:
		return v.Time.Format(TimestampLayout)
	default:
		return v.Str
	}
}

// Interface returns the value as a plain Go value (nil for null).
// Used for JSON rendering.
func (v Value) Interface() any {
	if !v.Valid {
		return nil
	}
	switch v.Type {
	case TypeInt64:
		return v.Int
	case TypeFloat64:
		return v.Float
	case TypeTimestamp:
		return v.Time
	default:
		return v.Str
	}
}

// Equal reports whether two values are identical, including type and nullness.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.Valid != o.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	switch v.Type {
	case TypeInt64:
		return v.Int == o.Int
	case TypeFloat64:
		return v.Float == o.Float
	case TypeTimestamp:
		return v.Time.Equal(o.Time)
	default:
		return v.Str == o.Str
	}
}

// Column describes one column of a table.
type Column struct {
	Name string
	Type ColumnType
}

// Table is an in-memory rectangular dataset. Every row has len(Columns) values.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]Value
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, cols []Column) *Table {
	return &Table{Name: name, Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Append adds a row. Panics if the row width does not match the columns.
func (t *Table) Append(row []Value) {
	if len(row) != len(t.Columns) {
		panic(fmt.Sprintf("table %s: row has %d values, want %d", t.Name, len(row), len(t.Columns)))
	}
	t.Rows = append(t.Rows, row)
}

// Head returns a new table with at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	out := NewTable(t.Name, append([]Column(nil), t.Columns...))
	out.Rows = append(out.Rows, t.Rows[:n]...)
	return out
}

// Value returns the cell at (row, column name). Missing columns yield an
// untyped null.
func (t *Table) Value(row int, col string) Value {
	i := t.ColumnIndex(col)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return Value{}
	}
	return t.Rows[row][i]
}

// Records renders rows as column-name keyed maps for JSON output.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c.Name] = row[i].Interface()
		}
		out = append(out, rec)
	}
	return out
}
