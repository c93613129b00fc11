package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Project returns a new table holding only the named columns, in the given
// order. Row slices are copied so the result can be mutated independently.
func (t *Table) Project(cols ...string) (*Table, error) {
	idx := make([]int, len(cols))
	out := NewTable(t.Name, make([]Column, len(cols)))
	for i, name := range cols {
		pos := t.ColumnIndex(name)
		if pos < 0 {
			return nil, &PipelineError{
				Code:   CodeMissingColumn,
				Table:  t.Name,
				Detail: fmt.Sprintf("cannot project column %q", name),
				Err:    ErrMissingColumn,
			}
		}
		idx[i] = pos
		out.Columns[i] = t.Columns[pos]
	}

	out.Rows = make([][]Value, len(t.Rows))
	for r, row := range t.Rows {
		projected := make([]Value, len(idx))
		for i, pos := range idx {
			projected[i] = row[pos]
		}
		out.Rows[r] = projected
	}
	return out, nil
}

// Dedupe returns a table with exact-duplicate rows collapsed to their first
// occurrence, preserving order, and the number of rows removed.
func (t *Table) Dedupe() (*Table, int) {
	out := NewTable(t.Name, t.Columns)
	seen := make(map[string]struct{}, len(t.Rows))

	for _, row := range t.Rows {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out, len(t.Rows) - len(out.Rows)
}

// DropNullKeys returns a table without rows that have a null in any of the
// given columns, and the number of rows removed.
func (t *Table) DropNullKeys(keys ...string) (*Table, int, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		pos := t.ColumnIndex(k)
		if pos < 0 {
			return nil, 0, &PipelineError{
				Code:   CodeMissingColumn,
				Table:  t.Name,
				Detail: fmt.Sprintf("required key column %q not found", k),
				Err:    ErrMissingColumn,
			}
		}
		idx[i] = pos
	}

	out := NewTable(t.Name, t.Columns)
	for _, row := range t.Rows {
		keep := true
		for _, pos := range idx {
			if row[pos].IsNull() {
				keep = false
				break
			}
		}
		if keep {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, len(t.Rows) - len(out.Rows), nil
}

// rowKey builds an exact identity for a row. Every value is length-prefixed
// and tagged with its type and nullness, so no two distinct rows collide.
func rowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteByte(byte('0' + v.Type))
		if !v.Valid {
			b.WriteByte('N')
			continue
		}
		b.WriteByte('V')
		var s string
		switch v.Type {
		case TypeFloat64:
			s = strconv.FormatUint(math.Float64bits(v.Float), 16)
		case TypeTimestamp:
			s = strconv.FormatInt(v.Time.UnixNano(), 10)
		default:
			s = v.String()
		}
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// joinKey is the matching key for join and group-by columns. Values match by
// their text form so a string "42" key meets an int64 42 key.
func joinKey(v Value) (string, bool) {
	if !v.Valid {
		return "", false
	}
	return v.String(), true
}
