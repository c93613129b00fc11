package core

// schema.go applies a per-table schema descriptor to a raw table.
//
// Refinement happens in four ordered steps:
//  1. Temporal coercion: designated columns are parsed into timestamps
//  2. Type coercion: declared columns are converted to their declared type,
//     and whitespace-only text becomes null
//  3. Exact-duplicate removal across all columns
//  4. Removal of rows with a null in any required-key column
//
// Steps 1 and 2 never fail on values: a cell that cannot be converted becomes
// null. Only structural problems (a declared column absent from the table)
// return an error.

import (
	"fmt"
	"strings"
)

// Schema describes how a table is refined.
type Schema struct {
	Columns  []Column // Declared column types (non-temporal)
	Temporal []string // Columns parsed as timestamps when present
	Keys     []string // Required-key columns; a null disqualifies the row
}

// TypeOf returns the declared type for a column, including temporal columns.
func (s Schema) TypeOf(name string) (ColumnType, bool) {
	for _, t := range s.Temporal {
		if t == name {
			return TypeTimestamp, true
		}
	}
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return TypeString, false
}

// RefineStats counts rows through the refinement steps.
type RefineStats struct {
	Before     int `json:"before"`
	Duplicates int `json:"duplicates"`
	NullKeys   int `json:"nullKeys"`
	After      int `json:"after"`
}

// Refine applies the schema to a copy of t and returns the refined table.
// The input table is not modified.
func Refine(t *Table, s Schema) (*Table, RefineStats, error) {
	stats := RefineStats{Before: t.Len()}

	out := NewTable(t.Name, append([]Column(nil), t.Columns...))
	out.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]Value(nil), row...)
	}

	// Missing temporal columns are skipped; extracts differ in which
	// lifecycle dates they carry.
	for _, name := range s.Temporal {
		if idx := out.ColumnIndex(name); idx >= 0 {
			castColumn(out, idx, TypeTimestamp)
		}
	}

	for _, col := range s.Columns {
		idx := out.ColumnIndex(col.Name)
		if idx < 0 {
			return nil, stats, &PipelineError{
				Code:   CodeMissingColumn,
				Table:  t.Name,
				Detail: fmt.Sprintf("declared column %q not found", col.Name),
				Err:    ErrMissingColumn,
			}
		}
		castColumn(out, idx, col.Type)
	}

	// Bronze keeps whitespace-only cells verbatim; silver treats them as missing.
	for i, c := range out.Columns {
		if c.Type == TypeString {
			blankToNull(out, i)
		}
	}

	deduped, dropped := out.Dedupe()
	stats.Duplicates = dropped

	filtered, dropped, err := deduped.DropNullKeys(s.Keys...)
	if err != nil {
		return nil, stats, err
	}
	stats.NullKeys = dropped
	stats.After = filtered.Len()

	return filtered, stats, nil
}

// castColumn converts every value of column idx to type t in place.
func castColumn(t *Table, idx int, typ ColumnType) {
	t.Columns[idx].Type = typ
	for _, row := range t.Rows {
		row[idx] = Coerce(row[idx], typ)
	}
}

// blankToNull replaces whitespace-only strings in column idx with null.
func blankToNull(t *Table, idx int) {
	for _, row := range t.Rows {
		if v := row[idx]; v.Valid && strings.TrimSpace(v.Str) == "" {
			row[idx] = Null(TypeString)
		}
	}
}

// ApplyTypes re-types a table read from an untyped encoding (CSV) so that
// declared columns carry their schema type. Columns not in the schema keep
// whatever type they were read with.
func ApplyTypes(t *Table, s Schema) {
	for i, c := range t.Columns {
		if typ, ok := s.TypeOf(c.Name); ok && typ != c.Type {
			castColumn(t, i, typ)
		}
	}
}
