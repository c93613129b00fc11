package core

// convert.go provides per-value type conversion for raw CSV cells and for
// re-typing columns between layers.
//
// These functions handle the messy reality of extract files:
//   - Multiple timestamp and date formats (ISO, US, EU)
//   - Numeric-looking identifiers that must stay text (zip prefixes "01037")
//   - Integer counts stored as floats after a round trip ("3.0")
//
// Conversion never fails: unparseable input yields a null Value of the target
// type, so dirty cells thin out a column instead of aborting a table.

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Timestamp layouts tried in order. Full date-times first, then date-only.
var (
	dateTimeLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ToText converts a raw cell to a string Value.
// Returns null only for an empty cell; whitespace is kept verbatim.
func ToText(s string) Value {
	if s == "" {
		return Null(TypeString)
	}
	return StringValue(s)
}

// ToInt64 converts a raw cell to a nullable integer.
// Integral floats ("3.0") are accepted; fractional values become null.
func ToInt64(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null(TypeInt64)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int64Value(i)
	}
	f := ToFloat64(s)
	if !f.Valid {
		return Null(TypeInt64)
	}
	return floatToInt(f.Float)
}

// ToFloat64 converts a raw cell to a nullable float.
// NaN and infinities are treated as missing.
func ToFloat64(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null(TypeFloat64)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Null(TypeFloat64)
	}
	return Float64Value(f)
}

// ToTimestamp converts a raw cell to a nullable UTC timestamp.
// Supports multiple layouts and handles 2-digit years with a pivot.
func ToTimestamp(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null(TypeTimestamp)
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimestampValue(t)
		}
	}

	// 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimestampValue(t)
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return TimestampValue(t)
		}
	}

	return Null(TypeTimestamp)
}

// Parse converts a raw cell to the given type.
func Parse(s string, t ColumnType) Value {
	switch t {
	case TypeInt64:
		return ToInt64(s)
	case TypeFloat64:
		return ToFloat64(s)
	case TypeTimestamp:
		return ToTimestamp(s)
	default:
		return ToText(s)
	}
}

// Coerce converts an already-typed value to another type.
// Nulls stay null; impossible conversions yield null.
func Coerce(v Value, t ColumnType) Value {
	if v.Type == t {
		return v
	}
	if !v.Valid {
		return Null(t)
	}

	switch t {
	case TypeString:
		return StringValue(v.String())
	case TypeInt64:
		switch v.Type {
		case TypeFloat64:
			return floatToInt(v.Float)
		case TypeString:
			return ToInt64(v.Str)
		}
	case TypeFloat64:
		switch v.Type {
		case TypeInt64:
			return Float64Value(float64(v.Int))
		case TypeString:
			return ToFloat64(v.Str)
		}
	case TypeTimestamp:
		switch v.Type {
		case TypeString:
			return ToTimestamp(v.Str)
		case TypeInt64:
			// Compact dates (20170102) are inferred as integers in bronze.
			return ToTimestamp(strconv.FormatInt(v.Int, 10))
		}
	}
	return Null(t)
}

// floatToInt narrows f to int64. float64(math.MaxInt64) rounds up to 2^63,
// so the upper bound is exclusive.
func floatToInt(f float64) Value {
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return Null(TypeInt64)
	}
	return Int64Value(int64(f))
}

// InferType picks the narrowest native type for a column of raw cells:
// int64 if every non-empty cell round-trips as an integer, float64 if every
// non-empty cell parses as a float, otherwise string. Integers with leading
// zeros or a plus sign do not round-trip and keep the column as text.
func InferType(cells []string) ColumnType {
	isInt, isFloat, seen := true, true, false
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		seen = true
		if isInt {
			i, err := strconv.ParseInt(c, 10, 64)
			if err != nil || strconv.FormatInt(i, 10) != c {
				isInt = false
			}
		}
		if !isInt && isFloat {
			if hasLeadingZero(c) || !ToFloat64(c).Valid {
				isFloat = false
			}
		}
		if !isInt && !isFloat {
			return TypeString
		}
	}
	switch {
	case !seen:
		return TypeString
	case isInt:
		return TypeInt64
	default:
		return TypeFloat64
	}
}

// hasLeadingZero reports identifiers like "007" that must not become numbers.
// "0.5" and "-0.25" are ordinary floats.
func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// FromRecords builds a table from text records, inferring each column's type
// with InferType. Every record must have len(header) cells.
func FromRecords(name string, header []string, records [][]string) *Table {
	cols := make([]Column, len(header))
	cells := make([]string, len(records))
	for i, h := range header {
		for r, rec := range records {
			cells[r] = rec[i]
		}
		cols[i] = Column{Name: h, Type: InferType(cells)}
	}

	t := NewTable(name, cols)
	t.Rows = make([][]Value, len(records))
	for r, rec := range records {
		row := make([]Value, len(cols))
		for i, c := range cols {
			row[i] = Parse(rec[i], c.Type)
		}
		t.Rows[r] = row
	}
	return t
}
