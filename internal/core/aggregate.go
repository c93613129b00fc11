package core

import (
	"fmt"
	"sort"
)

// AggFunc identifies an aggregation over a group of values.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggMean
	AggMax
	AggMin
	AggCount
)

// Aggregation computes As from Column within each group.
type Aggregation struct {
	As     string
	Column string
	Func   AggFunc
}

func Sum(col, as string) Aggregation { return Aggregation{As: as, Column: col, Func: AggSum} }
func Mean(col, as string) Aggregation { return Aggregation{As: as, Column: col, Func: AggMean} }
func Max(col, as string) Aggregation { return Aggregation{As: as, Column: col, Func: AggMax} }
func Min(col, as string) Aggregation { return Aggregation{As: as, Column: col, Func: AggMin} }
func Count(col, as string) Aggregation { return Aggregation{As: as, Column: col, Func: AggCount} }

// resultType returns the output column type for an aggregation over src.
func (a Aggregation) resultType(src ColumnType) ColumnType {
	switch a.Func {
	case AggMean:
		return TypeFloat64
	case AggCount:
		return TypeInt64
	case AggSum:
		if src == TypeInt64 {
			return TypeInt64
		}
		return TypeFloat64
	default:
		return src
	}
}

// GroupBy groups t by the key column and computes one output row per distinct
// key, sorted by key with the null-key group (if any) last.
//
// Aggregates skip nulls. A sum over a group with no non-null values is zero;
// mean, max and min over such a group are null.
func GroupBy(t *Table, key string, aggs ...Aggregation) (*Table, error) {
	ki := t.ColumnIndex(key)
	if ki < 0 {
		return nil, &PipelineError{
			Code:   CodeMissingColumn,
			Table:  t.Name,
			Detail: fmt.Sprintf("group-by column %q not found", key),
			Err:    ErrMissingColumn,
		}
	}

	src := make([]int, len(aggs))
	cols := []Column{t.Columns[ki]}
	for i, a := range aggs {
		pos := t.ColumnIndex(a.Column)
		if pos < 0 {
			return nil, &PipelineError{
				Code:   CodeMissingColumn,
				Table:  t.Name,
				Detail: fmt.Sprintf("aggregate column %q not found", a.Column),
				Err:    ErrMissingColumn,
			}
		}
		src[i] = pos
		cols = append(cols, Column{Name: a.As, Type: a.resultType(t.Columns[pos].Type)})
	}

	type group struct {
		key  Value
		rows []int
	}
	groups := make(map[string]*group)
	var nullGroup *group
	for r, row := range t.Rows {
		k, ok := joinKey(row[ki])
		if !ok {
			if nullGroup == nil {
				nullGroup = &group{key: row[ki]}
			}
			nullGroup.rows = append(nullGroup.rows, r)
			continue
		}
		g, exists := groups[k]
		if !exists {
			g = &group{key: row[ki]}
			groups[k] = g
		}
		g.rows = append(g.rows, r)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]*group, 0, len(groups)+1)
	for _, k := range keys {
		ordered = append(ordered, groups[k])
	}
	if nullGroup != nil {
		ordered = append(ordered, nullGroup)
	}

	out := NewTable(t.Name, cols)
	out.Rows = make([][]Value, 0, len(ordered))
	for _, g := range ordered {
		row := make([]Value, 0, len(cols))
		row = append(row, g.key)
		for i, a := range aggs {
			vals := make([]Value, 0, len(g.rows))
			for _, r := range g.rows {
				vals = append(vals, t.Rows[r][src[i]])
			}
			row = append(row, aggregate(a.Func, cols[i+1].Type, vals))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func aggregate(fn AggFunc, out ColumnType, vals []Value) Value {
	var (
		n     int
		sumF  float64
		sumI  int64
		best  Value
		found bool
	)
	for _, v := range vals {
		if !v.Valid {
			continue
		}
		n++
		switch fn {
		case AggSum, AggMean:
			if v.Type == TypeInt64 {
				sumI += v.Int
				sumF += float64(v.Int)
			} else {
				sumF += v.Float
			}
		case AggMax, AggMin:
			if !found || better(fn, v, best) {
				best = v
				found = true
			}
		}
	}

	switch fn {
	case AggCount:
		return Int64Value(int64(n))
	case AggSum:
		if out == TypeInt64 {
			return Int64Value(sumI)
		}
		return Float64Value(sumF)
	case AggMean:
		if n == 0 {
			return Null(TypeFloat64)
		}
		return Float64Value(sumF / float64(n))
	default:
		if !found {
			return Null(out)
		}
		return best
	}
}

// better reports whether v should replace the current max/min candidate.
func better(fn AggFunc, v, cur Value) bool {
	c := compare(v, cur)
	if fn == AggMax {
		return c > 0
	}
	return c < 0
}

// compare orders two valid values of the same type.
func compare(a, b Value) int {
	switch a.Type {
	case TypeInt64:
		return cmp3(a.Int < b.Int, a.Int > b.Int)
	case TypeFloat64:
		return cmp3(a.Float < b.Float, a.Float > b.Float)
	case TypeTimestamp:
		return cmp3(a.Time.Before(b.Time), a.Time.After(b.Time))
	default:
		return cmp3(a.Str < b.Str, a.Str > b.Str)
	}
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}
