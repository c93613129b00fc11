package core

import "fmt"

// Cardinality is the multiplicity contract a join enforces.
type Cardinality int

const (
	// ManyToOne allows repeated left keys; each left row matches at most one
	// right row.
	ManyToOne Cardinality = iota
	// OneToOne additionally requires left keys to be unique.
	OneToOne
)

func (c Cardinality) String() string {
	if c == OneToOne {
		return "one-to-one"
	}
	return "many-to-one"
}

// LeftJoin joins right onto left by the column on, keeping every left row in
// order. Right columns (except on) are appended; unmatched left rows get nulls
// of the right column types. Null keys never match.
//
// A left row matching more than one right row, or (for OneToOne) a repeated
// left key, is an ErrCardinality error. Such violations are data-integrity
// problems and are never resolved silently.
func LeftJoin(left, right *Table, on string, card Cardinality) (*Table, error) {
	li := left.ColumnIndex(on)
	if li < 0 {
		return nil, missingJoinColumn(left.Name, on)
	}
	ri := right.ColumnIndex(on)
	if ri < 0 {
		return nil, missingJoinColumn(right.Name, on)
	}

	index := make(map[string][]int, len(right.Rows))
	for r, row := range right.Rows {
		if k, ok := joinKey(row[ri]); ok {
			index[k] = append(index[k], r)
		}
	}

	cols := append([]Column(nil), left.Columns...)
	var rightCols []int
	for i, c := range right.Columns {
		if i == ri {
			continue
		}
		name := c.Name
		if left.ColumnIndex(name) >= 0 {
			name += "_right"
		}
		cols = append(cols, Column{Name: name, Type: c.Type})
		rightCols = append(rightCols, i)
	}

	out := NewTable(left.Name, cols)
	out.Rows = make([][]Value, 0, len(left.Rows))
	var seenLeft map[string]struct{}
	if card == OneToOne {
		seenLeft = make(map[string]struct{}, len(left.Rows))
	}

	for _, row := range left.Rows {
		joined := make([]Value, 0, len(cols))
		joined = append(joined, row...)

		k, ok := joinKey(row[li])
		if ok && seenLeft != nil {
			if _, dup := seenLeft[k]; dup {
				return nil, cardinalityError(left.Name, right.Name, on, card,
					fmt.Sprintf("left key %q repeats", k))
			}
			seenLeft[k] = struct{}{}
		}

		var matches []int
		if ok {
			matches = index[k]
		}
		if len(matches) > 1 {
			return nil, cardinalityError(left.Name, right.Name, on, card,
				fmt.Sprintf("key %q matches %d rows", k, len(matches)))
		}

		for _, i := range rightCols {
			if len(matches) == 1 {
				joined = append(joined, right.Rows[matches[0]][i])
			} else {
				joined = append(joined, Null(right.Columns[i].Type))
			}
		}
		out.Rows = append(out.Rows, joined)
	}

	return out, nil
}

func missingJoinColumn(table, col string) error {
	return &PipelineError{
		Code:   CodeMissingColumn,
		Table:  table,
		Detail: fmt.Sprintf("join column %q not found", col),
		Err:    ErrMissingColumn,
	}
}

func cardinalityError(left, right, on string, card Cardinality, detail string) error {
	return &PipelineError{
		Code:   CodeCardinality,
		Table:  left,
		Detail: fmt.Sprintf("%s join with %s on %s: %s", card, right, on, detail),
		Err:    ErrCardinality,
	}
}
