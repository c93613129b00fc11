package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/medallion/internal/core"
)

// writeCSV encodes t with a header row. Nulls are written as empty cells and
// timestamps in core.TimestampLayout.
func writeCSV(w io.Writer, t *core.Table) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Flush()
}

// readCSV decodes a CSV artifact, inferring column types. Callers that know
// the schema re-type with core.ApplyTypes.
func readCSV(path, name string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, records, err := ReadRecords(f)
	if err != nil {
		return nil, err
	}
	return core.FromRecords(name, header, records), nil
}

// ReadRecords parses a CSV stream with a required header row. Every record
// must have as many fields as the header.
func ReadRecords(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	// FieldsPerRecord is now fixed to the header width.

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read records: %w", err)
	}
	return header, records, nil
}
