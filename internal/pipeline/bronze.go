package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/logging"
	"github.com/JonMunkholm/medallion/internal/storage"
)

// SourceFileColumn is the provenance column prepended to every bronze table.
const SourceFileColumn = "_source_file"

// Bronze loads every registered raw extract and writes it unchanged, apart
// from native type inference and the provenance column, to the bronze layer.
//
// All source files are checked before anything is written, so a missing file
// leaves the bronze directory untouched.
func (p *Pipeline) Bronze(ctx context.Context) ([]TableResult, error) {
	logger := logging.WithFields(ctx, "stage", StageBronze)
	defs := core.All()

	logger.Info("reading raw tables", "raw_dir", p.dirs.Raw)
	logger.Info("writing bronze tables", "bronze_dir", p.dirs.Bronze, "format", p.store.Preferred())

	if err := p.preflight(defs); err != nil {
		return nil, err
	}

	results := make([]TableResult, 0, len(defs))
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		src := filepath.Join(p.dirs.Raw, def.FileName)
		t, bytesRead, err := loadSource(def, src)
		if err != nil {
			return results, err
		}
		p.metrics.RowsRead.WithLabelValues(string(StageBronze), def.Name).Add(float64(t.Len()))
		p.metrics.SourceBytes.WithLabelValues(def.Name).Add(float64(bytesRead))

		res, err := p.store.Write(ctx, p.dirs.Bronze, def.Name, t)
		if err != nil {
			return results, err
		}
		p.recordWrite(StageBronze, res)
		results = append(results, TableResult{WriteResult: res, Stage: StageBronze, SourceBytes: bytesRead})

		logger.Info("wrote bronze table",
			"table", def.Name,
			"path", res.Path,
			"rows", res.Rows,
			"format", res.Format,
		)
	}

	logger.Info("bronze ingestion complete", "tables", len(results))
	return results, nil
}

// preflight verifies that every raw extract exists.
func (p *Pipeline) preflight(defs []core.TableDefinition) error {
	// Definitions register from package tables' init.
	if core.TableCount() == 0 {
		return errors.New("no tables registered")
	}
	for _, def := range defs {
		src := filepath.Join(p.dirs.Raw, def.FileName)
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &core.PipelineError{
					Code:   core.CodeMissingSource,
					Table:  def.Name,
					Path:   src,
					Err:    core.ErrMissingSource,
					Detail: "restore the file or pass a different raw directory",
				}
			}
			return fmt.Errorf("stat %s: %w", src, err)
		}
		if info.IsDir() {
			return &core.PipelineError{
				Code:   core.CodeMissingSource,
				Table:  def.Name,
				Path:   src,
				Err:    core.ErrMissingSource,
				Detail: "path is a directory",
			}
		}
	}
	return nil
}

// loadSource parses one raw extract into a typed table with provenance.
func loadSource(def core.TableDefinition, path string) (*core.Table, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, counter := core.NewSourceReader(f)
	header, records, err := storage.ReadRecords(r)
	if err != nil {
		return nil, counter.BytesRead, &core.PipelineError{
			Code:   core.CodeMalformedSource,
			Table:  def.Name,
			Path:   path,
			Err:    fmt.Errorf("%w: %w", core.ErrMalformedSource, err),
		}
	}

	return withProvenance(core.FromRecords(def.Name, header, records), def.FileName), counter.BytesRead, nil
}

// withProvenance prepends SourceFileColumn holding file on every row.
func withProvenance(t *core.Table, file string) *core.Table {
	cols := make([]core.Column, 0, len(t.Columns)+1)
	cols = append(cols, core.Column{Name: SourceFileColumn, Type: core.TypeString})
	cols = append(cols, t.Columns...)

	out := core.NewTable(t.Name, cols)
	out.Rows = make([][]core.Value, len(t.Rows))
	source := core.StringValue(file)
	for i, row := range t.Rows {
		tagged := make([]core.Value, 0, len(cols))
		tagged = append(tagged, source)
		out.Rows[i] = append(tagged, row...)
	}
	return out
}
