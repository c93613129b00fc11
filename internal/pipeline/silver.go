package pipeline

import (
	"context"
	"path/filepath"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/logging"
	"github.com/JonMunkholm/medallion/internal/storage"
)

// SilverArtifact returns the silver artifact name for a table.
func SilverArtifact(table string) string { return "silver_" + table }

// Silver refines every bronze table that has a schema and writes it to the
// silver layer. All bronze inputs are checked first, so a missing artifact
// leaves the silver directory untouched.
func (p *Pipeline) Silver(ctx context.Context) ([]TableResult, error) {
	logger := logging.WithFields(ctx, "stage", StageSilver)
	logger.Info("refining bronze tables", "bronze_dir", p.dirs.Bronze, "silver_dir", p.dirs.Silver)

	defs := core.Refinable()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	if err := p.requireArtifacts(p.dirs.Bronze, names...); err != nil {
		return nil, err
	}

	results := make([]TableResult, 0, len(defs))
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		bronze, format, err := p.store.Read(p.dirs.Bronze, def.Name)
		if err != nil {
			return results, err
		}
		p.metrics.RowsRead.WithLabelValues(string(StageSilver), def.Name).Add(float64(bronze.Len()))

		refined, stats, err := core.Refine(bronze, *def.Schema)
		if err != nil {
			return results, err
		}
		p.metrics.RowsDropped.WithLabelValues(def.Name, "duplicate").Add(float64(stats.Duplicates))
		p.metrics.RowsDropped.WithLabelValues(def.Name, "null_key").Add(float64(stats.NullKeys))

		res, err := p.store.Write(ctx, p.dirs.Silver, SilverArtifact(def.Name), refined)
		if err != nil {
			return results, err
		}
		p.recordWrite(StageSilver, res)
		results = append(results, TableResult{WriteResult: res, Stage: StageSilver, Refine: &stats})

		logger.Info("wrote silver table",
			"table", def.Name,
			"path", res.Path,
			"bronze_format", format,
			"rows_before", stats.Before,
			"duplicates", stats.Duplicates,
			"null_keys", stats.NullKeys,
			"rows", stats.After,
		)
	}

	logger.Info("silver tables written", "silver_dir", p.dirs.Silver, "tables", len(results))
	return results, nil
}

// requireArtifacts checks that every named artifact is present in dir before
// a stage writes anything.
func (p *Pipeline) requireArtifacts(dir string, names ...string) error {
	for _, name := range names {
		if !p.store.Exists(dir, name) {
			return &core.PipelineError{
				Code:   core.CodeMissingArtifact,
				Table:  name,
				Path:   filepath.Join(dir, name+".{parquet,csv}"),
				Err:    core.ErrMissingArtifact,
				Detail: "run the upstream stage first",
			}
		}
	}
	return nil
}

// ReadSilver loads a silver table with its declared types. CSV artifacts are
// re-typed from the table schema.
func (p *Pipeline) ReadSilver(table string) (*core.Table, error) {
	t, format, err := p.store.Read(p.dirs.Silver, SilverArtifact(table))
	if err != nil {
		return nil, err
	}
	if format == storage.FormatCSV {
		if def, ok := core.Get(table); ok && def.Schema != nil {
			core.ApplyTypes(t, *def.Schema)
		}
	}
	return t, nil
}
