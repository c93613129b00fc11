// Package storage persists pipeline tables as layer artifacts.
//
// Two encodings are supported: parquet (columnar, the default) and CSV
// (text-delimited). Before writing, the preferred encoding is probed against
// the table; if the probe fails the store degrades to CSV and says so in the
// WriteResult, so a run never silently changes format.
//
// Artifacts are written to a temporary file in the destination directory and
// renamed into place. A reader sees either the previous artifact or the new
// one, never a partial file.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/logging"
)

// Format is an artifact encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// Formats lists every encoding in read-preference order.
var Formats = []Format{FormatParquet, FormatCSV}

// ErrUnsupported is returned by Probe when an encoding cannot represent a table.
var ErrUnsupported = errors.New("encoding unsupported")

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatParquet:
		return FormatParquet, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want parquet or csv)", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// WriteResult reports where and how an artifact was written.
type WriteResult struct {
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Format   Format `json:"format"`
	Path     string `json:"path"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Probe reports whether format f can encode t. CSV can encode any table.
func Probe(f Format, t *core.Table) error {
	switch f {
	case FormatCSV:
		return nil
	case FormatParquet:
		return probeParquet(t)
	default:
		return fmt.Errorf("%w: unknown format %q", ErrUnsupported, f)
	}
}

// Store reads and writes artifacts with a preferred encoding.
type Store struct {
	preferred Format
}

// NewStore creates a store that writes preferred when it can.
func NewStore(preferred Format) *Store {
	if preferred == "" {
		preferred = FormatParquet
	}
	return &Store{preferred: preferred}
}

// Preferred returns the configured encoding.
func (s *Store) Preferred() Format { return s.preferred }

// Write stores t as <dir>/<name>.<ext>, overwriting any previous artifact of
// the same name in either encoding.
func (s *Store) Write(ctx context.Context, dir, name string, t *core.Table) (WriteResult, error) {
	logger := logging.WithFields(ctx, "table", t.Name, "artifact", name)

	res := WriteResult{Table: t.Name, Rows: t.Len(), Format: s.preferred}
	if err := Probe(s.preferred, t); err != nil {
		if s.preferred == FormatCSV {
			return res, writeError(t.Name, dir, err)
		}
		res.Format = FormatCSV
		res.Degraded = true
		res.Reason = err.Error()
		logger.Warn("preferred encoding unavailable, falling back",
			"preferred", s.preferred,
			"format", res.Format,
			"reason", res.Reason,
		)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, writeError(t.Name, dir, err)
	}

	res.Path = filepath.Join(dir, name+res.Format.Ext())
	var encode func(io.Writer) error
	switch res.Format {
	case FormatParquet:
		encode = func(w io.Writer) error { return writeParquet(w, t) }
	default:
		encode = func(w io.Writer) error { return writeCSV(w, t) }
	}
	if err := writeAtomic(res.Path, encode); err != nil {
		return res, writeError(t.Name, res.Path, err)
	}

	for _, other := range Formats {
		if other == res.Format {
			continue
		}
		stale := filepath.Join(dir, name+other.Ext())
		if err := os.Remove(stale); err == nil {
			logger.Debug("removed stale artifact", "path", stale)
		} else if !errors.Is(err, os.ErrNotExist) {
			return res, writeError(t.Name, stale, err)
		}
	}

	logger.Debug("artifact written", "path", res.Path, "rows", res.Rows, "format", res.Format)
	return res, nil
}

// Read loads <dir>/<name>, trying each encoding in preference order. The
// returned table is named name.
func (s *Store) Read(dir, name string) (*core.Table, Format, error) {
	for _, f := range Formats {
		path := filepath.Join(dir, name+f.Ext())
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", err
		}

		var (
			t   *core.Table
			err error
		)
		switch f {
		case FormatParquet:
			t, err = readParquet(path, name)
		default:
			t, err = readCSV(path, name)
		}
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}
		return t, f, nil
	}

	return nil, "", &core.PipelineError{
		Code:   core.CodeMissingArtifact,
		Table:  name,
		Path:   filepath.Join(dir, name+".{parquet,csv}"),
		Err:    core.ErrMissingArtifact,
		Detail: "run the upstream stage first",
	}
}

// Exists reports whether an artifact named name is present in any encoding.
func (s *Store) Exists(dir, name string) bool {
	for _, f := range Formats {
		if _, err := os.Stat(filepath.Join(dir, name+f.Ext())); err == nil {
			return true
		}
	}
	return false
}

// writeAtomic encodes into a temp file next to path and renames it into place.
func writeAtomic(path string, encode func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = encode(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func writeError(table, path string, err error) error {
	return &core.PipelineError{
		Code:  core.CodeWrite,
		Table: table,
		Path:  path,
		Err:   fmt.Errorf("%w: %w", core.ErrWrite, err),
	}
}
