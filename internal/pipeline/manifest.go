package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is the name of the latest-run manifest in the gold directory.
const ManifestFile = "manifest.latest.json"

// Manifest records the outcome of a successful full run.
type Manifest struct {
	RunID        string        `json:"runId"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt"`
	Bronze       []TableResult `json:"bronze"`
	Silver       []TableResult `json:"silver"`
	Gold         TableResult   `json:"gold"`
	GoldRows     int           `json:"goldRows"`
	ExportedRows int64         `json:"exportedRows,omitempty"`
}

// Degraded reports whether any artifact of the run used the fallback encoding.
func (m Manifest) Degraded() bool {
	for _, group := range [][]TableResult{m.Bronze, m.Silver, {m.Gold}} {
		for _, r := range group {
			if r.Degraded {
				return true
			}
		}
	}
	return false
}

type FilesystemManifest struct {
	baseDir string
}

func NewFilesystemManifest(baseDir string) *FilesystemManifest {
	return &FilesystemManifest{baseDir: baseDir}
}

// PublishLatest replaces the latest manifest.
func (f *FilesystemManifest) PublishLatest(m Manifest) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	file := filepath.Join(f.baseDir, ManifestFile)
	tmp := file + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&m); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadLatest returns the latest manifest. A missing manifest yields an error
// matching os.ErrNotExist.
func (f *FilesystemManifest) ReadLatest() (Manifest, error) {
	file := filepath.Join(f.baseDir, ManifestFile)
	data, err := os.ReadFile(file)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}
