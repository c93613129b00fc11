// Package pipeline runs the bronze, silver and gold stages.
//
// Each stage is a full materialization: it reads the upstream layer from disk,
// overwrites its own artifacts, and can be re-run on its own. Stages run one
// table at a time on the calling goroutine.
package pipeline

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/metrics"
	"github.com/JonMunkholm/medallion/internal/storage"
)

// Stage names a pipeline step.
type Stage string

const (
	StageBronze Stage = "bronze"
	StageSilver Stage = "silver"
	StageGold   Stage = "gold"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageBronze, StageSilver, StageGold}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Dirs holds the layer locations.
type Dirs struct {
	Raw    string
	Bronze string
	Silver string
	Gold   string
}

// TableResult reports the outcome of one table in one stage.
type TableResult struct {
	storage.WriteResult
	Stage       Stage             `json:"stage"`
	SourceBytes int64             `json:"sourceBytes,omitempty"`
	Refine      *core.RefineStats `json:"refine,omitempty"`
}

// Pipeline executes stages against a set of layer directories.
type Pipeline struct {
	dirs    Dirs
	store   *storage.Store
	metrics *metrics.Registry
}

// New creates a pipeline. A nil registry gets a private one.
func New(dirs Dirs, store *storage.Store, m *metrics.Registry) *Pipeline {
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Pipeline{dirs: dirs, store: store, metrics: m}
}

// Dirs returns the configured layer directories.
func (p *Pipeline) Dirs() Dirs { return p.dirs }

// Run executes a single stage. The gold stage's table is discarded; use Gold
// to keep it.
func (p *Pipeline) Run(ctx context.Context, stage Stage) ([]TableResult, error) {
	switch stage {
	case StageBronze:
		return p.Bronze(ctx)
	case StageSilver:
		return p.Silver(ctx)
	case StageGold:
		_, res, err := p.Gold(ctx)
		if err != nil {
			return nil, err
		}
		return []TableResult{res}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

func (p *Pipeline) recordWrite(stage Stage, res storage.WriteResult) {
	p.metrics.RowsWritten.WithLabelValues(string(stage), res.Table).Add(float64(res.Rows))
	if res.Degraded {
		p.metrics.DegradedWrites.WithLabelValues(string(stage), res.Table).Inc()
	}
}
