package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/logging"
	"github.com/JonMunkholm/medallion/internal/metrics"
)

// ErrRunInProgress is returned when a run is requested while another holds
// the runner.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// GoldExporter materializes the gold table outside the artifact store.
type GoldExporter interface {
	ExportGold(ctx context.Context, gold *core.Table) (int64, error)
}

// Runner serializes pipeline runs and records their manifests.
type Runner struct {
	pipeline  *Pipeline
	manifests *FilesystemManifest
	exporter  GoldExporter
	metrics   *metrics.Registry
	gate      *runGate
}

// NewRunner creates a runner. exporter may be nil.
func NewRunner(p *Pipeline, exporter GoldExporter) *Runner {
	return &Runner{
		pipeline:  p,
		manifests: NewFilesystemManifest(p.dirs.Gold),
		exporter:  exporter,
		metrics:   p.metrics,
		gate:      newRunGate(),
	}
}

// Pipeline returns the underlying pipeline.
func (r *Runner) Pipeline() *Pipeline { return r.pipeline }

// Manifests returns the manifest store.
func (r *Runner) Manifests() *FilesystemManifest { return r.manifests }

// Status reports the active run, if any.
func (r *Runner) Status() GateStatus { return r.gate.Status() }

// WaitIdle blocks until no run is active or ctx is done.
func (r *Runner) WaitIdle(ctx context.Context) error { return r.gate.WaitIdle(ctx) }

// Run executes bronze, silver and gold in order, exports gold when an
// exporter is configured, and publishes the manifest. It returns
// ErrRunInProgress without waiting if another run is active.
func (r *Runner) Run(ctx context.Context) (Manifest, error) {
	m := Manifest{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	if !r.gate.TryAcquire(m.RunID, "all") {
		return Manifest{}, ErrRunInProgress
	}
	defer r.gate.Release()

	ctx = logging.WithRunID(ctx, m.RunID)
	logger := logging.FromContext(ctx)
	logger.Info("pipeline started")

	err := r.runAll(ctx, &m)
	r.metrics.RunDurationSec.Observe(time.Since(m.StartedAt).Seconds())
	if err != nil {
		r.metrics.Runs.WithLabelValues("failed").Inc()
		logger.Error("pipeline failed", "error", err)
		return m, err
	}

	m.FinishedAt = time.Now().UTC()
	if err := r.manifests.PublishLatest(m); err != nil {
		r.metrics.Runs.WithLabelValues("failed").Inc()
		return m, fmt.Errorf("publish manifest: %w", err)
	}

	r.metrics.Runs.WithLabelValues("succeeded").Inc()
	r.metrics.LastSuccessUnix.Set(float64(m.FinishedAt.Unix()))
	logger.Info("pipeline complete",
		"gold_rows", m.GoldRows,
		"degraded", m.Degraded(),
		"duration_ms", m.FinishedAt.Sub(m.StartedAt).Milliseconds(),
	)
	return m, nil
}

func (r *Runner) runAll(ctx context.Context, m *Manifest) error {
	var err error
	if m.Bronze, err = r.pipeline.Bronze(ctx); err != nil {
		return err
	}
	if m.Silver, err = r.pipeline.Silver(ctx); err != nil {
		return err
	}

	gold, res, err := r.pipeline.Gold(ctx)
	if err != nil {
		return err
	}
	m.Gold = res
	m.GoldRows = gold.Len()

	if r.exporter != nil {
		n, err := r.exporter.ExportGold(ctx, gold)
		if err != nil {
			return fmt.Errorf("export gold: %w", err)
		}
		m.ExportedRows = n
	}
	return nil
}

// RunStage executes one stage under the runner lock with its own run ID.
func (r *Runner) RunStage(ctx context.Context, stage Stage) ([]TableResult, error) {
	runID := uuid.NewString()
	if !r.gate.TryAcquire(runID, string(stage)) {
		return nil, ErrRunInProgress
	}
	defer r.gate.Release()

	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithFields(ctx, "stage", stage)
	start := time.Now()

	results, err := r.pipeline.Run(ctx, stage)
	if err != nil {
		logger.Error("stage failed", "error", err)
		return results, err
	}
	logger.Info("stage complete", "tables", len(results), "duration_ms", time.Since(start).Milliseconds())
	return results, nil
}
