package pipeline

// scheduler.go runs the full pipeline on a cron schedule for long-running
// (serve) mode.
//
// Overlapping triggers are skipped: the cron chain skips a tick while the
// previous job is still running, and the runner itself refuses a second
// concurrent run (for example one started over HTTP). A failed run is logged
// and the schedule continues.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/medallion/internal/logging"
)

// Scheduler triggers Runner.Run on a cron expression with a seconds field.
type Scheduler struct {
	cronRunner *cron.Cron
	runner     *Runner
	spec       string
	entry      cron.EntryID
}

// NewScheduler validates spec and registers the pipeline job.
func NewScheduler(ctx context.Context, runner *Runner, spec string) (*Scheduler, error) {
	logger := cronLogger{logger: slog.Default().With("component", "scheduler")}
	s := &Scheduler{
		runner: runner,
		spec:   spec,
		cronRunner: cron.New(
			cron.WithSeconds(),
			cron.WithChain(
				cron.SkipIfStillRunning(logger),
				cron.Recover(logger),
			),
		),
	}

	id, err := s.cronRunner.AddFunc(spec, func() { s.runJob(ctx) })
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cronRunner.Start()
	next := s.cronRunner.Entry(s.entry).Next
	slog.Info("pipeline scheduler started", "schedule", s.spec, "next_run", next)
}

// Stop halts scheduling and returns a context that is done once a running
// job has finished.
func (s *Scheduler) Stop() context.Context {
	slog.Info("pipeline scheduler stopped")
	return s.cronRunner.Stop()
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int { return len(s.cronRunner.Entries()) }

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	logger := logging.FromContext(ctx)
	logger.Info("scheduled run triggered", "schedule", s.spec)

	if _, err := s.runner.Run(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			logger.Info("scheduled run skipped, another run is active")
			return
		}
		logger.Error("scheduled run failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
