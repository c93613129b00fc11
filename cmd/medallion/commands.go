package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/medallion/internal/pipeline"
	"github.com/JonMunkholm/medallion/internal/web"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run bronze, silver and gold in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.runner.Run(cmd.Context())
			return err
		},
	}
}

func newStageCmd(a *app, stage pipeline.Stage, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(stage),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.runner.RunStage(cmd.Context(), stage)
			return err
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the pipeline on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = a.cfg.Schedule.Cron
			}
			return serve(cmd.Context(), a, schedule)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron expression with seconds, e.g. "0 0 3 * * *" (env SCHEDULE_CRON)`)
	return cmd
}

// serve blocks until ctx is cancelled, then drains the scheduler and the
// HTTP server within the shutdown timeout.
func serve(ctx context.Context, a *app, schedule string) error {
	var sched *pipeline.Scheduler
	if schedule != "" {
		var err error
		sched, err = pipeline.NewScheduler(ctx, a.runner, schedule)
		if err != nil {
			return err
		}
		sched.Start()
	}

	server := web.NewServer(a.runner, a.metrics, a.cfg.Server)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if sched != nil {
			<-sched.Stop().Done()
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	start := time.Now()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			slog.Warn("scheduled run did not finish in time")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// Runs triggered over HTTP outlive their request.
	if err := a.runner.WaitIdle(shutdownCtx); err != nil {
		slog.Warn("active run did not finish in time", "run", a.runner.Status().RunID)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped", "after", time.Since(start).Round(time.Millisecond))
	return nil
}
