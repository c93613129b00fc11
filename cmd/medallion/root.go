package main

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/medallion/internal/config"
	_ "github.com/JonMunkholm/medallion/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/medallion/internal/export"
	"github.com/JonMunkholm/medallion/internal/logging"
	"github.com/JonMunkholm/medallion/internal/metrics"
	"github.com/JonMunkholm/medallion/internal/pipeline"
	"github.com/JonMunkholm/medallion/internal/storage"
)

// rootFlags hold command-line overrides of the environment configuration.
type rootFlags struct {
	rawDir    string
	bronzeDir string
	silverDir string
	goldDir   string
	format    string
	logLevel  string
	logFormat string
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg     *config.Config
	metrics *metrics.Registry
	runner  *pipeline.Runner
	pool    *pgxpool.Pool
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     = &app{}
	)

	root := &cobra.Command{
		Use:   "medallion",
		Short: "Olist e-commerce medallion pipeline",
		Long: `Load the nine Olist extracts into a bronze layer, refine eight of them into
typed silver tables, and compose the gold orders table.

Stages:
  bronze    raw CSV -> bronze artifacts tagged with _source_file
  silver    bronze -> silver_<table> (typed, deduplicated, key-complete)
  gold      silver orders, customers and payments -> gold_orders`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.rawDir, "raw-dir", "", "directory holding the raw extracts (env RAW_DIR)")
	pf.StringVar(&flags.bronzeDir, "bronze-dir", "", "bronze destination (env BRONZE_DIR)")
	pf.StringVar(&flags.silverDir, "silver-dir", "", "silver destination (env SILVER_DIR)")
	pf.StringVar(&flags.goldDir, "gold-dir", "", "gold destination (env GOLD_DIR)")
	pf.StringVar(&flags.format, "format", "", "preferred artifact encoding: parquet or csv (env OUTPUT_FORMAT)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.StringVar(&flags.logFormat, "log-format", "", "text or json (env LOG_FORMAT)")

	root.AddCommand(
		newRunCmd(a),
		newStageCmd(a, pipeline.StageBronze, "Load the raw extracts into the bronze layer"),
		newStageCmd(a, pipeline.StageSilver, "Refine bronze tables into silver tables"),
		newStageCmd(a, pipeline.StageGold, "Compose the gold orders table from silver"),
		newServeCmd(a),
	)
	return root
}

// setup loads configuration and builds the runner.
func (a *app) setup(cmd *cobra.Command, flags rootFlags) error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	a.cfg = cfg

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	slog.Info("configuration loaded", "config", cfg.String())

	format, err := storage.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	a.metrics = metrics.NewRegistry()
	p := pipeline.New(pipeline.Dirs{
		Raw:    cfg.Paths.RawDir,
		Bronze: cfg.Paths.BronzeDir,
		Silver: cfg.Paths.SilverDir,
		Gold:   cfg.Paths.GoldDir,
	}, storage.NewStore(format), a.metrics)

	var exporter pipeline.GoldExporter
	if cfg.Database.ExportEnabled() {
		a.pool, err = export.Connect(cmd.Context(), export.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        int32(cfg.Database.MaxConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		pg, err := export.NewPostgres(a.pool, cfg.Database.GoldTable)
		if err != nil {
			return err
		}
		exporter = pg
	}

	a.runner = pipeline.NewRunner(p, exporter)
	return nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// applyOverrides copies non-empty flags over the loaded configuration.
func applyOverrides(cfg *config.Config, flags rootFlags) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Paths.RawDir, flags.rawDir)
	set(&cfg.Paths.BronzeDir, flags.bronzeDir)
	set(&cfg.Paths.SilverDir, flags.silverDir)
	set(&cfg.Paths.GoldDir, flags.goldDir)
	set(&cfg.Output.Format, flags.format)
	set(&cfg.Logging.Level, flags.logLevel)
	set(&cfg.Logging.Format, flags.logFormat)
}
