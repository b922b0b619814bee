package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"icureadmit/internal/cohort"
	"icureadmit/internal/cohortio"
	"icureadmit/internal/config"
	"icureadmit/internal/eicu"
	"icureadmit/internal/logger"
)

const serviceName = "icucohort"

func main() {
	rootCmd := &cobra.Command{
		Use:          "icucohort",
		Short:        "Build the eICU surgical ICU readmission cohort",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (ICUCOHORT_* env vars override it)")
	rootCmd.PersistentFlags().String("eicu-dir", "", "Directory of eICU CSV files (overrides eicu.dir)")
	rootCmd.PersistentFlags().String("out", "", "Output directory (overrides output.dir)")

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(coverageCmd())
	rootCmd.AddCommand(windowsCmd())
	rootCmd.AddCommand(summaryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config with flag overrides and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if dir, _ := cmd.Flags().GetString("eicu-dir"); dir != "" {
		cfg.EICU.Dir = dir
	}
	if dir, _ := cmd.Flags().GetString("out"); dir != "" {
		cfg.Output.Dir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log.With(zap.String("command", cmd.Name())), nil
}

// openSource returns the configured eICU source and a func releasing it.
func openSource(ctx context.Context, cfg *config.Config) (eicu.Source, func(), error) {
	switch cfg.Source {
	case config.SourcePostgres:
		pool, err := eicu.NewPool(ctx, cfg.EICU.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return &eicu.PostgresSource{Pool: pool, Schema: cfg.EICU.Schema}, pool.Close, nil
	default:
		src := eicu.NewCSVSource(cfg.EICU.Dir)
		if cfg.EICU.Files != (eicu.FileNames{}) {
			src.Files = cfg.EICU.Files
		}
		return src, func() {}, nil
	}
}

// loadTables loads every eICU table and logs the row counts.
func loadTables(ctx context.Context, cfg *config.Config, log *zap.Logger) (*eicu.Tables, error) {
	src, release, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer release()

	tables, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Describe(), err)
	}
	log.Info("eICU tables loaded",
		zap.String("source", src.Describe()),
		zap.Int("stays", len(tables.Stays)),
		zap.Int("admission_dx", len(tables.AdmissionDx)),
		zap.Int("apache_pred_var", len(tables.ApachePred)),
		zap.Int("care_plan", len(tables.CarePlan)),
		zap.Int("hospitals", len(tables.Hospitals)),
	)
	return tables, nil
}

// readCohort reads a cohort table written by build, CSV or Parquet by extension.
func readCohort(path string) ([]cohort.CohortRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return cohortio.ReadParquetFile(path)
	}
	return cohortio.ReadCSV(path)
}
