package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"icureadmit/internal/obswindow"
)

func windowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Write observation windows for every episode of a cohort",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			start := time.Now()

			cohortPath, _ := cmd.Flags().GetString("cohort")
			if cohortPath == "" {
				cohortPath = filepath.Join(cfg.Output.Dir, cohortCSV)
			}
			rows, err := readCohort(cohortPath)
			if err != nil {
				return err
			}
			tables, err := loadTables(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			windows := obswindow.Generate(rows, obswindow.LOSByStay(tables.Stays), cfg.Windows.Hours, cfg.Windows.Hourly)

			if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			out := filepath.Join(cfg.Output.Dir, "observation_windows.csv")
			if err := obswindow.WriteCSV(out, windows); err != nil {
				return err
			}
			log.Info("observation windows written",
				zap.Int("episodes", len(rows)),
				zap.Int("windows", len(windows)),
				zap.String("path", out),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		},
	}
	cmd.Flags().String("cohort", "", "Cohort CSV or Parquet file (default: <output.dir>/cohort.csv)")
	return cmd
}
