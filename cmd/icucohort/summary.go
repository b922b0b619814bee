package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"icureadmit/internal/report"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write care-directive and hospital summaries for an existing cohort",
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

			ids := []int64{}
			for _, r := range rows {
				ids = append(ids, r.ChainIDs()...)
			}
			dc := report.CareDirectiveCounts(tables.CarePlan, ids, report.Directives(cfg.Policy))
			hs := report.SummarizeHospitals(rows, tables.Stays, tables.Hospitals)

			wb := report.Workbook{Directives: &dc, Hospitals: &hs}
			// Reuse the stage counts of the build that produced the cohort.
			if cfg.Output.Report != "" {
				rep, err := report.ReadRunReportIfExists(filepath.Join(cfg.Output.Dir, cfg.Output.Report))
				if err != nil {
					return err
				}
				if rep != nil {
					wb.Stages = rep.Stages
					wb.Buckets = &rep.Buckets
				} else {
					log.Warn("no run report found; stage sheets omitted")
				}
			}

			name := cfg.Output.Workbook
			if name == "" {
				name = "summary.xlsx"
			}
			if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			out := filepath.Join(cfg.Output.Dir, name)
			if err := report.WriteWorkbook(out, wb); err != nil {
				return err
			}
			log.Info("summary written",
				zap.Int("episodes", len(rows)),
				zap.Int("hospitals", hs.Hospitals),
				zap.String("path", out),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		},
	}
	cmd.Flags().String("cohort", "", "Cohort CSV or Parquet file (default: <output.dir>/cohort.csv)")
	return cmd
}
