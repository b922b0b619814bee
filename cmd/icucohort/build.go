package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"icureadmit/internal/cohort"
	"icureadmit/internal/cohortio"
	"icureadmit/internal/config"
	"icureadmit/internal/coverage"
	"icureadmit/internal/eicu"
	"icureadmit/internal/obswindow"
	"icureadmit/internal/report"
)

const (
	cohortCSV     = "cohort.csv"
	cohortParquet = "cohort.parquet"
)

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the labeled cohort table from eICU",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runBuild(cmd.Context(), cfg, log)
		},
	}
}

func runBuild(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	start := time.Now()

	tables, err := loadTables(ctx, cfg, log)
	if err != nil {
		return err
	}

	in := cohort.Inputs{
		Stays:       tables.Stays,
		AdmissionDx: tables.AdmissionDx,
		ApachePred:  tables.ApachePred,
		CarePlan:    tables.CarePlan,
	}
	if cfg.SignalsEnabled() {
		tbl, err := loadSignals(cfg, tables.Stays, log)
		if err != nil {
			return err
		}
		in.Signals = tbl
	} else {
		log.Warn("no signal inputs configured; signal stages will be skipped")
	}

	res, err := cohort.NewBuilder(cfg.Policy, log).Build(in)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	var outputs []string
	if cfg.HasFormat("csv") {
		p := filepath.Join(cfg.Output.Dir, cohortCSV)
		if err := cohortio.WriteCSVFile(p, res.Rows); err != nil {
			return err
		}
		outputs = append(outputs, p)
	}
	if cfg.HasFormat("parquet") {
		p := filepath.Join(cfg.Output.Dir, cohortParquet)
		if err := cohortio.WriteParquetFile(p, res.Rows); err != nil {
			return err
		}
		outputs = append(outputs, p)
	}

	if cfg.Output.Workbook != "" {
		p := filepath.Join(cfg.Output.Dir, cfg.Output.Workbook)
		if err := writeSummaryWorkbook(p, cfg.Policy, res, tables); err != nil {
			return err
		}
		outputs = append(outputs, p)
	}

	if cfg.Output.Report != "" {
		rep := report.NewRunReport(sourceName(cfg), cfg.Policy, start, res)
		rep.Outputs = outputs
		p := filepath.Join(cfg.Output.Dir, cfg.Output.Report)
		if err := rep.WriteJSON(p); err != nil {
			return err
		}
		log.Info("run report written", zap.String("path", p), zap.String("run_id", rep.RunID.String()))
	}

	log.Info("build complete",
		zap.Int("rows", len(res.Rows)),
		zap.Strings("outputs", outputs),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// loadSignals builds the coverage table from the observation files, the
// published proportion files, or both.
func loadSignals(cfg *config.Config, stays []eicu.UnitStay, log *zap.Logger) (*coverage.Table, error) {
	start := time.Now()
	tbl, err := coverage.Load(cfg.Signals.Dir, cfg.Signals.CoverageWholeFile, cfg.Signals.Coverage24hFile,
		obswindow.LOSByStay(stays))
	if err != nil {
		return nil, err
	}
	log.Info("signal coverage loaded",
		zap.Int("stays", len(tbl.StayIDs())),
		zap.Bool("presence", tbl.HasPresence()),
		zap.Bool("computed", cfg.Signals.CoverageWholeFile == ""),
		zap.Duration("elapsed", time.Since(start)),
	)
	return tbl, nil
}

func writeSummaryWorkbook(path string, p cohort.Policy, res *cohort.Result, tables *eicu.Tables) error {
	ids := []int64{}
	for _, r := range res.Rows {
		ids = append(ids, r.ChainIDs()...)
	}
	dc := report.CareDirectiveCounts(tables.CarePlan, ids, report.Directives(p))
	hs := report.SummarizeHospitals(res.Rows, tables.Stays, tables.Hospitals)
	return report.WriteWorkbook(path, report.Workbook{
		Stages:     res.Stages,
		Buckets:    &res.Buckets,
		Directives: &dc,
		Hospitals:  &hs,
	})
}

func sourceName(cfg *config.Config) string {
	if cfg.Source == config.SourcePostgres {
		return "postgres:" + cfg.EICU.Schema
	}
	return "csv:" + cfg.EICU.Dir
}
