package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"icureadmit/internal/coverage"
	"icureadmit/internal/eicu"
)

func coverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Compute signal coverage proportion tables from pre-processed signal files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			signalsDir, _ := cmd.Flags().GetString("signals-dir")
			if signalsDir == "" {
				signalsDir = cfg.Signals.Dir
			}
			if signalsDir == "" {
				return fmt.Errorf("--signals-dir or signals.dir is required")
			}
			cohortPath, _ := cmd.Flags().GetString("cohort")
			start := time.Now()

			tables, err := loadTables(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			los, err := restrictLOS(tables.Stays, cohortPath)
			if err != nil {
				return err
			}

			tbl, err := coverage.Compute(signalsDir, los)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			whole := filepath.Join(cfg.Output.Dir, "PTS_proportion_covered_whole_stay.csv")
			last := filepath.Join(cfg.Output.Dir, "PTS_proportion_covered_24h.csv")
			if err := tbl.WriteProportions(whole, last); err != nil {
				return err
			}
			log.Info("coverage written",
				zap.Int("stays", len(tbl.StayIDs())),
				zap.String("whole_stay", whole),
				zap.String("last_24h", last),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		},
	}
	cmd.Flags().String("signals-dir", "", "Directory of pre-processed signal CSV files (overrides signals.dir)")
	cmd.Flags().String("cohort", "", "Cohort CSV or Parquet file restricting the stays to compute (default: every stay)")
	return cmd
}

// restrictLOS maps stay_id to unit LOS, limited to the chain stays of the
// cohort at cohortPath when it is set.
func restrictLOS(stays []eicu.UnitStay, cohortPath string) (map[int64]int, error) {
	all := make(map[int64]int, len(stays))
	for _, s := range stays {
		all[s.StayID] = s.LOS()
	}
	if cohortPath == "" {
		return all, nil
	}
	rows, err := readCohort(cohortPath)
	if err != nil {
		return nil, err
	}
	los := make(map[int64]int)
	for _, r := range rows {
		for _, id := range r.ChainIDs() {
			if v, ok := all[id]; ok {
				los[id] = v
			}
		}
	}
	return los, nil
}
