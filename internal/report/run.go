// Package report writes run metadata and summary tables next to a cohort.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	"icureadmit/internal/cohort"
)

// LabelCounts counts positive labels among cohort rows.
type LabelCounts struct {
	Readmission      int `json:"readmission"`
	Death            int `json:"death_after_discharge"`
	BadDischargePlan int `json:"bad_discharge_plan"`
}

// RunReport describes one build. It is kept out of the cohort table so the
// cohort stays byte-identical across runs.
type RunReport struct {
	RunID           uuid.UUID            `json:"run_id"`
	Source          string               `json:"source"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
	Policy          cohort.Policy        `json:"policy"`
	Stages          []cohort.StageCount  `json:"stages"`
	Buckets         cohort.BucketSummary `json:"buckets"`
	ChainOutcomes   map[string]int       `json:"chain_outcomes"`
	DuplicateVisits int                  `json:"duplicate_visits"`
	CohortSize      int                  `json:"cohort_size"`
	Labels          LabelCounts          `json:"labels"`
	Outputs         []string             `json:"outputs,omitempty"`
}

func NewRunReport(source string, p cohort.Policy, started time.Time, res *cohort.Result) *RunReport {
	return &RunReport{
		RunID:           uuid.New(),
		Source:          source,
		StartedAt:       started.UTC(),
		FinishedAt:      time.Now().UTC(),
		Policy:          p,
		Stages:          res.Stages,
		Buckets:         res.Buckets,
		ChainOutcomes:   res.ChainOutcomes,
		DuplicateVisits: res.DuplicateVisits,
		CohortSize:      len(res.Rows),
		Labels:          CountLabels(res.Rows),
	}
}

func CountLabels(rows []cohort.CohortRow) LabelCounts {
	var lc LabelCounts
	for _, r := range rows {
		if r.Readmission {
			lc.Readmission++
		}
		if r.Death {
			lc.Death++
		}
		if r.BadDischargePlan {
			lc.BadDischargePlan++
		}
	}
	return lc
}

// WriteJSON writes the report as indented JSON.
func (r *RunReport) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadRunReport loads a report written by WriteJSON.
func ReadRunReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &r, nil
}

// ReadRunReportIfExists is ReadRunReport returning nil, nil when path does
// not exist. Any other failure is an error.
func ReadRunReportIfExists(path string) (*RunReport, error) {
	r, err := ReadRunReport(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return r, err
}
