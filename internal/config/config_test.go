package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icureadmit/internal/cohort"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.Source)
	assert.Equal(t, "eicu_crd", cfg.EICU.Schema)
	assert.Equal(t, "patient.csv", cfg.EICU.Files.Patient)
	assert.Equal(t, "carePlanGeneral.csv", cfg.EICU.Files.CarePlan)
	assert.Equal(t, []string{"csv"}, cfg.Output.Formats)
	assert.Equal(t, []int{1, 3, 6, 12, 24}, cfg.Windows.Hours)
	assert.Equal(t, cohort.DefaultPolicy(), cfg.Policy)
	assert.False(t, cfg.SignalsEnabled())

	// eicu.dir has no default.
	assert.Error(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icucohort.yaml")
	yaml := `
source: csv
eicu:
  dir: /data/eicu
output:
  dir: /data/out
  formats: [CSV, parquet]
  workbook: summary.xlsx
signals:
  coverage_whole_file: whole.csv
  coverage_24h_file: last24.csv
policy:
  max_chain_hops: 2
  exception_locations: ["Death", "", "Other"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv("ICUCOHORT_POLICY_READMISSION_WINDOW_MINUTES", "2880")
	t.Setenv("ICUCOHORT_LOG_FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/eicu", cfg.EICU.Dir)
	assert.True(t, cfg.HasFormat("csv"))
	assert.True(t, cfg.HasFormat("parquet"))
	assert.Equal(t, "summary.xlsx", cfg.Output.Workbook)
	assert.True(t, cfg.SignalsEnabled())
	assert.Equal(t, "console", cfg.Log.Format)

	assert.Equal(t, 2, cfg.Policy.MaxChainHops)
	assert.Equal(t, 2880, cfg.Policy.ReadmissionWindowMinutes)
	assert.Equal(t, []string{"Death", "", "Other"}, cfg.Policy.ExceptionLocations)
	// Untouched policy keys keep their defaults.
	assert.Equal(t, cohort.DefaultPolicy().DeferralLocations, cfg.Policy.DeferralLocations)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Source:  SourceCSV,
			EICU:    EICUConfig{Dir: "/data/eicu"},
			Output:  OutputConfig{Dir: "out", Formats: []string{"csv"}},
			Windows: WindowsConfig{Hours: []int{1}},
			Log:     LogConfig{Level: "info", Format: "json"},
			Policy:  cohort.DefaultPolicy(),
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown source", func(c *Config) { c.Source = "sqlite" }},
		{"postgres without url", func(c *Config) { c.Source = SourcePostgres }},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }},
		{"no formats", func(c *Config) { c.Output.Formats = nil }},
		{"bad format", func(c *Config) { c.Output.Formats = []string{"xlsx"} }},
		{"half coverage files", func(c *Config) { c.Signals.CoverageWholeFile = "whole.csv" }},
		{"bad window hours", func(c *Config) { c.Windows.Hours = []int{0} }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"too many hops", func(c *Config) { c.Policy.MaxChainHops = 5 }},
		{"negative hops", func(c *Config) { c.Policy.MaxChainHops = -1 }},
		{"coverage above one", func(c *Config) { c.Policy.MinSignalCoverage = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
