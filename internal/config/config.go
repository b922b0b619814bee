package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"icureadmit/internal/cohort"
	"icureadmit/internal/eicu"
)

// EnvPrefix prefixes every environment override; "." in a key becomes "_",
// e.g. ICUCOHORT_EICU_DIR or ICUCOHORT_POLICY_MAX_CHAIN_HOPS.
const EnvPrefix = "ICUCOHORT"

// Source kinds.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Source  string        `mapstructure:"source"`
	EICU    EICUConfig    `mapstructure:"eicu"`
	Signals SignalsConfig `mapstructure:"signals"`
	Output  OutputConfig  `mapstructure:"output"`
	Windows WindowsConfig `mapstructure:"windows"`
	Log     LogConfig     `mapstructure:"log"`
	Policy  cohort.Policy `mapstructure:"policy"`
}

type EICUConfig struct {
	Dir         string         `mapstructure:"dir"`
	DatabaseURL string         `mapstructure:"database_url"`
	Schema      string         `mapstructure:"schema"`
	Files       eicu.FileNames `mapstructure:"files"`
}

// SignalsConfig locates the physiologic-signal inputs. With Dir empty and no
// coverage files the signal stages are skipped.
type SignalsConfig struct {
	Dir               string `mapstructure:"dir"`
	CoverageWholeFile string `mapstructure:"coverage_whole_file"`
	Coverage24hFile   string `mapstructure:"coverage_24h_file"`
}

type OutputConfig struct {
	Dir      string   `mapstructure:"dir"`
	Formats  []string `mapstructure:"formats"`
	Report   string   `mapstructure:"report"`
	Workbook string   `mapstructure:"workbook"`
}

type WindowsConfig struct {
	Hours  []int `mapstructure:"hours"`
	Hourly bool  `mapstructure:"hourly"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	files := eicu.DefaultFileNames()
	v.SetDefault("source", SourceCSV)
	v.SetDefault("eicu.dir", "")
	v.SetDefault("eicu.database_url", "")
	v.SetDefault("eicu.schema", "eicu_crd")
	v.SetDefault("eicu.files.patient", files.Patient)
	v.SetDefault("eicu.files.admission_dx", files.AdmissionDx)
	v.SetDefault("eicu.files.apache_pred_var", files.ApachePredVar)
	v.SetDefault("eicu.files.care_plan", files.CarePlan)
	v.SetDefault("eicu.files.hospital", files.Hospital)

	v.SetDefault("signals.dir", "")
	v.SetDefault("signals.coverage_whole_file", "")
	v.SetDefault("signals.coverage_24h_file", "")

	v.SetDefault("output.dir", "out")
	v.SetDefault("output.formats", []string{"csv"})
	v.SetDefault("output.report", "run_report.json")
	v.SetDefault("output.workbook", "")

	v.SetDefault("windows.hours", []int{1, 3, 6, 12, 24})
	v.SetDefault("windows.hourly", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	p := cohort.DefaultPolicy()
	v.SetDefault("policy.readmission_window_minutes", p.ReadmissionWindowMinutes)
	v.SetDefault("policy.death_window_minutes", p.DeathWindowMinutes)
	v.SetDefault("policy.min_index_los_minutes", p.MinIndexLOSMinutes)
	v.SetDefault("policy.max_chain_hops", p.MaxChainHops)
	v.SetDefault("policy.lateral_transfer_max_gap_minutes", p.LateralTransferMaxGapMinutes)
	v.SetDefault("policy.min_signal_coverage", p.MinSignalCoverage)
	v.SetDefault("policy.deferral_locations", p.DeferralLocations)
	v.SetDefault("policy.readmission_locations", p.ReadmissionLocations)
	v.SetDefault("policy.non_readmission_locations", p.NonReadmissionLocations)
	v.SetDefault("policy.exception_locations", p.ExceptionLocations)
	v.SetDefault("policy.excluded_readmit_admit_sources", p.ExcludedReadmitAdmitSources)
	v.SetDefault("policy.non_icu_stay_types", p.NonICUStayTypes)
	v.SetDefault("policy.comfort_care_items", p.ComfortCareItems)
	v.SetDefault("policy.dnr_items", p.DNRItems)
	v.SetDefault("policy.expired_status", p.ExpiredStatus)
	v.SetDefault("policy.operative_path_keyword", p.OperativePathKeyword)
	v.SetDefault("policy.surgical_apache_prefix", p.SurgicalApachePrefix)
}

// Load reads defaults, then the optional config file at path, then
// ICUCOHORT_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for i, f := range cfg.Output.Formats {
		cfg.Output.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return cfg, nil
}

// Validate checks the settings needed by the build command.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCSV:
		if c.EICU.Dir == "" {
			return fmt.Errorf("eicu.dir is required when source is %q", SourceCSV)
		}
	case SourcePostgres:
		if c.EICU.DatabaseURL == "" {
			return fmt.Errorf("eicu.database_url is required when source is %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("source must be %q or %q, got %q", SourceCSV, SourcePostgres, c.Source)
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("output.formats must name at least one format")
	}
	for _, f := range c.Output.Formats {
		if f != "csv" && f != "parquet" {
			return fmt.Errorf("output.formats: unknown format %q", f)
		}
	}
	if (c.Signals.CoverageWholeFile == "") != (c.Signals.Coverage24hFile == "") {
		return fmt.Errorf("signals.coverage_whole_file and signals.coverage_24h_file must be set together")
	}
	for _, h := range c.Windows.Hours {
		if h <= 0 {
			return fmt.Errorf("windows.hours must be positive, got %d", h)
		}
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}

// HasFormat reports whether the cohort should be written as format.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.Output.Formats, format)
}

// SignalsEnabled reports whether any signal input is configured.
func (c *Config) SignalsEnabled() bool {
	return c.Signals.Dir != "" || c.Signals.CoverageWholeFile != ""
}
