// Package cohort builds the surgical ICU readmission cohort from eICU unit
// stays: it validates visit sequences, selects one index surgery per hospital
// stay, resolves lateral-transfer chains into episodes, labels each episode
// and applies the ordered exclusion stages.
package cohort

import (
	"fmt"
	"slices"
	"strings"
)

// MaxTransfers is the number of transfer columns in a cohort row and the
// upper bound for Policy.MaxChainHops.
const MaxTransfers = 4

// Policy holds every constant the cohort depends on. DefaultPolicy returns
// the values used to build the published dataset.
type Policy struct {
	ReadmissionWindowMinutes     int     `mapstructure:"readmission_window_minutes" json:"readmission_window_minutes"`
	DeathWindowMinutes           int     `mapstructure:"death_window_minutes" json:"death_window_minutes"`
	MinIndexLOSMinutes           int     `mapstructure:"min_index_los_minutes" json:"min_index_los_minutes"`
	MaxChainHops                 int     `mapstructure:"max_chain_hops" json:"max_chain_hops"`
	LateralTransferMaxGapMinutes int     `mapstructure:"lateral_transfer_max_gap_minutes" json:"lateral_transfer_max_gap_minutes"` // 0 disables the check
	MinSignalCoverage            float64 `mapstructure:"min_signal_coverage" json:"min_signal_coverage"`

	DeferralLocations       []string `mapstructure:"deferral_locations" json:"deferral_locations"`
	ReadmissionLocations    []string `mapstructure:"readmission_locations" json:"readmission_locations"`
	NonReadmissionLocations []string `mapstructure:"non_readmission_locations" json:"non_readmission_locations"`
	ExceptionLocations      []string `mapstructure:"exception_locations" json:"exception_locations"`

	ExcludedReadmitAdmitSources []string `mapstructure:"excluded_readmit_admit_sources" json:"excluded_readmit_admit_sources"`
	NonICUStayTypes             []string `mapstructure:"non_icu_stay_types" json:"non_icu_stay_types"`
	ComfortCareItems            []string `mapstructure:"comfort_care_items" json:"comfort_care_items"`
	DNRItems                    []string `mapstructure:"dnr_items" json:"dnr_items"`
	ExpiredStatus               string   `mapstructure:"expired_status" json:"expired_status"`

	OperativePathKeyword string `mapstructure:"operative_path_keyword" json:"operative_path_keyword"`
	SurgicalApachePrefix string `mapstructure:"surgical_apache_prefix" json:"surgical_apache_prefix"`
}

func DefaultPolicy() Policy {
	return Policy{
		ReadmissionWindowMinutes:     4320,
		DeathWindowMinutes:           4320,
		MinIndexLOSMinutes:           120,
		MaxChainHops:                 4,
		LateralTransferMaxGapMinutes: 180,
		MinSignalCoverage:            0.5,

		DeferralLocations:       []string{"Other ICU", "ICU", "Other ICU (CABG)"},
		ReadmissionLocations:    []string{"Floor", "Telemetry", "Acute Care/Floor", "Step-Down Unit (SDU)"},
		NonReadmissionLocations: []string{"Home", "Skilled Nursing Facility", "Rehabilitation", "Nursing Home"},
		ExceptionLocations: []string{"Death", "", "Other Hospital", "Other External",
			"Other", "Other Internal", "Operating Room"},

		ExcludedReadmitAdmitSources: []string{"Other ICU", "Direct Admit", "ED"},
		NonICUStayTypes:             []string{"stepdown/other"},
		ComfortCareItems:            []string{"Comfort measures only", "No augmentation of care"},
		DNRItems:                    []string{"Do not resuscitate", "No CPR"},
		ExpiredStatus:               "Expired",

		OperativePathKeyword: "|Operative",
		SurgicalApachePrefix: "S-",
	}
}

// Validate rejects policies the pipeline cannot honor.
func (p Policy) Validate() error {
	if p.ReadmissionWindowMinutes < 0 {
		return fmt.Errorf("readmission window must be >= 0, got %d", p.ReadmissionWindowMinutes)
	}
	if p.DeathWindowMinutes < 0 {
		return fmt.Errorf("death window must be >= 0, got %d", p.DeathWindowMinutes)
	}
	if p.MinIndexLOSMinutes < 0 {
		return fmt.Errorf("minimum index LOS must be >= 0, got %d", p.MinIndexLOSMinutes)
	}
	if p.MaxChainHops < 0 || p.MaxChainHops > MaxTransfers {
		return fmt.Errorf("max chain hops must be in [0,%d], got %d", MaxTransfers, p.MaxChainHops)
	}
	if p.LateralTransferMaxGapMinutes < 0 {
		return fmt.Errorf("lateral transfer gap must be >= 0, got %d", p.LateralTransferMaxGapMinutes)
	}
	if p.MinSignalCoverage < 0 || p.MinSignalCoverage > 1 {
		return fmt.Errorf("signal coverage threshold must be in [0,1], got %g", p.MinSignalCoverage)
	}
	if p.OperativePathKeyword == "" && p.SurgicalApachePrefix == "" {
		return fmt.Errorf("at least one surgical marker must be set")
	}
	for _, loc := range p.DeferralLocations {
		if p.classify(loc) != BucketUnknown {
			return fmt.Errorf("deferral location %q is also a discharge bucket", loc)
		}
	}
	return nil
}

func (p Policy) isDeferral(loc string) bool { return in(p.DeferralLocations, loc) }
func (p Policy) isNonICU(stayType string) bool { return in(p.NonICUStayTypes, stayType) }

// in compares trimmed, case-sensitive values; eICU categories are stable
// strings but exports sometimes carry padding.
func in(set []string, v string) bool {
	return slices.Contains(set, strings.TrimSpace(v))
}
