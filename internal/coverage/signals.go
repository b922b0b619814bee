// Package coverage tracks which physiologic signals were recorded for each
// ICU stay and how much of the stay they cover.
package coverage

import "strings"

// Signal names a periodic vital-sign series as it appears in the
// pre-processed signal files.
type Signal string

const (
	SpO2        Signal = "sao2"
	HeartRate   Signal = "heartrate"
	Respiration Signal = "respiration"
	Systolic    Signal = "allsystolic"
	Diastolic   Signal = "alldiastolic"
	MeanBP      Signal = "allmean"
)

// Signals is the fixed set every cohort episode must carry.
var Signals = []Signal{SpO2, HeartRate, Respiration, Systolic, Diastolic, MeanBP}

// Window is the span a coverage proportion is measured over.
type Window int

const (
	WholeStay Window = iota
	Last24h
)

var Windows = []Window{WholeStay, Last24h}

func (w Window) String() string {
	if w == Last24h {
		return "last_24h"
	}
	return "whole_stay"
}

// Last24hMinutes is the span of the Last24h window.
const Last24hMinutes = 1440

// MinutesPerPoint is how long one observation is taken to cover. Periodic
// vitals are charted every 5 minutes; blood pressure is resampled to 1 minute.
func (s Signal) MinutesPerPoint() int {
	if s.IsBloodPressure() {
		return 1
	}
	return 5
}

func (s Signal) IsBloodPressure() bool {
	return strings.HasPrefix(string(s), "all")
}

// column returns the proportion table column for s in window w.
func (s Signal) column(w Window) string {
	if w == Last24h {
		return "prop_24" + string(s)
	}
	return "prop" + string(s)
}
