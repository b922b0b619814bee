// Package obswindow derives observation windows for cohort episodes. All
// offsets are minutes from the index stay's unit admission.
package obswindow

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"icureadmit/internal/cohort"
	"icureadmit/internal/eicu"
)

// DefaultHours are the trailing window lengths used for model features.
var DefaultHours = []int{1, 3, 6, 12, 24}

// Window is one observation window of an episode.
type Window struct {
	StayID int64 // index stay
	Name   string
	Start  int
	End    int
	LOS    int
}

// LOSByStay maps stay_id to unit LOS.
func LOSByStay(stays []eicu.UnitStay) map[int64]int {
	m := make(map[int64]int, len(stays))
	for _, s := range stays {
		m[s.StayID] = s.LOS()
	}
	return m
}

// EpisodeLOS sums the LOS of every stay in the row's chain. Stays missing
// from los contribute nothing.
func EpisodeLOS(row cohort.CohortRow, los map[int64]int) int {
	total := 0
	for _, id := range row.ChainIDs() {
		total += los[id]
	}
	return total
}

// Generate returns, per row, a whole_stay window, a last_<h>h window for each
// of hours, and with hourly set a cumulative hour_<k> window for every full
// hour of the episode.
func Generate(rows []cohort.CohortRow, los map[int64]int, hours []int, hourly bool) []Window {
	var out []Window
	for _, r := range rows {
		total := EpisodeLOS(r, los)
		out = append(out, Window{StayID: r.StayID, Name: "whole_stay", Start: 0, End: total, LOS: total})
		for _, h := range hours {
			out = append(out, Window{
				StayID: r.StayID,
				Name:   fmt.Sprintf("last_%dh", h),
				Start:  max(0, total-60*h),
				End:    total,
				LOS:    total,
			})
		}
		if !hourly {
			continue
		}
		for k := 1; k <= total/60; k++ {
			out = append(out, Window{
				StayID: r.StayID,
				Name:   fmt.Sprintf("hour_%d", k),
				Start:  0,
				End:    60 * k,
				LOS:    total,
			})
		}
	}
	return out
}

// WriteCSV writes windows with columns stay_id, window, start_offset,
// end_offset, los.
func WriteCSV(path string, windows []Window) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"stay_id", "window", "start_offset", "end_offset", "los"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, win := range windows {
		rec := []string{
			strconv.FormatInt(win.StayID, 10),
			win.Name,
			strconv.Itoa(win.Start),
			strconv.Itoa(win.End),
			strconv.Itoa(win.LOS),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write window: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
