package coverage

import "fmt"

// Compute builds presence and coverage proportions from raw observation
// files for the stays in los (stay_id → unit LOS in minutes).
//
// Whole stay: distinct observation offsets × minutes per point / LOS.
// Last 24h: distinct offsets at or after LOS−1440, × minutes per point,
// over min(LOS, 1440). Stays with a non-positive LOS get no proportion.
func Compute(dir string, los map[int64]int) (*Table, error) {
	t := NewTable()
	t.present = make(map[Signal]map[int64]bool)

	for _, sig := range Signals {
		files, err := SignalFiles(dir, sig)
		if err != nil {
			return nil, err
		}
		offsets := make(map[int64]map[int]struct{})
		for _, f := range files {
			err := ScanObservations(f.Path, f.Column, func(stayID int64, off int) {
				if _, ok := los[stayID]; !ok {
					return
				}
				m := offsets[stayID]
				if m == nil {
					m = make(map[int]struct{})
					offsets[stayID] = m
				}
				m[off] = struct{}{}
			})
			if err != nil {
				return nil, fmt.Errorf("coverage %s: %w", sig, err)
			}
		}
		for stayID, m := range offsets {
			t.SetPresent(stayID, sig)
			whole, last, ok := Proportions(m, los[stayID], sig.MinutesPerPoint())
			if !ok {
				continue
			}
			t.SetProportion(stayID, sig, WholeStay, whole)
			t.SetProportion(stayID, sig, Last24h, last)
		}
	}
	return t, nil
}

// Proportions computes whole-stay and last-24h coverage for one stay from its
// distinct observation offsets.
func Proportions(offsets map[int]struct{}, los, minutesPerPoint int) (whole, last24 float64, ok bool) {
	if los <= 0 {
		return 0, 0, false
	}
	cutoff := los - Last24hMinutes
	var n, nLast int
	for off := range offsets {
		n++
		if off >= cutoff {
			nLast++
		}
	}
	denom := min(los, Last24hMinutes)
	whole = float64(n*minutesPerPoint) / float64(los)
	last24 = float64(nLast*minutesPerPoint) / float64(denom)
	return whole, last24, true
}
