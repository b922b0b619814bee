package cohort

import (
	"sort"

	"icureadmit/internal/eicu"
)

// FirstSurgicalStays selects, for every hospital stay with at least one
// surgical unit stay, the surgical stay with the lowest visit number. Stays
// under an invalid hospital stay are ignored. The result is sorted by stay_id.
func FirstSurgicalStays(stays []eicu.UnitStay, surgical, invalid map[int64]bool) []eicu.UnitStay {
	var candidates []eicu.UnitStay
	for _, s := range stays {
		if surgical[s.StayID] && !invalid[s.HospitalStayID] {
			candidates = append(candidates, s)
		}
	}
	// Lower visit partitions claim the hospital stay first.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].VisitNumber != candidates[j].VisitNumber {
			return candidates[i].VisitNumber < candidates[j].VisitNumber
		}
		return candidates[i].StayID < candidates[j].StayID
	})

	claimed := make(map[int64]bool)
	var index []eicu.UnitStay
	for _, s := range candidates {
		if claimed[s.HospitalStayID] {
			continue
		}
		claimed[s.HospitalStayID] = true
		index = append(index, s)
	}
	sortByStayID(index)
	return index
}

// SelectIndexStays returns the index surgical stays that survive the minimum
// LOS and the ICU stay-type filters, with the count of each selection step.
func SelectIndexStays(stays []eicu.UnitStay, surgical, invalid map[int64]bool, p Policy) ([]eicu.UnitStay, []StageCount) {
	index := FirstSurgicalStays(stays, surgical, invalid)
	counts := []StageCount{counted(StageIndexSurgery, len(stays), len(index))}

	n := len(index)
	index = filterStays(index, func(s eicu.UnitStay) bool { return s.LOS() >= p.MinIndexLOSMinutes })
	counts = append(counts, counted(StageIndexLOS, n, len(index)))

	n = len(index)
	index = filterStays(index, func(s eicu.UnitStay) bool { return !p.isNonICU(s.UnitStayType) })
	counts = append(counts, counted(StageIndexStayType, n, len(index)))
	return index, counts
}

func filterStays(stays []eicu.UnitStay, keep func(eicu.UnitStay) bool) []eicu.UnitStay {
	out := stays[:0:0]
	for _, s := range stays {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func sortByStayID(stays []eicu.UnitStay) {
	sort.Slice(stays, func(i, j int) bool { return stays[i].StayID < stays[j].StayID })
}
