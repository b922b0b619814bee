package cohort

import (
	"sort"

	"icureadmit/internal/eicu"
)

// VisitCheck is the outcome of validating unit visit numbers per hospital stay.
type VisitCheck struct {
	Invalid map[int64]bool // hospital_stay_id → excluded

	// DuplicateVisits counts repeated (hospital stay, visit number) pairs
	// inside otherwise valid hospital stays. They are accepted.
	DuplicateVisits int
}

// CheckVisitSequences groups stays by hospital stay and flags a hospital stay
// when its sorted visit numbers do not start at 1 or contain a gap above 1.
func CheckVisitSequences(stays []eicu.UnitStay) VisitCheck {
	visits := make(map[int64][]int)
	for _, s := range stays {
		visits[s.HospitalStayID] = append(visits[s.HospitalStayID], s.VisitNumber)
	}

	check := VisitCheck{Invalid: make(map[int64]bool)}
	for hosp, vs := range visits {
		sort.Ints(vs)
		dups, ok := consecutiveVisits(vs)
		if !ok {
			check.Invalid[hosp] = true
			continue
		}
		check.DuplicateVisits += dups
	}
	return check
}

// consecutiveVisits expects sorted visit numbers. A difference of 0 is allowed.
func consecutiveVisits(vs []int) (dups int, ok bool) {
	if len(vs) == 0 || vs[0] != 1 {
		return 0, false
	}
	for i := 1; i < len(vs); i++ {
		switch vs[i] - vs[i-1] {
		case 0:
			dups++
		case 1:
		default:
			return dups, false
		}
	}
	return dups, true
}
