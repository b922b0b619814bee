package cohort

import "icureadmit/internal/eicu"

type visitKey struct {
	hospitalStayID int64
	visit          int
}

// StayIndex is a read-only lookup of unit stays by (hospital stay, visit
// number). When a hospital stay carries duplicate visit numbers the stay
// with the lowest stay_id wins.
type StayIndex struct {
	byVisit map[visitKey]eicu.UnitStay
	nonICU  func(string) bool
}

func NewStayIndex(stays []eicu.UnitStay, p Policy) *StayIndex {
	idx := &StayIndex{
		byVisit: make(map[visitKey]eicu.UnitStay, len(stays)),
		nonICU:  p.isNonICU,
	}
	for _, s := range stays {
		k := visitKey{s.HospitalStayID, s.VisitNumber}
		if cur, ok := idx.byVisit[k]; !ok || s.StayID < cur.StayID {
			idx.byVisit[k] = s
		}
	}
	return idx
}

// Get returns the stay at visit within hospitalStayID.
func (x *StayIndex) Get(hospitalStayID int64, visit int) (eicu.UnitStay, bool) {
	s, ok := x.byVisit[visitKey{hospitalStayID, visit}]
	return s, ok
}

// NextICUStay returns the next ICU stay after s in the same hospital stay.
// Step-down stays in between are skipped; the walk stops at the first
// missing visit number.
func (x *StayIndex) NextICUStay(s eicu.UnitStay) (eicu.UnitStay, bool) {
	for v := s.VisitNumber + 1; ; v++ {
		next, ok := x.Get(s.HospitalStayID, v)
		if !ok {
			return eicu.UnitStay{}, false
		}
		if !x.nonICU(next.UnitStayType) {
			return next, true
		}
	}
}
