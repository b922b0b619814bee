package cohort

import "icureadmit/internal/eicu"

// Outcome is how a chain walk ended.
type Outcome int

const (
	// Resolved chains end at a stay discharged outside the deferral set.
	Resolved Outcome = iota
	// DeadEnd chains end at a deferred stay with no next ICU stay.
	DeadEnd
	// DepthExceeded chains are still deferred after MaxChainHops transfers.
	DepthExceeded
	// LateralGapExceeded chains contain a transfer whose discharge to admit
	// gap exceeds LateralTransferMaxGapMinutes.
	LateralGapExceeded
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case DeadEnd:
		return "dead-end"
	case DepthExceeded:
		return "depth-exceeded"
	case LateralGapExceeded:
		return "lateral-gap-exceeded"
	}
	return "unknown"
}

// Episode is one continuous ICU course: the index stay followed by its
// lateral transfers. Label fields are set by Label and are only meaningful
// for Resolved episodes.
type Episode struct {
	Stays   []eicu.UnitStay
	Outcome Outcome
	LOS     int // sum of each stay's unit discharge offset

	Bucket      Bucket
	Readmission bool
	Death       bool
	// NextStay is the ICU stay following the terminal stay, if any.
	NextStay *eicu.UnitStay
	// ReadmitGap is NextStay's admission minus the terminal discharge, in
	// minutes from hospital admission. Nil without NextStay.
	ReadmitGap *int
}

func (e *Episode) Index() eicu.UnitStay { return e.Stays[0] }
func (e *Episode) Terminal() eicu.UnitStay { return e.Stays[len(e.Stays)-1] }

// BadDischargePlan is readmission or death after discharge.
func (e *Episode) BadDischargePlan() bool { return e.Readmission || e.Death }

// StayIDs returns the constituent stay ids, index first.
func (e *Episode) StayIDs() []int64 {
	ids := make([]int64, len(e.Stays))
	for i, s := range e.Stays {
		ids[i] = s.StayID
	}
	return ids
}

// ResolveChain walks forward from index through deferred discharges. Each hop
// moves to the next ICU stay of the same hospital stay; at most MaxChainHops
// hops are taken, so an episode never exceeds MaxChainHops+1 stays.
func ResolveChain(index eicu.UnitStay, idx *StayIndex, p Policy) Episode {
	ep := Episode{Stays: []eicu.UnitStay{index}}
	cur := index
	for hops := 0; p.isDeferral(cur.UnitDischargeLocation); hops++ {
		if hops == p.MaxChainHops {
			ep.Outcome = DepthExceeded
			break
		}
		next, ok := idx.NextICUStay(cur)
		if !ok {
			ep.Outcome = DeadEnd
			break
		}
		gap := next.AdmitFromHospitalAdmit() - cur.DischargeFromHospitalAdmit()
		if p.LateralTransferMaxGapMinutes > 0 && gap > p.LateralTransferMaxGapMinutes {
			ep.Outcome = LateralGapExceeded
			break
		}
		ep.Stays = append(ep.Stays, next)
		cur = next
	}
	for _, s := range ep.Stays {
		ep.LOS += s.LOS()
	}
	return ep
}
