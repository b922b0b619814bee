package cohort

import "icureadmit/internal/eicu"

// stay builds a unit stay admitted adm minutes after hospital admission and
// discharged los minutes later.
func stay(id, hosp int64, visit, adm, los int, loc string) eicu.UnitStay {
	return eicu.UnitStay{
		StayID:                  id,
		HospitalStayID:          hosp,
		VisitNumber:             visit,
		HospitalAdmitOffset:     -adm,
		UnitDischargeOffset:     los,
		UnitDischargeLocation:   loc,
		UnitStayType:            "admit",
		HospitalDischargeStatus: "Alive",
	}
}

func intPtr(n int) *int { return &n }
