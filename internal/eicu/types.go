package eicu

import "context"

// UnitStay is one row of the eICU patient table: a single ICU unit admission.
//
// Raw offsets follow the eICU convention and are minutes relative to this
// stay's own unit admission. HospitalAdmitOffset is therefore zero or
// negative, and the offsets relative to hospital admission are derived by
// AdmitFromHospitalAdmit and DischargeFromHospitalAdmit.
type UnitStay struct {
	StayID         int64 // patientunitstayid
	HospitalStayID int64 // patienthealthsystemstayid
	VisitNumber    int   // unitvisitnumber, 1-based within the hospital stay

	HospitalAdmitOffset int // minutes from unit admit to hospital admit
	UnitDischargeOffset int // minutes from unit admit to unit discharge

	UnitDischargeLocation string // "" when null
	UnitType              string
	UnitAdmitSource       string
	UnitStayType          string

	HospitalDischargeStatus string // Alive | Expired | ""
	HospitalDischargeOffset *int   // minutes from unit admit to hospital discharge
	HospitalID              *int64
}

// AdmitFromHospitalAdmit returns the unit admission time in minutes after
// hospital admission.
func (s UnitStay) AdmitFromHospitalAdmit() int {
	return -s.HospitalAdmitOffset
}

// DischargeFromHospitalAdmit returns the unit discharge time in minutes after
// hospital admission.
func (s UnitStay) DischargeFromHospitalAdmit() int {
	return s.UnitDischargeOffset - s.HospitalAdmitOffset
}

// LOS is the unit length of stay in minutes.
func (s UnitStay) LOS() int {
	return s.UnitDischargeOffset
}

// AdmissionDx is one admissionDx row. Path is the pipe-separated diagnosis
// taxonomy, e.g. "admission diagnosis|Operative|Diagnosis|Cardiovascular|CABG alone".
type AdmissionDx struct {
	StayID int64
	Path   string
}

// ApachePredVar carries the APACHE admission diagnosis code of a stay.
type ApachePredVar struct {
	StayID         int64
	AdmitDiagnosis string
}

// CarePlanItem is one careplangeneral row (cplitemvalue).
type CarePlanItem struct {
	StayID    int64
	ItemValue string
}

// Hospital is one row of the hospital table.
type Hospital struct {
	HospitalID      int64
	NumBedsCategory string
	TeachingStatus  string
	Region          string
}

// Tables bundles the eICU tables the cohort builder consumes.
type Tables struct {
	Stays       []UnitStay
	AdmissionDx []AdmissionDx
	ApachePred  []ApachePredVar
	CarePlan    []CarePlanItem
	Hospitals   []Hospital
}

// Source loads eICU tables from some backing store.
type Source interface {
	Load(ctx context.Context) (*Tables, error)
	Describe() string
}
