package cohort

import "strings"

// Bucket classifies an episode's terminal discharge location.
type Bucket int

const (
	BucketUnknown Bucket = iota
	BucketReadmission
	BucketNonReadmission
	BucketException
)

func (b Bucket) String() string {
	switch b {
	case BucketReadmission:
		return "readmission-eligible"
	case BucketNonReadmission:
		return "non-readmission"
	case BucketException:
		return "exception"
	}
	return "unknown"
}

func (p Policy) classify(loc string) Bucket {
	switch {
	case in(p.ReadmissionLocations, loc):
		return BucketReadmission
	case in(p.NonReadmissionLocations, loc):
		return BucketNonReadmission
	case in(p.ExceptionLocations, loc):
		return BucketException
	}
	return BucketUnknown
}

// Label sets the bucket and outcome labels of a resolved episode.
//
// Readmission: the next ICU stay after the terminal stay exists and its
// admission is at most ReadmissionWindowMinutes after the terminal discharge.
// Death: the hospital discharge status is expired and hospital discharge is
// at most DeathWindowMinutes after the terminal unit discharge.
func Label(ep *Episode, idx *StayIndex, p Policy) {
	term := ep.Terminal()
	ep.Bucket = p.classify(term.UnitDischargeLocation)

	ep.NextStay, ep.ReadmitGap, ep.Readmission = nil, nil, false
	if next, ok := idx.NextICUStay(term); ok {
		gap := next.AdmitFromHospitalAdmit() - term.DischargeFromHospitalAdmit()
		ep.NextStay = &next
		ep.ReadmitGap = &gap
		ep.Readmission = gap <= p.ReadmissionWindowMinutes
	}

	ep.Death = false
	if term.HospitalDischargeOffset != nil && strings.TrimSpace(term.HospitalDischargeStatus) == p.ExpiredStatus {
		ep.Death = *term.HospitalDischargeOffset-term.UnitDischargeOffset <= p.DeathWindowMinutes
	}
}
