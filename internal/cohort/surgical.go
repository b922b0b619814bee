package cohort

import (
	"strings"

	"icureadmit/internal/eicu"
)

// SurgicalStays returns the stays flagged surgical by either source: an
// admission diagnosis path containing the operative keyword, or an APACHE
// admission diagnosis code with the surgical prefix.
func SurgicalStays(dx []eicu.AdmissionDx, apache []eicu.ApachePredVar, p Policy) map[int64]bool {
	surgical := make(map[int64]bool)
	if p.OperativePathKeyword != "" {
		for _, d := range dx {
			if strings.Contains(d.Path, p.OperativePathKeyword) {
				surgical[d.StayID] = true
			}
		}
	}
	if p.SurgicalApachePrefix != "" {
		for _, a := range apache {
			if strings.HasPrefix(strings.TrimSpace(a.AdmitDiagnosis), p.SurgicalApachePrefix) {
				surgical[a.StayID] = true
			}
		}
	}
	return surgical
}
