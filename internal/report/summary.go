package report

import (
	"sort"
	"strings"

	"icureadmit/internal/cohort"
	"icureadmit/internal/eicu"
)

// Share is one category of a breakdown.
type Share struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Proportion float64 `json:"proportion"`
}

// Directives returns the care-plan values the exclusion stages act on:
// comfort-care items first, then DNR items.
func Directives(p cohort.Policy) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range append(append([]string(nil), p.ComfortCareItems...), p.DNRItems...) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// DirectiveCounts counts stays carrying each care directive.
type DirectiveCounts struct {
	Stays  int     `json:"stays"`
	Shares []Share `json:"shares"` // one per directive, then "Any of these"
}

// CareDirectiveCounts counts the distinct stays in stayIDs that carry each
// of directives. A nil stayIDs counts over every stay in the care plan.
func CareDirectiveCounts(items []eicu.CarePlanItem, stayIDs []int64, directives []string) DirectiveCounts {
	var keep map[int64]bool
	if stayIDs != nil {
		keep = make(map[int64]bool, len(stayIDs))
		for _, id := range stayIDs {
			keep[id] = true
		}
	}

	byDirective := make(map[string]map[int64]bool)
	anyOf := make(map[int64]bool)
	all := make(map[int64]bool)
	for _, it := range items {
		if keep != nil && !keep[it.StayID] {
			continue
		}
		all[it.StayID] = true
		v := strings.TrimSpace(it.ItemValue)
		for _, d := range directives {
			if v != d {
				continue
			}
			if byDirective[d] == nil {
				byDirective[d] = make(map[int64]bool)
			}
			byDirective[d][it.StayID] = true
			anyOf[it.StayID] = true
		}
	}

	dc := DirectiveCounts{Stays: len(all)}
	if keep != nil {
		dc.Stays = len(keep)
	}
	for _, d := range directives {
		dc.Shares = append(dc.Shares, share(d, len(byDirective[d]), dc.Stays))
	}
	dc.Shares = append(dc.Shares, share("Any of these", len(anyOf), dc.Stays))
	return dc
}

// HospitalSummary breaks down the hospitals contributing cohort stays.
type HospitalSummary struct {
	Hospitals int     `json:"hospitals"`
	BedSize   []Share `json:"bed_size"`
	Teaching  []Share `json:"teaching"`
	Region    []Share `json:"region"`
}

// SummarizeHospitals counts the distinct hospitals of the cohort's index
// stays by bed-size category, teaching status and region.
func SummarizeHospitals(rows []cohort.CohortRow, stays []eicu.UnitStay, hospitals []eicu.Hospital) HospitalSummary {
	hospOf := make(map[int64]int64, len(stays))
	for _, s := range stays {
		if s.HospitalID != nil {
			hospOf[s.StayID] = *s.HospitalID
		}
	}
	used := make(map[int64]bool)
	for _, r := range rows {
		if h, ok := hospOf[r.StayID]; ok {
			used[h] = true
		}
	}

	size := make(map[string]int)
	teach := make(map[string]int)
	region := make(map[string]int)
	var hs HospitalSummary
	for _, h := range hospitals {
		if !used[h.HospitalID] {
			continue
		}
		hs.Hospitals++
		size[orUnknown(h.NumBedsCategory)]++
		teach[orUnknown(h.TeachingStatus)]++
		region[orUnknown(h.Region)]++
	}
	hs.BedSize = shares(size, hs.Hospitals)
	hs.Teaching = shares(teach, hs.Hospitals)
	hs.Region = shares(region, hs.Hospitals)
	return hs
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func share(value string, n, total int) Share {
	s := Share{Value: value, Count: n}
	if total > 0 {
		s.Proportion = float64(n) / float64(total)
	}
	return s
}

// shares orders categories by count, then name.
func shares(counts map[string]int, total int) []Share {
	out := make([]Share, 0, len(counts))
	for v, n := range counts {
		out = append(out, share(v, n, total))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
