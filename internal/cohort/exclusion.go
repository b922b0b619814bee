package cohort

import (
	"strings"

	"icureadmit/internal/coverage"
	"icureadmit/internal/eicu"
)

// CarePlan is a read-only lookup of care-plan item values by stay_id.
// A stay absent from the care plan has no items.
type CarePlan struct {
	items map[int64]map[string]bool
}

func NewCarePlan(items []eicu.CarePlanItem) *CarePlan {
	c := &CarePlan{items: make(map[int64]map[string]bool)}
	for _, it := range items {
		v := strings.TrimSpace(it.ItemValue)
		if v == "" {
			continue
		}
		m := c.items[it.StayID]
		if m == nil {
			m = make(map[string]bool)
			c.items[it.StayID] = m
		}
		m[v] = true
	}
	return c
}

// HasAny reports whether stayID carries any of values.
func (c *CarePlan) HasAny(stayID int64, values []string) bool {
	if c == nil {
		return false
	}
	m := c.items[stayID]
	for _, v := range values {
		if m[v] {
			return true
		}
	}
	return false
}

// SignalCoverage answers the physiologic-signal questions of the last two
// exclusion stages. coverage.Table implements it.
type SignalCoverage interface {
	// HasSignal reports whether any value of sig was recorded for the stay.
	HasSignal(stayID int64, sig coverage.Signal) bool
	// Proportion returns the fraction of window covered by sig. ok is false
	// when the stay has no row in the proportion table.
	Proportion(stayID int64, sig coverage.Signal, w coverage.Window) (p float64, ok bool)
}

// Stage is one named exclusion predicate. Stages run in order and each sees
// only the episodes kept by the previous ones.
type Stage struct {
	Name string
	Drop func(*Episode) bool
	Skip bool // inputs unavailable; the stage keeps every episode
}

// StageCount records how many episodes or stays a stage saw and dropped.
type StageCount struct {
	Name    string `json:"name"`
	In      int    `json:"in"`
	Dropped int    `json:"dropped"`
	Out     int    `json:"out"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Stage names, in pipeline order.
const (
	StageVisitSequence  = "visit-sequence"
	StageIndexSurgery   = "index-surgery"
	StageIndexLOS       = "index-los"
	StageIndexStayType  = "index-stay-type"
	StageChain          = "chain"
	StageBucket         = "discharge-bucket"
	StageComfortCare    = "comfort-care"
	StageDNRDeath       = "dnr-death"
	StageZeroReadmitGap = "zero-readmit-gap"
	StageReadmitSource  = "readmit-admit-source"
	StageSignalPresence = "signal-presence"
	StageSignalCoverage = "signal-coverage"
)

// ExclusionStages returns the label-engine stages in their fixed order. A nil
// sig skips both signal stages.
func ExclusionStages(p Policy, care *CarePlan, sig SignalCoverage) []Stage {
	anyStay := func(ep *Episode, values []string) bool {
		for _, s := range ep.Stays {
			if care.HasAny(s.StayID, values) {
				return true
			}
		}
		return false
	}

	return []Stage{
		{
			Name: StageBucket,
			Drop: func(ep *Episode) bool {
				return ep.Bucket != BucketReadmission && ep.Bucket != BucketNonReadmission
			},
		},
		{
			Name: StageComfortCare,
			Drop: func(ep *Episode) bool { return anyStay(ep, p.ComfortCareItems) },
		},
		{
			Name: StageDNRDeath,
			Drop: func(ep *Episode) bool { return ep.Death && anyStay(ep, p.DNRItems) },
		},
		{
			Name: StageZeroReadmitGap,
			Drop: func(ep *Episode) bool {
				return ep.Readmission && ep.ReadmitGap != nil && *ep.ReadmitGap == 0
			},
		},
		{
			Name: StageReadmitSource,
			Drop: func(ep *Episode) bool {
				return ep.Readmission && ep.NextStay != nil &&
					in(p.ExcludedReadmitAdmitSources, ep.NextStay.UnitAdmitSource)
			},
		},
		{
			Name: StageSignalPresence,
			Skip: sig == nil,
			Drop: func(ep *Episode) bool { return !signalsPresent(ep, sig) },
		},
		{
			Name: StageSignalCoverage,
			Skip: sig == nil,
			Drop: func(ep *Episode) bool { return !signalsCovered(ep, sig, p.MinSignalCoverage) },
		},
	}
}

// signalsPresent requires every signal to be recorded in at least one stay
// of the episode.
func signalsPresent(ep *Episode, sig SignalCoverage) bool {
	for _, sg := range coverage.Signals {
		found := false
		for _, s := range ep.Stays {
			if sig.HasSignal(s.StayID, sg) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// signalsCovered requires every stay of the episode to cover strictly more
// than threshold of both the whole stay and its last 24 hours, for every signal.
func signalsCovered(ep *Episode, sig SignalCoverage, threshold float64) bool {
	for _, s := range ep.Stays {
		for _, sg := range coverage.Signals {
			for _, w := range coverage.Windows {
				prop, ok := sig.Proportion(s.StayID, sg, w)
				if !ok || prop <= threshold {
					return false
				}
			}
		}
	}
	return true
}

// runStage applies st to eps and returns the survivors with their count.
func runStage(st Stage, eps []*Episode) ([]*Episode, StageCount) {
	sc := StageCount{Name: st.Name, In: len(eps), Skipped: st.Skip}
	if st.Skip {
		sc.Out = len(eps)
		return eps, sc
	}
	kept := eps[:0:0]
	for _, ep := range eps {
		if st.Drop(ep) {
			continue
		}
		kept = append(kept, ep)
	}
	sc.Out = len(kept)
	sc.Dropped = sc.In - sc.Out
	return kept, sc
}
