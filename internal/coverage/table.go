package coverage

import "sort"

// Table holds per-stay signal presence and coverage proportions. Presence
// and proportions are loaded independently; either may be absent.
type Table struct {
	present map[Signal]map[int64]bool
	props   map[Window]map[Signal]map[int64]float64
}

func NewTable() *Table {
	return &Table{props: make(map[Window]map[Signal]map[int64]float64)}
}

// SetPresent records that sig was observed during stayID.
func (t *Table) SetPresent(stayID int64, sig Signal) {
	if t.present == nil {
		t.present = make(map[Signal]map[int64]bool)
	}
	m := t.present[sig]
	if m == nil {
		m = make(map[int64]bool)
		t.present[sig] = m
	}
	m[stayID] = true
}

func (t *Table) SetProportion(stayID int64, sig Signal, w Window, p float64) {
	bySig := t.props[w]
	if bySig == nil {
		bySig = make(map[Signal]map[int64]float64)
		t.props[w] = bySig
	}
	m := bySig[sig]
	if m == nil {
		m = make(map[int64]float64)
		bySig[sig] = m
	}
	m[stayID] = p
}

// HasPresence reports whether presence data was loaded.
func (t *Table) HasPresence() bool { return t.present != nil }

// HasSignal reports whether sig was recorded for stayID. Without presence
// data a positive whole-stay proportion counts as present.
func (t *Table) HasSignal(stayID int64, sig Signal) bool {
	if t.present != nil {
		return t.present[sig][stayID]
	}
	p, ok := t.Proportion(stayID, sig, WholeStay)
	return ok && p > 0
}

// Proportion returns the covered fraction of w. ok is false when the stay has
// no value for sig.
func (t *Table) Proportion(stayID int64, sig Signal, w Window) (float64, bool) {
	p, ok := t.props[w][sig][stayID]
	return p, ok
}

// StayIDs returns every stay with any presence or proportion entry, sorted.
func (t *Table) StayIDs() []int64 {
	seen := make(map[int64]bool)
	for _, m := range t.present {
		for id := range m {
			seen[id] = true
		}
	}
	for _, bySig := range t.props {
		for _, m := range bySig {
			for id := range m {
				seen[id] = true
			}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
