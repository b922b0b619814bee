package cohort

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"icureadmit/internal/eicu"
)

// Inputs are the tables the cohort is built from.
type Inputs struct {
	Stays       []eicu.UnitStay
	AdmissionDx []eicu.AdmissionDx
	ApachePred  []eicu.ApachePredVar
	CarePlan    []eicu.CarePlanItem
	Signals     SignalCoverage // nil skips the signal stages
}

// CohortRow is one surviving episode.
type CohortRow struct {
	StayID           int64
	TransferStayIDs  []int64 // chained stays after the index, at most MaxTransfers
	Readmission      bool
	Death            bool
	BadDischargePlan bool
}

// ChainIDs returns the index stay followed by its transfers.
func (r CohortRow) ChainIDs() []int64 {
	return append([]int64{r.StayID}, r.TransferStayIDs...)
}

// BucketSummary counts resolved episodes by terminal discharge location.
type BucketSummary struct {
	Buckets          map[string]int `json:"buckets"`
	Locations        map[string]int `json:"locations"`
	UnknownLocations map[string]int `json:"unknown_locations"`
}

// Result is the cohort with the accounting gathered while building it.
type Result struct {
	Rows            []CohortRow
	Stages          []StageCount
	Buckets         BucketSummary
	ChainOutcomes   map[string]int
	DuplicateVisits int
	// Episodes holds every resolved episode with its labels, before the
	// exclusion stages, sorted by index stay_id.
	Episodes []Episode
}

// Builder runs the cohort pipeline. It holds no state between builds.
type Builder struct {
	Policy Policy
	Logger *zap.Logger
}

func NewBuilder(p Policy, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{Policy: p, Logger: logger}
}

// Build runs every stage in order. Data-quality problems are exclusions and
// never errors; only an invalid policy fails the build.
func (b *Builder) Build(in Inputs) (*Result, error) {
	p := b.Policy
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res := &Result{ChainOutcomes: make(map[string]int)}
	record := func(sc StageCount) {
		res.Stages = append(res.Stages, sc)
		if sc.Skipped {
			log.Warn("stage skipped", zap.String("stage", sc.Name), zap.Int("in", sc.In))
			return
		}
		log.Info("stage",
			zap.String("stage", sc.Name),
			zap.Int("in", sc.In),
			zap.Int("dropped", sc.Dropped),
			zap.Int("out", sc.Out),
		)
	}

	// Visit-sequence validation.
	check := CheckVisitSequences(in.Stays)
	res.DuplicateVisits = check.DuplicateVisits
	valid := filterStays(in.Stays, func(s eicu.UnitStay) bool { return !check.Invalid[s.HospitalStayID] })
	record(counted(StageVisitSequence, len(in.Stays), len(valid)))
	if check.DuplicateVisits > 0 {
		log.Warn("duplicate visit numbers accepted", zap.Int("count", check.DuplicateVisits))
	}

	// Index surgery selection.
	surgical := SurgicalStays(in.AdmissionDx, in.ApachePred, p)
	index, counts := SelectIndexStays(valid, surgical, check.Invalid, p)
	for _, sc := range counts {
		record(sc)
	}

	// Chain resolution and labels.
	idx := NewStayIndex(valid, p)
	var eps []*Episode
	for _, s := range index {
		ep := ResolveChain(s, idx, p)
		res.ChainOutcomes[ep.Outcome.String()]++
		if ep.Outcome != Resolved {
			continue
		}
		Label(&ep, idx, p)
		eps = append(eps, &ep)
	}
	record(counted(StageChain, len(index), len(eps)))

	res.Buckets = summarizeBuckets(eps)
	for _, loc := range sortedKeys(res.Buckets.UnknownLocations) {
		log.Warn("discharge location outside every bucket",
			zap.String("location", loc),
			zap.Int("episodes", res.Buckets.UnknownLocations[loc]),
		)
	}
	for _, ep := range eps {
		res.Episodes = append(res.Episodes, *ep)
	}

	// Exclusion stages.
	var sc StageCount
	for _, st := range ExclusionStages(p, NewCarePlan(in.CarePlan), in.Signals) {
		eps, sc = runStage(st, eps)
		record(sc)
	}

	res.Rows = make([]CohortRow, 0, len(eps))
	for _, ep := range eps {
		res.Rows = append(res.Rows, toRow(ep))
	}
	sort.Slice(res.Rows, func(i, j int) bool { return res.Rows[i].StayID < res.Rows[j].StayID })

	log.Info("cohort built",
		zap.Int("rows", len(res.Rows)),
		zap.Int("hospital_stays_invalid", len(check.Invalid)),
		zap.Int("surgical_stays", len(surgical)),
	)
	return res, nil
}

func counted(name string, in, out int) StageCount {
	return StageCount{Name: name, In: in, Dropped: in - out, Out: out}
}

func toRow(ep *Episode) CohortRow {
	ids := ep.StayIDs()
	return CohortRow{
		StayID:           ids[0],
		TransferStayIDs:  ids[1:],
		Readmission:      ep.Readmission,
		Death:            ep.Death,
		BadDischargePlan: ep.BadDischargePlan(),
	}
}

func summarizeBuckets(eps []*Episode) BucketSummary {
	bs := BucketSummary{
		Buckets:          make(map[string]int),
		Locations:        make(map[string]int),
		UnknownLocations: make(map[string]int),
	}
	for _, ep := range eps {
		loc := ep.Terminal().UnitDischargeLocation
		bs.Buckets[ep.Bucket.String()]++
		bs.Locations[loc]++
		if ep.Bucket == BucketUnknown {
			bs.UnknownLocations[loc]++
		}
	}
	return bs
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
