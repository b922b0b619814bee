package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"icureadmit/internal/cohort"
	"icureadmit/internal/eicu"
)

func i64Ptr(n int64) *int64 { return &n }

func testResult() *cohort.Result {
	return &cohort.Result{
		Rows: []cohort.CohortRow{
			{StayID: 1, TransferStayIDs: []int64{2}},
			{StayID: 3, Readmission: true, BadDischargePlan: true},
			{StayID: 4, Death: true, BadDischargePlan: true},
		},
		Stages: []cohort.StageCount{
			{Name: cohort.StageBucket, In: 5, Dropped: 1, Out: 4},
			{Name: cohort.StageSignalPresence, In: 3, Out: 3, Skipped: true},
		},
		Buckets: cohort.BucketSummary{
			Buckets:          map[string]int{"non-readmission": 3, "unknown": 1},
			Locations:        map[string]int{"Home": 3, "Mars": 1},
			UnknownLocations: map[string]int{"Mars": 1},
		},
		ChainOutcomes: map[string]int{"resolved": 5, "dead-end": 1},
	}
}

func TestRunReportJSON(t *testing.T) {
	started := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	r := NewRunReport("csv:/data/eicu", cohort.DefaultPolicy(), started, testResult())

	assert.NotEqual(t, uuid.Nil, r.RunID)
	assert.Equal(t, 3, r.CohortSize)
	assert.Equal(t, LabelCounts{Readmission: 1, Death: 1, BadDischargePlan: 2}, r.Labels)

	path := filepath.Join(t.TempDir(), "run_report.json")
	require.NoError(t, r.WriteJSON(path))

	got, err := ReadRunReport(path)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, got.RunID)
	assert.Equal(t, started, got.StartedAt)
	assert.Equal(t, r.Stages, got.Stages)
	assert.Equal(t, 1, got.Buckets.UnknownLocations["Mars"])
	assert.Equal(t, 4320, got.Policy.ReadmissionWindowMinutes)

	other := NewRunReport("csv:/data/eicu", cohort.DefaultPolicy(), started, testResult())
	assert.NotEqual(t, r.RunID, other.RunID)
}

func TestReadRunReportIfExists(t *testing.T) {
	dir := t.TempDir()

	r, err := ReadRunReportIfExists(filepath.Join(dir, "run_report.json"))
	require.NoError(t, err)
	assert.Nil(t, r)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"stages": [`), 0644))
	_, err = ReadRunReportIfExists(corrupt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")

	good := filepath.Join(dir, "good.json")
	require.NoError(t, NewRunReport("csv:x", cohort.DefaultPolicy(), time.Now(), testResult()).WriteJSON(good))
	r, err = ReadRunReportIfExists(good)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Len(t, r.Stages, 2)
}

func TestCareDirectiveCounts(t *testing.T) {
	items := []eicu.CarePlanItem{
		{StayID: 1, ItemValue: "Do not resuscitate"},
		{StayID: 1, ItemValue: "No CPR"},
		{StayID: 2, ItemValue: "Comfort measures only"},
		{StayID: 2, ItemValue: "Comfort measures only"},
		{StayID: 3, ItemValue: "Full therapy"},
		{StayID: 9, ItemValue: "Do not resuscitate"},
	}

	directives := Directives(cohort.DefaultPolicy())
	dc := CareDirectiveCounts(items, []int64{1, 2, 3, 4}, directives)
	assert.Equal(t, 4, dc.Stays)
	require.Len(t, dc.Shares, len(directives)+1)

	byName := make(map[string]Share)
	for _, s := range dc.Shares {
		byName[s.Value] = s
	}
	assert.Equal(t, 1, byName["Comfort measures only"].Count)
	assert.Equal(t, 1, byName["Do not resuscitate"].Count)
	assert.Equal(t, 1, byName["No CPR"].Count)
	assert.Equal(t, 0, byName["No augmentation of care"].Count)
	assert.Equal(t, 2, byName["Any of these"].Count)
	assert.InDelta(t, 0.5, byName["Any of these"].Proportion, 1e-12)

	all := CareDirectiveCounts(items, nil, directives)
	assert.Equal(t, 4, all.Stays)
	assert.Equal(t, "Do not resuscitate", all.Shares[2].Value)
	assert.Equal(t, 2, all.Shares[2].Count, "DNR over every stay")
}

func TestDirectivesFollowPolicy(t *testing.T) {
	p := cohort.DefaultPolicy()
	assert.Equal(t, []string{"Comfort measures only", "No augmentation of care", "Do not resuscitate", "No CPR"}, Directives(p))

	p.ComfortCareItems = []string{"Hospice", " Do not resuscitate "}
	p.DNRItems = []string{"Do not resuscitate"}
	assert.Equal(t, []string{"Hospice", "Do not resuscitate"}, Directives(p))

	dc := CareDirectiveCounts([]eicu.CarePlanItem{
		{StayID: 1, ItemValue: "Hospice"},
		{StayID: 2, ItemValue: "No CPR"},
	}, nil, Directives(p))
	require.Len(t, dc.Shares, 3)
	assert.Equal(t, 1, dc.Shares[0].Count)
	assert.Equal(t, 0, dc.Shares[1].Count)
	assert.Equal(t, 1, dc.Shares[2].Count, "values outside the policy are not counted")
}

func TestSummarizeHospitals(t *testing.T) {
	stays := []eicu.UnitStay{
		{StayID: 1, HospitalID: i64Ptr(10)},
		{StayID: 2, HospitalID: i64Ptr(20)},
		{StayID: 3, HospitalID: i64Ptr(20)},
		{StayID: 4},
		{StayID: 5, HospitalID: i64Ptr(30)},
	}
	hospitals := []eicu.Hospital{
		{HospitalID: 10, NumBedsCategory: "100 - 249", TeachingStatus: "f", Region: "South"},
		{HospitalID: 20, NumBedsCategory: "100 - 249", TeachingStatus: "t", Region: ""},
		{HospitalID: 30, NumBedsCategory: ">= 500", TeachingStatus: "t", Region: "West"},
	}
	rows := []cohort.CohortRow{{StayID: 1}, {StayID: 2}, {StayID: 3}, {StayID: 4}}

	hs := SummarizeHospitals(rows, stays, hospitals)
	assert.Equal(t, 2, hs.Hospitals)
	assert.Equal(t, []Share{{Value: "100 - 249", Count: 2, Proportion: 1}}, hs.BedSize)
	assert.Equal(t, []Share{{Value: "f", Count: 1, Proportion: 0.5}, {Value: "t", Count: 1, Proportion: 0.5}}, hs.Teaching)
	assert.Equal(t, "South", hs.Region[0].Value)
	assert.Equal(t, "unknown", hs.Region[1].Value)
}

func TestWriteWorkbook(t *testing.T) {
	res := testResult()
	dc := CareDirectiveCounts([]eicu.CarePlanItem{{StayID: 1, ItemValue: "No CPR"}}, []int64{1, 3, 4}, Directives(cohort.DefaultPolicy()))
	hs := HospitalSummary{Hospitals: 1, Region: []Share{{Value: "West", Count: 1, Proportion: 1}}}

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteWorkbook(path, Workbook{
		Stages:     res.Stages,
		Buckets:    &res.Buckets,
		Directives: &dc,
		Hospitals:  &hs,
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetStages, SheetLocations, SheetDirectives, SheetHospitals}, f.GetSheetList())

	stages, err := f.GetRows(SheetStages)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, []string{"Stage", "In", "Dropped", "Out", "Skipped"}, stages[0])
	assert.Equal(t, []string{cohort.StageBucket, "5", "1", "4", "FALSE"}, stages[1])

	locs, err := f.GetRows(SheetLocations)
	require.NoError(t, err)
	require.Len(t, locs, 3)
	assert.Equal(t, []string{"Mars", "1", "TRUE"}, locs[2])

	hosp, err := f.GetRows(SheetHospitals)
	require.NoError(t, err)
	require.Len(t, hosp, 2)
	assert.Equal(t, "Region", hosp[1][0])
}

func TestWriteWorkbookEmpty(t *testing.T) {
	err := WriteWorkbook(filepath.Join(t.TempDir(), "empty.xlsx"), Workbook{})
	assert.Error(t, err)
}
