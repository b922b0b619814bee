package coverage

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// observations renders an observation file with one row per offset.
func observations(col string, stayID int64, offsets ...int) string {
	var b strings.Builder
	b.WriteString("patientunitstayid,observationoffset," + col + "\n")
	for _, off := range offsets {
		b.WriteString(strconv.FormatInt(stayID, 10) + "," + strconv.Itoa(off) + ",1\n")
	}
	return b.String()
}

func TestMinutesPerPoint(t *testing.T) {
	assert.Equal(t, 5, HeartRate.MinutesPerPoint())
	assert.Equal(t, 5, SpO2.MinutesPerPoint())
	assert.Equal(t, 1, Systolic.MinutesPerPoint())
}

func TestProportions(t *testing.T) {
	offsets := map[int]struct{}{0: {}, 5: {}, 10: {}, 1500: {}, 2000: {}}

	// LOS 2880: cutoff 1440, two points in the last 24h.
	whole, last, ok := Proportions(offsets, 2880, 5)
	require.True(t, ok)
	assert.InDelta(t, 25.0/2880, whole, 1e-12)
	assert.InDelta(t, 10.0/1440, last, 1e-12)

	// Short stay: the last-24h denominator is the LOS itself.
	short := map[int]struct{}{0: {}, 1: {}, 2: {}}
	whole, last, ok = Proportions(short, 6, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.5, whole, 1e-12)
	assert.InDelta(t, 0.5, last, 1e-12)

	_, _, ok = Proportions(short, 0, 1)
	assert.False(t, ok)
}

func TestTableHasSignalFallsBackToProportion(t *testing.T) {
	tbl := NewTable()
	tbl.SetProportion(1, SpO2, WholeStay, 0.8)
	tbl.SetProportion(2, SpO2, WholeStay, 0)

	assert.False(t, tbl.HasPresence())
	assert.True(t, tbl.HasSignal(1, SpO2))
	assert.False(t, tbl.HasSignal(2, SpO2))
	assert.False(t, tbl.HasSignal(3, SpO2))

	tbl.SetPresent(2, SpO2)
	assert.True(t, tbl.HasPresence())
	assert.True(t, tbl.HasSignal(2, SpO2))
	assert.False(t, tbl.HasSignal(1, SpO2), "presence data takes precedence once loaded")
}

func writeSignalDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	// Stay 10: LOS 100 with 10 periodic points (50 min) for each periodic
	// signal, 60 one-minute BP points.
	var periodic []int
	for i := 0; i < 10; i++ {
		periodic = append(periodic, i*5)
	}
	var bp []int
	for i := 40; i < 100; i++ {
		bp = append(bp, i)
	}
	writeFile(t, dir, "pre-processed_sao2.csv", observations("sao2", 10, periodic...))
	writeFile(t, dir, "pre-processed_heartrate.csv", observations("heartrate", 10, periodic...))
	writeFile(t, dir, "pre-processed_respiration.csv",
		observations("respiration", 10, periodic...)+"20,5,\n")
	writeFile(t, dir, "pre-processed_allsystolic.csv", observations("allsystolic", 10, bp...))
	writeFile(t, dir, "pre-processed_alldiastolic.csv", observations("alldiastolic", 10, bp...))
	// Mean BP split across the two source files, with one duplicated offset.
	writeFile(t, dir, "all_pre-processed_systemicmean.csv", observations("systemicmean", 10, bp[:30]...))
	writeFile(t, dir, "all_pre-processed_noninvasivemean.csv", observations("noninvasivemean", 10, bp[29:]...))
	return dir
}

func TestCompute(t *testing.T) {
	dir := writeSignalDir(t)

	tbl, err := Compute(dir, map[int64]int{10: 100, 20: 100})
	require.NoError(t, err)

	for _, sig := range []Signal{SpO2, HeartRate, Respiration} {
		p, ok := tbl.Proportion(10, sig, WholeStay)
		require.True(t, ok, sig)
		assert.InDelta(t, 0.5, p, 1e-12, sig)
		p, ok = tbl.Proportion(10, sig, Last24h)
		require.True(t, ok, sig)
		assert.InDelta(t, 0.5, p, 1e-12, sig)
	}
	for _, sig := range []Signal{Systolic, Diastolic, MeanBP} {
		p, ok := tbl.Proportion(10, sig, WholeStay)
		require.True(t, ok, sig)
		assert.InDelta(t, 0.6, p, 1e-12, sig)
	}

	// Stay 20 only has an empty respiration value.
	assert.False(t, tbl.HasSignal(20, Respiration))
	_, ok := tbl.Proportion(20, Respiration, WholeStay)
	assert.False(t, ok)
}

func TestComputeMissingSignalFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pre-processed_sao2.csv", observations("sao2", 1, 0))
	_, err := Compute(dir, map[int64]int{1: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartrate")
}

func TestScanObservationsUsesNamedColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pre-processed_sao2.csv", `x,x,patientunitstayid,observationoffset,sao2
a,a,1,0,97
a,a,1,5,
,,1,10,95
`)

	var offsets []int
	require.NoError(t, ScanObservations(path, "sao2", func(_ int64, off int) {
		offsets = append(offsets, off)
	}))
	assert.Equal(t, []int{0, 10}, offsets)

	err := ScanObservations(path, "heartrate", func(int64, int) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartrate")
}

func TestSignalFilesBloodPressureFallback(t *testing.T) {
	dir := writeSignalDir(t)

	files, err := SignalFiles(dir, MeanBP)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "systemicmean", files[0].Column)
	assert.Equal(t, "noninvasivemean", files[1].Column)

	files, err = SignalFiles(dir, Systolic)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "allsystolic", files[0].Column)
}

func TestLoadPresence(t *testing.T) {
	dir := writeSignalDir(t)

	tbl := NewTable()
	require.NoError(t, tbl.LoadPresence(dir, nil))
	for _, sig := range Signals {
		assert.True(t, tbl.HasSignal(10, sig), sig)
	}
	assert.False(t, tbl.HasSignal(20, Respiration))

	filtered := NewTable()
	require.NoError(t, filtered.LoadPresence(dir, map[int64]bool{99: true}))
	assert.True(t, filtered.HasPresence())
	assert.False(t, filtered.HasSignal(10, SpO2))
}

func TestWriteAndLoadProportions(t *testing.T) {
	tbl := NewTable()
	for _, sig := range Signals {
		tbl.SetProportion(1, sig, WholeStay, 0.75)
		tbl.SetProportion(1, sig, Last24h, 0.9)
	}
	tbl.SetProportion(2, SpO2, WholeStay, 0.3)

	dir := t.TempDir()
	whole := filepath.Join(dir, "PTS_proportion_covered_whole_stay.csv")
	last := filepath.Join(dir, "PTS_proportion_covered_24h.csv")
	require.NoError(t, tbl.WriteProportions(whole, last))

	data, err := os.ReadFile(whole)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "patientunitstayid,propsao2,propheartrate,proprespiration,propallsystolic,propalldiastolic,propallmean", lines[0])
	assert.Equal(t, "2,0.3,,,,,", lines[2])

	loaded := NewTable()
	require.NoError(t, loaded.LoadProportions(whole, last))
	p, ok := loaded.Proportion(1, MeanBP, Last24h)
	require.True(t, ok)
	assert.Equal(t, 0.9, p)
	p, ok = loaded.Proportion(2, SpO2, WholeStay)
	require.True(t, ok)
	assert.Equal(t, 0.3, p)
	_, ok = loaded.Proportion(2, SpO2, Last24h)
	assert.False(t, ok)
}

func TestLoadProportionsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	whole := writeFile(t, dir, "whole.csv", "patientunitstayid,propsao2\n1,0.5\n")
	err := NewTable().LoadProportions(whole, whole)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartrate")
}

func TestLoad(t *testing.T) {
	dir := writeSignalDir(t)
	los := map[int64]int{10: 100, 20: 100}

	computed, err := Load(dir, "", "", los)
	require.NoError(t, err)
	p, ok := computed.Proportion(10, SpO2, WholeStay)
	require.True(t, ok)
	assert.InDelta(t, 0.5, p, 1e-12)

	published := NewTable()
	for _, sig := range Signals {
		published.SetProportion(10, sig, WholeStay, 0.9)
		published.SetProportion(10, sig, Last24h, 0.8)
		published.SetProportion(20, sig, WholeStay, 0.9)
		published.SetProportion(20, sig, Last24h, 0.8)
	}
	out := t.TempDir()
	whole := filepath.Join(out, "whole.csv")
	last := filepath.Join(out, "last.csv")
	require.NoError(t, published.WriteProportions(whole, last))

	// Published proportions win; the observation files supply presence.
	tbl, err := Load(dir, whole, last, los)
	require.NoError(t, err)
	p, ok = tbl.Proportion(10, SpO2, WholeStay)
	require.True(t, ok)
	assert.Equal(t, 0.9, p)
	assert.True(t, tbl.HasPresence())
	assert.True(t, tbl.HasSignal(10, Respiration))
	assert.False(t, tbl.HasSignal(20, Respiration), "presence comes from observations, not proportions")

	onlyFiles, err := Load("", whole, last, los)
	require.NoError(t, err)
	assert.False(t, onlyFiles.HasPresence())
	assert.True(t, onlyFiles.HasSignal(20, Respiration))

	_, err = Load("", "", "", los)
	assert.Error(t, err)
}
