package obswindow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icureadmit/internal/cohort"
	"icureadmit/internal/eicu"
)

func TestEpisodeLOS(t *testing.T) {
	los := LOSByStay([]eicu.UnitStay{
		{StayID: 1, UnitDischargeOffset: 200},
		{StayID: 2, UnitDischargeOffset: 500},
	})
	assert.Equal(t, 700, EpisodeLOS(cohort.CohortRow{StayID: 1, TransferStayIDs: []int64{2}}, los))
	assert.Equal(t, 200, EpisodeLOS(cohort.CohortRow{StayID: 1, TransferStayIDs: []int64{99}}, los))
	assert.Equal(t, 0, EpisodeLOS(cohort.CohortRow{StayID: 42}, los))
}

func TestGenerate(t *testing.T) {
	los := map[int64]int{1: 100, 2: 30}
	rows := []cohort.CohortRow{{StayID: 1, TransferStayIDs: []int64{2}}}

	windows := Generate(rows, los, []int{1, 3}, true)
	require.Len(t, windows, 5)

	assert.Equal(t, Window{StayID: 1, Name: "whole_stay", Start: 0, End: 130, LOS: 130}, windows[0])
	assert.Equal(t, Window{StayID: 1, Name: "last_1h", Start: 70, End: 130, LOS: 130}, windows[1])
	assert.Equal(t, Window{StayID: 1, Name: "last_3h", Start: 0, End: 130, LOS: 130}, windows[2])
	assert.Equal(t, Window{StayID: 1, Name: "hour_1", Start: 0, End: 60, LOS: 130}, windows[3])
	assert.Equal(t, Window{StayID: 1, Name: "hour_2", Start: 0, End: 120, LOS: 130}, windows[4])

	assert.Len(t, Generate(rows, los, DefaultHours, false), 1+len(DefaultHours))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.csv")
	windows := Generate([]cohort.CohortRow{{StayID: 7}}, map[int64]int{7: 90}, []int{1}, false)
	require.NoError(t, WriteCSV(path, windows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"stay_id,window,start_offset,end_offset,los",
		"7,whole_stay,0,90,90",
		"7,last_1h,30,90,90",
	}, "\n")+"\n", string(data))
}
