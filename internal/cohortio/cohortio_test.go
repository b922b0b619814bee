package cohortio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"icureadmit/internal/cohort"
)

func testRows() []cohort.CohortRow {
	return []cohort.CohortRow{
		{StayID: 141168, TransferStayIDs: []int64{141169}},
		{StayID: 141170},
		{StayID: 200000, TransferStayIDs: []int64{200001, 200002, 200003, 200004},
			Readmission: true, BadDischargePlan: true},
		{StayID: 300000, Death: true, BadDischargePlan: true},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testRows()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := `stay_id,transfer_stay_id_1,transfer_stay_id_2,transfer_stay_id_3,transfer_stay_id_4,readmission,death_after_discharge,bad_discharge_plan
141168,141169,,,,0,0,0
141170,,,,,0,0,0
200000,200001,200002,200003,200004,1,0,1
300000,,,,,0,1,1
`
	if buf.String() != want {
		t.Errorf("csv mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteCSVDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := WriteCSV(&a, testRows()); err != nil {
		t.Fatal(err)
	}
	if err := WriteCSV(&b, testRows()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two writes of the same rows differ")
	}
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	if err := WriteCSVFile(path, testRows()); err != nil {
		t.Fatalf("WriteCSVFile: %v", err)
	}
	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if got := rows[0].ChainIDs(); len(got) != 2 || got[1] != 141169 {
		t.Errorf("row 0 chain = %v", got)
	}
	if len(rows[1].TransferStayIDs) != 0 {
		t.Errorf("row 1 transfers = %v, want none", rows[1].TransferStayIDs)
	}
	if !rows[2].Readmission || rows[2].Death || !rows[2].BadDischargePlan || len(rows[2].TransferStayIDs) != 4 {
		t.Errorf("row 2 = %+v", rows[2])
	}
	if !rows[3].Death {
		t.Errorf("row 3 = %+v", rows[3])
	}
}

func TestReadCSVRejectsBadLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	content := "stay_id,transfer_stay_id_1,transfer_stay_id_2,transfer_stay_id_3,transfer_stay_id_4,readmission,death_after_discharge,bad_discharge_plan\n1,,,,,2,0,1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCSV(path); err == nil {
		t.Error("expected error for label value 2")
	}
}

func TestParquetWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.parquet")
	w, err := NewParquetWriter(path)
	if err != nil {
		t.Fatalf("NewParquetWriter: %v", err)
	}
	if _, err := w.Write(testRows()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.Count() != 4 {
		t.Errorf("Count = %d, want 4", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[CohortRecord](f)
	defer reader.Close()

	recs := make([]CohortRecord, reader.NumRows())
	n, err := reader.Read(recs)
	if err != nil && err != io.EOF {
		t.Fatalf("read parquet: %v", err)
	}
	recs = recs[:n]
	if len(recs) != 4 {
		t.Fatalf("got %d records, want 4", len(recs))
	}
	if recs[0].TransferStayID1 == nil || *recs[0].TransferStayID1 != 141169 || recs[0].TransferStayID2 != nil {
		t.Errorf("record 0 transfers = %v/%v", recs[0].TransferStayID1, recs[0].TransferStayID2)
	}
	if recs[2].Readmission != 1 || recs[2].BadDischargePlan != 1 || recs[2].TransferStayID4 == nil {
		t.Errorf("record 2 = %+v", recs[2])
	}
}

func TestParquetFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.parquet")
	if err := WriteParquetFile(path, testRows()); err != nil {
		t.Fatalf("WriteParquetFile: %v", err)
	}
	rows, err := ReadParquetFile(path)
	if err != nil {
		t.Fatalf("ReadParquetFile: %v", err)
	}
	if len(rows) != 4 || rows[3].StayID != 300000 || !rows[3].Death {
		t.Errorf("rows = %+v", rows)
	}
}
