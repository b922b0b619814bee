package cohortio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"icureadmit/internal/cohort"
	"icureadmit/internal/eicu"
)

// WriteCSV writes rows in the given order under Header. Null transfer
// columns are empty cells.
func WriteCSV(w io.Writer, rows []cohort.CohortRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(Header))
	for _, row := range rows {
		rec := ToRecord(row)
		record[0] = strconv.FormatInt(rec.StayID, 10)
		for i, slot := range rec.transfers() {
			record[1+i] = ""
			if *slot != nil {
				record[1+i] = strconv.FormatInt(**slot, 10)
			}
		}
		record[5] = strconv.Itoa(int(rec.Readmission))
		record[6] = strconv.Itoa(int(rec.DeathAfterDischarge))
		record[7] = strconv.Itoa(int(rec.BadDischargePlan))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", rec.StayID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the cohort to path.
func WriteCSVFile(path string, rows []cohort.CohortRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV reads a cohort table written by WriteCSV.
func ReadCSV(path string) ([]cohort.CohortRow, error) {
	r, err := eicu.OpenTable(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := r.Require(Header...); err != nil {
		return nil, err
	}
	idx := r.Index()

	var rows []cohort.CohortRow
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", r.Name(), r.RowNum(), err)
		}

		var rec CohortRecord
		id := eicu.ParseInt(eicu.ValAt(row, idx, Header[0]))
		if id == nil {
			return nil, fmt.Errorf("%s row %d: invalid %s", r.Name(), r.RowNum(), Header[0])
		}
		rec.StayID = *id
		for i, slot := range rec.transfers() {
			*slot = eicu.ParseInt(eicu.ValAt(row, idx, Header[1+i]))
		}
		for i, dst := range []*int32{&rec.Readmission, &rec.DeathAfterDischarge, &rec.BadDischargePlan} {
			col := Header[5+i]
			v := eicu.ParseInt(eicu.ValAt(row, idx, col))
			if v == nil || (*v != 0 && *v != 1) {
				return nil, fmt.Errorf("%s row %d: %s must be 0 or 1", r.Name(), r.RowNum(), col)
			}
			*dst = int32(*v)
		}
		rows = append(rows, rec.Row())
	}
}
