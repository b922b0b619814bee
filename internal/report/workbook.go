package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"icureadmit/internal/cohort"
)

// Workbook gathers the tables written by WriteWorkbook. Nil sections are
// left out.
type Workbook struct {
	Stages     []cohort.StageCount
	Buckets    *cohort.BucketSummary
	Directives *DirectiveCounts
	Hospitals  *HospitalSummary
}

// Sheet names.
const (
	SheetStages     = "Stages"
	SheetLocations  = "Discharge Locations"
	SheetDirectives = "Care Directives"
	SheetHospitals  = "Hospitals"
)

// WriteWorkbook writes one sheet per non-empty section to path.
func WriteWorkbook(path string, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		return fmt.Errorf("create percent style: %w", err)
	}

	sw := sheetWriter{f: f, header: header, pct: pct}
	if len(wb.Stages) > 0 {
		rows := make([][]any, len(wb.Stages))
		for i, s := range wb.Stages {
			rows[i] = []any{s.Name, s.In, s.Dropped, s.Out, s.Skipped}
		}
		sw.write(SheetStages, []string{"Stage", "In", "Dropped", "Out", "Skipped"}, rows, -1)
	}
	if wb.Buckets != nil {
		locs := make([]string, 0, len(wb.Buckets.Locations))
		for loc := range wb.Buckets.Locations {
			locs = append(locs, loc)
		}
		sort.Strings(locs)
		rows := make([][]any, len(locs))
		for i, loc := range locs {
			_, unknown := wb.Buckets.UnknownLocations[loc]
			name := loc
			if name == "" {
				name = "(null)"
			}
			rows[i] = []any{name, wb.Buckets.Locations[loc], unknown}
		}
		sw.write(SheetLocations, []string{"Discharge Location", "Episodes", "Outside Buckets"}, rows, -1)
	}
	if wb.Directives != nil {
		rows := make([][]any, len(wb.Directives.Shares))
		for i, s := range wb.Directives.Shares {
			rows[i] = []any{s.Value, s.Count, s.Proportion}
		}
		sw.write(SheetDirectives, []string{"Directive", "Stays", "Proportion"}, rows, 3)
	}
	if wb.Hospitals != nil {
		var rows [][]any
		for _, part := range []struct {
			name   string
			shares []Share
		}{
			{"Bed Size", wb.Hospitals.BedSize},
			{"Teaching Status", wb.Hospitals.Teaching},
			{"Region", wb.Hospitals.Region},
		} {
			for _, s := range part.shares {
				rows = append(rows, []any{part.name, s.Value, s.Count, s.Proportion})
			}
		}
		sw.write(SheetHospitals, []string{"Dimension", "Value", "Hospitals", "Proportion"}, rows, 4)
	}
	if sw.err != nil {
		return sw.err
	}
	if sw.sheets == 0 {
		return fmt.Errorf("workbook %s: nothing to write", path)
	}

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// sheetWriter keeps the first error so sections can be written in sequence.
type sheetWriter struct {
	f      *excelize.File
	header int
	pct    int
	sheets int
	err    error
}

// write adds a sheet with a styled, frozen header row. pctCol is the 1-based
// column formatted as a percentage, or -1.
func (w *sheetWriter) write(name string, headers []string, rows [][]any, pctCol int) {
	if w.err != nil {
		return
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = fmt.Errorf("create sheet %s: %w", name, err)
		return
	}
	w.sheets++

	if err := w.f.SetSheetRow(name, "A1", &headers); err != nil {
		w.err = fmt.Errorf("%s header: %w", name, err)
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := w.f.SetCellStyle(name, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("%s header style: %w", name, err)
		return
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			w.err = fmt.Errorf("%s row %d: %w", name, i+2, err)
			return
		}
	}
	if pctCol > 0 && len(rows) > 0 {
		top, _ := excelize.CoordinatesToCellName(pctCol, 2)
		bottom, _ := excelize.CoordinatesToCellName(pctCol, len(rows)+1)
		if err := w.f.SetCellStyle(name, top, bottom, w.pct); err != nil {
			w.err = fmt.Errorf("%s percent style: %w", name, err)
			return
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := w.f.SetColWidth(name, "A", lastCol, 22); err != nil {
		w.err = fmt.Errorf("%s column width: %w", name, err)
		return
	}
	if err := w.f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		w.err = fmt.Errorf("%s panes: %w", name, err)
	}
}
