package coverage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"icureadmit/internal/eicu"
)

const (
	colStayID = "patientunitstayid"
	colOffset = "observationoffset"
)

var filePrefixes = []string{"pre-processed_", "all_pre-processed_"}

// SignalFile is one observation file and the column holding its values.
type SignalFile struct {
	Path   string
	Column string
}

// SignalFiles returns the observation files holding sig inside dir. Blood
// pressure signals fall back to the separate systemic and noninvasive files
// when no combined file exists.
func SignalFiles(dir string, sig Signal) ([]SignalFile, error) {
	if p, ok := findFile(dir, string(sig)); ok {
		return []SignalFile{{Path: p, Column: string(sig)}}, nil
	}
	if sig.IsBloodPressure() {
		kind := strings.TrimPrefix(string(sig), "all")
		var files []SignalFile
		for _, source := range []string{"systemic", "noninvasive"} {
			if p, ok := findFile(dir, source+kind); ok {
				files = append(files, SignalFile{Path: p, Column: source + kind})
			}
		}
		if len(files) > 0 {
			return files, nil
		}
	}
	return nil, fmt.Errorf("no observation file for %s in %s", sig, dir)
}

func findFile(dir, name string) (string, bool) {
	for _, prefix := range filePrefixes {
		for _, ext := range []string{".csv", ".csv.gz"} {
			p := filepath.Join(dir, prefix+name+ext)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return p, true
			}
		}
	}
	return "", false
}

// ScanObservations calls fn for every row of an observation file that has a
// stay id, an offset and a non-empty value in valueCol.
func ScanObservations(path, valueCol string, fn func(stayID int64, offset int)) error {
	r, err := eicu.OpenTable(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Require(colStayID, colOffset, valueCol); err != nil {
		return err
	}
	idx := r.Index()

	for {
		row, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s row %d: %w", r.Name(), r.RowNum(), err)
		}
		if eicu.ValAt(row, idx, valueCol) == "" {
			continue
		}
		id := eicu.ParseInt(eicu.ValAt(row, idx, colStayID))
		off := eicu.ParseInt(eicu.ValAt(row, idx, colOffset))
		if id == nil || off == nil {
			continue
		}
		fn(*id, int(*off))
	}
}

// LoadPresence marks every stay with at least one observation of each signal.
// A non-nil keep restricts the table to those stays.
func (t *Table) LoadPresence(dir string, keep map[int64]bool) error {
	for _, sig := range Signals {
		files, err := SignalFiles(dir, sig)
		if err != nil {
			return err
		}
		for _, f := range files {
			err := ScanObservations(f.Path, f.Column, func(stayID int64, _ int) {
				if keep == nil || keep[stayID] {
					t.SetPresent(stayID, sig)
				}
			})
			if err != nil {
				return fmt.Errorf("presence %s: %w", sig, err)
			}
		}
	}
	if t.present == nil {
		t.present = make(map[Signal]map[int64]bool)
	}
	return nil
}

// Load builds the coverage table from whatever inputs are set. With only dir
// the proportions are computed from the observation files. With the
// proportion files they are read as published, and dir, if set, supplies
// presence only. los holds the stays of interest and their unit LOS.
func Load(dir, wholePath, last24Path string, los map[int64]int) (*Table, error) {
	if wholePath == "" {
		if dir == "" {
			return nil, fmt.Errorf("no signal inputs")
		}
		return Compute(dir, los)
	}
	t := NewTable()
	if dir != "" {
		keep := make(map[int64]bool, len(los))
		for id := range los {
			keep[id] = true
		}
		if err := t.LoadPresence(dir, keep); err != nil {
			return nil, err
		}
	}
	if err := t.LoadProportions(wholePath, last24Path); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadProportions reads the whole-stay and last-24h proportion tables. Each
// has a patientunitstayid column and one column per signal whose name ends
// with the signal name (propsao2, prop_24sao2, ...). Empty cells are absent.
func (t *Table) LoadProportions(wholePath, last24Path string) error {
	if err := t.loadProportionFile(wholePath, WholeStay); err != nil {
		return err
	}
	return t.loadProportionFile(last24Path, Last24h)
}

func (t *Table) loadProportionFile(path string, w Window) error {
	r, err := eicu.OpenTable(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Require(colStayID); err != nil {
		return err
	}
	cols := make(map[Signal]string)
	for _, c := range r.Columns() {
		for _, sig := range Signals {
			if strings.HasSuffix(c, string(sig)) {
				cols[sig] = c
			}
		}
	}
	for _, sig := range Signals {
		if _, ok := cols[sig]; !ok {
			return fmt.Errorf("%s: no %s column for %s", r.Name(), w, sig)
		}
	}

	idx := r.Index()
	for {
		row, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s row %d: %w", r.Name(), r.RowNum(), err)
		}
		id := eicu.ParseInt(eicu.ValAt(row, idx, colStayID))
		if id == nil {
			return fmt.Errorf("%s row %d: invalid %s", r.Name(), r.RowNum(), colStayID)
		}
		for sig, c := range cols {
			if v := eicu.ParseFloat(eicu.ValAt(row, idx, c)); v != nil {
				t.SetProportion(*id, sig, w, *v)
			}
		}
	}
}
