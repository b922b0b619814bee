package eicu

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// eICU column names.
const (
	colStayID          = "patientunitstayid"
	colHospitalStayID  = "patienthealthsystemstayid"
	colVisitNumber     = "unitvisitnumber"
	colHospAdmitOffset = "hospitaladmitoffset"
	colUnitDischOffset = "unitdischargeoffset"
	colUnitDischLoc    = "unitdischargelocation"
	colUnitType        = "unittype"
	colUnitAdmitSource = "unitadmitsource"
	colUnitStayType    = "unitstaytype"
	colHospDischStatus = "hospitaldischargestatus"
	colHospDischOffset = "hospitaldischargeoffset"
	colHospitalID      = "hospitalid"
	colAdmitDxPath     = "admitdxpath"
	colAdmitDiagnosis  = "admitdiagnosis"
	colCplItemValue    = "cplitemvalue"
	colNumBeds         = "numbedscategory"
	colTeaching        = "teachingstatus"
	colRegion          = "region"
)

// FileNames maps each table to its file name inside the eICU directory.
type FileNames struct {
	Patient       string `mapstructure:"patient"`
	AdmissionDx   string `mapstructure:"admission_dx"`
	ApachePredVar string `mapstructure:"apache_pred_var"`
	CarePlan      string `mapstructure:"care_plan"`
	Hospital      string `mapstructure:"hospital"`
}

// DefaultFileNames are the names used by the PhysioNet eICU-CRD 2.0 release.
func DefaultFileNames() FileNames {
	return FileNames{
		Patient:       "patient.csv",
		AdmissionDx:   "admissionDx.csv",
		ApachePredVar: "apachePredVar.csv",
		CarePlan:      "carePlanGeneral.csv",
		Hospital:      "hospital.csv",
	}
}

// CSVSource reads eICU tables from a directory of CSV exports.
type CSVSource struct {
	Dir   string
	Files FileNames
}

// NewCSVSource returns a CSVSource with the default file names.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir, Files: DefaultFileNames()}
}

func (s *CSVSource) Describe() string { return "csv:" + s.Dir }

// Load reads every table. The hospital table is optional.
func (s *CSVSource) Load(ctx context.Context) (*Tables, error) {
	var (
		t   Tables
		err error
	)
	if t.Stays, err = ReadUnitStays(s.resolve(s.Files.Patient)); err != nil {
		return nil, err
	}
	if t.AdmissionDx, err = ReadAdmissionDx(s.resolve(s.Files.AdmissionDx)); err != nil {
		return nil, err
	}
	if t.ApachePred, err = ReadApachePredVar(s.resolve(s.Files.ApachePredVar)); err != nil {
		return nil, err
	}
	if t.CarePlan, err = ReadCarePlan(s.resolve(s.Files.CarePlan)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p := s.resolve(s.Files.Hospital); fileExists(p) {
		if t.Hospitals, err = ReadHospitals(p); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// resolve finds name inside Dir, accepting a gzipped variant and a
// case-insensitive match (eICU file casing differs between releases).
func (s *CSVSource) resolve(name string) string {
	direct := filepath.Join(s.Dir, name)
	if fileExists(direct) {
		return direct
	}
	if fileExists(direct + ".gz") {
		return direct + ".gz"
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return direct
	}
	for _, e := range entries {
		n := e.Name()
		if strings.EqualFold(n, name) || strings.EqualFold(n, name+".gz") {
			return filepath.Join(s.Dir, n)
		}
	}
	return direct
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// scanTable opens path, checks required columns and calls fn for each row.
func scanTable(path string, required []string, fn func(r *TableReader, row []string) error) error {
	r, err := OpenTable(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Require(required...); err != nil {
		return err
	}
	for {
		row, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s row %d: %w", r.Name(), r.RowNum(), err)
		}
		if err := fn(r, row); err != nil {
			return fmt.Errorf("%s row %d: %w", r.Name(), r.RowNum(), err)
		}
	}
}

func requireInt(row []string, idx map[string]int, col string) (int64, error) {
	v := optInt(row, idx, col)
	if v == nil {
		return 0, fmt.Errorf("%s: missing or non-integer value %q", col, ValAt(row, idx, col))
	}
	return *v, nil
}

// ReadUnitStays reads the patient table.
func ReadUnitStays(path string) ([]UnitStay, error) {
	required := []string{colStayID, colHospitalStayID, colVisitNumber,
		colHospAdmitOffset, colUnitDischOffset, colUnitDischLoc}

	var stays []UnitStay
	err := scanTable(path, required, func(r *TableReader, row []string) error {
		idx := r.Index()
		var (
			s   UnitStay
			v   int64
			err error
		)
		if s.StayID, err = requireInt(row, idx, colStayID); err != nil {
			return err
		}
		if s.HospitalStayID, err = requireInt(row, idx, colHospitalStayID); err != nil {
			return err
		}
		if v, err = requireInt(row, idx, colVisitNumber); err != nil {
			return err
		}
		s.VisitNumber = int(v)
		if v, err = requireInt(row, idx, colHospAdmitOffset); err != nil {
			return err
		}
		s.HospitalAdmitOffset = int(v)
		if v, err = requireInt(row, idx, colUnitDischOffset); err != nil {
			return err
		}
		s.UnitDischargeOffset = int(v)

		s.UnitDischargeLocation = ValAt(row, idx, colUnitDischLoc)
		s.UnitType = ValAt(row, idx, colUnitType)
		s.UnitAdmitSource = ValAt(row, idx, colUnitAdmitSource)
		s.UnitStayType = ValAt(row, idx, colUnitStayType)
		s.HospitalDischargeStatus = ValAt(row, idx, colHospDischStatus)
		if off := optInt(row, idx, colHospDischOffset); off != nil {
			o := int(*off)
			s.HospitalDischargeOffset = &o
		}
		s.HospitalID = optInt(row, idx, colHospitalID)

		stays = append(stays, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stays, nil
}

// ReadAdmissionDx reads the admissionDx table.
func ReadAdmissionDx(path string) ([]AdmissionDx, error) {
	var out []AdmissionDx
	err := scanTable(path, []string{colStayID, colAdmitDxPath}, func(r *TableReader, row []string) error {
		id, err := requireInt(row, r.Index(), colStayID)
		if err != nil {
			return err
		}
		out = append(out, AdmissionDx{StayID: id, Path: ValAt(row, r.Index(), colAdmitDxPath)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadApachePredVar reads the apachePredVar table.
func ReadApachePredVar(path string) ([]ApachePredVar, error) {
	var out []ApachePredVar
	err := scanTable(path, []string{colStayID, colAdmitDiagnosis}, func(r *TableReader, row []string) error {
		id, err := requireInt(row, r.Index(), colStayID)
		if err != nil {
			return err
		}
		out = append(out, ApachePredVar{StayID: id, AdmitDiagnosis: ValAt(row, r.Index(), colAdmitDiagnosis)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadCarePlan reads the carePlanGeneral table.
func ReadCarePlan(path string) ([]CarePlanItem, error) {
	var out []CarePlanItem
	err := scanTable(path, []string{colStayID, colCplItemValue}, func(r *TableReader, row []string) error {
		id, err := requireInt(row, r.Index(), colStayID)
		if err != nil {
			return err
		}
		out = append(out, CarePlanItem{StayID: id, ItemValue: ValAt(row, r.Index(), colCplItemValue)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadHospitals reads the hospital table.
func ReadHospitals(path string) ([]Hospital, error) {
	var out []Hospital
	err := scanTable(path, []string{colHospitalID}, func(r *TableReader, row []string) error {
		idx := r.Index()
		id, err := requireInt(row, idx, colHospitalID)
		if err != nil {
			return err
		}
		out = append(out, Hospital{
			HospitalID:      id,
			NumBedsCategory: ValAt(row, idx, colNumBeds),
			TeachingStatus:  ValAt(row, idx, colTeaching),
			Region:          ValAt(row, idx, colRegion),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
