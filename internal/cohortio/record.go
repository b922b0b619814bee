// Package cohortio reads and writes the cohort table.
package cohortio

import "icureadmit/internal/cohort"

// Header is the cohort table column order.
var Header = []string{
	"stay_id",
	"transfer_stay_id_1",
	"transfer_stay_id_2",
	"transfer_stay_id_3",
	"transfer_stay_id_4",
	"readmission",
	"death_after_discharge",
	"bad_discharge_plan",
}

// CohortRecord is the flat, column-oriented form of a cohort row. Transfer
// columns are null past the end of the chain; labels are 0/1.
type CohortRecord struct {
	StayID              int64  `parquet:"stay_id"`
	TransferStayID1     *int64 `parquet:"transfer_stay_id_1,optional"`
	TransferStayID2     *int64 `parquet:"transfer_stay_id_2,optional"`
	TransferStayID3     *int64 `parquet:"transfer_stay_id_3,optional"`
	TransferStayID4     *int64 `parquet:"transfer_stay_id_4,optional"`
	Readmission         int32  `parquet:"readmission"`
	DeathAfterDischarge int32  `parquet:"death_after_discharge"`
	BadDischargePlan    int32  `parquet:"bad_discharge_plan"`
}

func (r *CohortRecord) transfers() [cohort.MaxTransfers]**int64 {
	return [cohort.MaxTransfers]**int64{
		&r.TransferStayID1, &r.TransferStayID2, &r.TransferStayID3, &r.TransferStayID4,
	}
}

// ToRecord flattens a cohort row.
func ToRecord(row cohort.CohortRow) CohortRecord {
	rec := CohortRecord{
		StayID:              row.StayID,
		Readmission:         flag(row.Readmission),
		DeathAfterDischarge: flag(row.Death),
		BadDischargePlan:    flag(row.BadDischargePlan),
	}
	for i, slot := range rec.transfers() {
		if i < len(row.TransferStayIDs) {
			id := row.TransferStayIDs[i]
			*slot = &id
		}
	}
	return rec
}

// Row converts the record back to a cohort row.
func (r CohortRecord) Row() cohort.CohortRow {
	row := cohort.CohortRow{
		StayID:           r.StayID,
		Readmission:      r.Readmission != 0,
		Death:            r.DeathAfterDischarge != 0,
		BadDischargePlan: r.BadDischargePlan != 0,
	}
	for _, slot := range r.transfers() {
		if *slot == nil {
			break
		}
		row.TransferStayIDs = append(row.TransferStayIDs, **slot)
	}
	return row
}

func flag(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
