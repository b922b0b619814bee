package eicu

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to the eICU PostgreSQL build and verifies the connection.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// PostgresSource reads eICU tables from a database created by the eicu-code
// build scripts. Table names are the lowercase eICU names inside Schema.
type PostgresSource struct {
	Pool   *pgxpool.Pool
	Schema string
}

func (s *PostgresSource) Describe() string { return "postgres:" + s.Schema }

func (s *PostgresSource) table(name string) string {
	schema := s.Schema
	if schema == "" {
		schema = "eicu_crd"
	}
	return pgx.Identifier{schema, name}.Sanitize()
}

// Load queries every table. A missing hospital table is tolerated.
func (s *PostgresSource) Load(ctx context.Context) (*Tables, error) {
	var (
		t   Tables
		err error
	)
	if t.Stays, err = s.loadStays(ctx); err != nil {
		return nil, err
	}
	if t.AdmissionDx, err = s.loadAdmissionDx(ctx); err != nil {
		return nil, err
	}
	if t.ApachePred, err = s.loadApachePred(ctx); err != nil {
		return nil, err
	}
	if t.CarePlan, err = s.loadCarePlan(ctx); err != nil {
		return nil, err
	}

	var exists bool
	if err := s.Pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, s.table("hospital")).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check hospital table: %w", err)
	}
	if exists {
		if t.Hospitals, err = s.loadHospitals(ctx); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (s *PostgresSource) loadStays(ctx context.Context) ([]UnitStay, error) {
	q := fmt.Sprintf(`
		SELECT patientunitstayid::bigint,
		       patienthealthsystemstayid::bigint,
		       unitvisitnumber::int,
		       hospitaladmitoffset::int,
		       unitdischargeoffset::int,
		       COALESCE(unitdischargelocation, ''),
		       COALESCE(unittype, ''),
		       COALESCE(unitadmitsource, ''),
		       COALESCE(unitstaytype, ''),
		       COALESCE(hospitaldischargestatus, ''),
		       hospitaldischargeoffset::int,
		       hospitalid::bigint
		FROM %s
		ORDER BY patientunitstayid`, s.table("patient"))

	rows, err := s.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query patient: %w", err)
	}
	defer rows.Close()

	var stays []UnitStay
	for rows.Next() {
		var st UnitStay
		if err := rows.Scan(
			&st.StayID, &st.HospitalStayID, &st.VisitNumber,
			&st.HospitalAdmitOffset, &st.UnitDischargeOffset,
			&st.UnitDischargeLocation, &st.UnitType, &st.UnitAdmitSource, &st.UnitStayType,
			&st.HospitalDischargeStatus, &st.HospitalDischargeOffset, &st.HospitalID,
		); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		stays = append(stays, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patient: %w", err)
	}
	return stays, nil
}

// loadPairs runs a two-column (stay id, text) query.
func (s *PostgresSource) loadPairs(ctx context.Context, table, col string, fn func(id int64, v string)) error {
	q := fmt.Sprintf(`SELECT patientunitstayid::bigint, COALESCE(%s, '') FROM %s`,
		pgx.Identifier{col}.Sanitize(), s.table(table))

	rows, err := s.Pool.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			v  string
		)
		if err := rows.Scan(&id, &v); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		fn(id, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", table, err)
	}
	return nil
}

func (s *PostgresSource) loadAdmissionDx(ctx context.Context) ([]AdmissionDx, error) {
	var out []AdmissionDx
	err := s.loadPairs(ctx, "admissiondx", colAdmitDxPath, func(id int64, v string) {
		out = append(out, AdmissionDx{StayID: id, Path: v})
	})
	return out, err
}

func (s *PostgresSource) loadApachePred(ctx context.Context) ([]ApachePredVar, error) {
	var out []ApachePredVar
	err := s.loadPairs(ctx, "apachepredvar", colAdmitDiagnosis, func(id int64, v string) {
		out = append(out, ApachePredVar{StayID: id, AdmitDiagnosis: v})
	})
	return out, err
}

func (s *PostgresSource) loadCarePlan(ctx context.Context) ([]CarePlanItem, error) {
	var out []CarePlanItem
	err := s.loadPairs(ctx, "careplangeneral", colCplItemValue, func(id int64, v string) {
		out = append(out, CarePlanItem{StayID: id, ItemValue: v})
	})
	return out, err
}

func (s *PostgresSource) loadHospitals(ctx context.Context) ([]Hospital, error) {
	q := fmt.Sprintf(`
		SELECT hospitalid::bigint,
		       COALESCE(numbedscategory, ''),
		       COALESCE(teachingstatus::text, ''),
		       COALESCE(region, '')
		FROM %s
		ORDER BY hospitalid`, s.table("hospital"))

	rows, err := s.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query hospital: %w", err)
	}
	defer rows.Close()

	var out []Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.HospitalID, &h.NumBedsCategory, &h.TeachingStatus, &h.Region); err != nil {
			return nil, fmt.Errorf("scan hospital: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hospital: %w", err)
	}
	return out, nil
}
