package cohortio

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"icureadmit/internal/cohort"
)

// ParquetWriter writes cohort rows to a zstd-compressed Parquet file for the
// downstream feature extraction jobs.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[CohortRecord]
	count  int
}

func NewParquetWriter(path string) (*ParquetWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[CohortRecord](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(8*1024),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("icureadmit", "1.0", ""),
	)
	return &ParquetWriter{file: file, writer: writer}, nil
}

// Write appends rows in order.
func (w *ParquetWriter) Write(rows []cohort.CohortRow) (int, error) {
	recs := make([]CohortRecord, len(rows))
	for i, r := range rows {
		recs[i] = ToRecord(r)
	}
	n, err := w.writer.Write(recs)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the file.
func (w *ParquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

func (w *ParquetWriter) Count() int { return w.count }

// WriteParquetFile writes the whole cohort to path.
func WriteParquetFile(path string, rows []cohort.CohortRow) error {
	w, err := NewParquetWriter(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadParquetFile reads a cohort written by WriteParquetFile.
func ReadParquetFile(path string) ([]cohort.CohortRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	recs, err := parquet.Read[CohortRecord](f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	rows := make([]cohort.CohortRow, len(recs))
	for i, rec := range recs {
		rows[i] = rec.Row()
	}
	return rows, nil
}

