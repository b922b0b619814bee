package eicu

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TableReader streams one eICU CSV export (plain or gzipped) row by row and
// resolves columns by header name, case-insensitively.
type TableReader struct {
	name   string
	file   *os.File
	gz     *gzip.Reader
	csv    *csv.Reader
	rowNum int64
	header []string       // lowercase, file order
	colIdx map[string]int // lowercase header → first column index
}

// OpenTable opens path and reads its header row. Files ending in .gz are
// decompressed on the fly.
func OpenTable(path string) (*TableReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var src io.Reader = bufio.NewReaderSize(file, 256*1024)
	var gz *gzip.Reader
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err = gzip.NewReader(src)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		src = gz
	}

	bufReader := bufio.NewReader(src)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	r := &TableReader{
		name:   tableName(path),
		file:   file,
		gz:     gz,
		csv:    reader,
		colIdx: make(map[string]int),
	}

	if err := r.readHeader(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func tableName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r *TableReader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read %s header: %w", r.name, err)
	}
	r.rowNum++
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	r.header = make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		r.header[i] = key
		if _, dup := r.colIdx[key]; !dup {
			r.colIdx[key] = i
		}
	}
	return nil
}

// Require returns an error naming the first column missing from the header.
func (r *TableReader) Require(cols ...string) error {
	for _, c := range cols {
		if !r.Has(c) {
			return fmt.Errorf("%s: missing column %q", r.name, c)
		}
	}
	return nil
}

// Has reports whether the header contains col.
func (r *TableReader) Has(col string) bool {
	_, ok := r.colIdx[strings.ToLower(col)]
	return ok
}

// Columns returns the lowercase header names in file order, repeats included.
func (r *TableReader) Columns() []string {
	return append([]string(nil), r.header...)
}

// Next returns the next non-empty data row, or nil, io.EOF when done.
func (r *TableReader) Next() ([]string, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return nil, err
		}
		r.rowNum++

		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		return row, nil
	}
}

// Name is the table name derived from the file name.
func (r *TableReader) Name() string { return r.name }

// RowNum returns the current CSV row number (1-based, header included).
func (r *TableReader) RowNum() int64 { return r.rowNum }

// Index exposes the header index for the column helpers.
func (r *TableReader) Index() map[string]int { return r.colIdx }

func (r *TableReader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Column access helpers, shared with the signal readers. Missing columns and
// empty cells read as null.

func ValAt(row []string, idx map[string]int, col string) string {
	if i, ok := idx[col]; ok && i < len(row) {
		return strings.ToValidUTF8(strings.TrimSpace(row[i]), "\uFFFD")
	}
	return ""
}

func optInt(row []string, idx map[string]int, col string) *int64 {
	if i, ok := idx[col]; ok && i < len(row) {
		return ParseInt(row[i])
	}
	return nil
}

// ParseInt accepts integers and integral floats ("42", "42.0"); eICU exports
// written through pandas carry the latter for nullable integer columns.
func ParseInt(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return nil
	}
	n := int64(f)
	return &n
}

func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
