package coverage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// WriteProportions writes the whole-stay and last-24h tables in the layout
// LoadProportions reads, one row per stay sorted by stay id.
func (t *Table) WriteProportions(wholePath, last24Path string) error {
	ids := t.StayIDs()
	if err := t.writeWindow(wholePath, WholeStay, ids); err != nil {
		return err
	}
	return t.writeWindow(last24Path, Last24h, ids)
}

func (t *Table) writeWindow(path string, w Window, ids []int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{colStayID}
	for _, sig := range Signals {
		header = append(header, sig.column(w))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", path, err)
	}

	record := make([]string, len(header))
	for _, id := range ids {
		record[0] = strconv.FormatInt(id, 10)
		for i, sig := range Signals {
			record[i+1] = ""
			if p, ok := t.Proportion(id, sig, w); ok {
				record[i+1] = strconv.FormatFloat(p, 'f', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
