package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one data row keyed by its (upper-cased) header name. Lookups for
// columns absent from the file return "".
type Row struct {
	columns map[string]int
	fields  []string
}

// Get returns the value of the named column, or "" when the column or value
// is missing. Lookup is case-insensitive.
func (r Row) Get(name string) string {
	idx, ok := r.columns[strings.ToUpper(strings.TrimSpace(name))]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return r.fields[idx]
}

// Has reports whether the file carried the named column at all.
func (r Row) Has(name string) bool {
	_, ok := r.columns[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// ReadRows parses header-keyed CSV rows. Extra columns are kept, short rows
// are tolerated; only a malformed file is an error.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // column count varies across exports

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToUpper(strings.TrimSpace(name))] = i
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, Row{columns: columns, fields: rec})
	}
	return rows, nil
}

// ReadFile reads header-keyed CSV rows from a file on disk.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rows, nil
}
