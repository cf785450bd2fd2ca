// core/csv.go
package core

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// csvTable is a loaded CSV with header-indexed field access. Column names
// are whitespace-stripped on load, matching how the input-validation
// collaborator writes them.
type csvTable struct {
	path string
	cols map[string]int
	rows [][]string
}

func readCSVTable(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty table", path)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}
	return &csvTable{path: path, cols: cols, rows: records[1:]}, nil
}

// requireColumns confirms the table carries every named column.
func (t *csvTable) requireColumns(names ...string) error {
	for _, name := range names {
		if _, ok := t.cols[name]; !ok {
			return fmt.Errorf("%s: missing required column %q", t.path, name)
		}
	}
	return nil
}

func (t *csvTable) field(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// floatField parses a float column, treating blank and NaN cells as the
// provided fill value.
func (t *csvTable) floatField(row []string, col string, fill float64) (float64, error) {
	s := t.field(row, col)
	if s == "" {
		return fill, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: column %q: %v", t.path, col, err)
	}
	if math.IsNaN(v) {
		return fill, nil
	}
	return v, nil
}

func (t *csvTable) intField(row []string, col string) (int, error) {
	s := t.field(row, col)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: column %q: %v", t.path, col, err)
	}
	return v, nil
}

// formatFloat writes floats the way the downstream staging loader and the
// assignment engine expect: shortest round-trip representation.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
