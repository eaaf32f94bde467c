package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a table from a CSV file with a header row.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return t, nil
}

// missingMarkers are cell spellings read as missing, the set pandas
// read_csv uses by default.
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := missingMarkers[s]; ok {
		return ""
	}
	return s
}

// ReadCSV reads a header row followed by records. Missing markers such as NA
// or null become empty cells. A column is numeric when every non-empty cell
// parses as a float; otherwise it is text.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv: missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cells := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		for i := range header {
			cells[i] = append(cells[i], normalizeCell(rec[i]))
		}
	}

	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = inferColumn(name, cells[i])
	}
	return NewTable(cols...)
}

func inferColumn(name string, raw []string) Column {
	nums := make([]float64, len(raw))
	for i, s := range raw {
		if s == "" {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return TextColumn(name, raw...)
		}
		nums[i] = v
	}
	return NumberColumn(name, nums...)
}
