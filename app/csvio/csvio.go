// Package csvio converts table records to and from CSV. Column headers are
// dot paths into the record ("customerDetails.name", "items.0.vehicle.chassisNumber").
package csvio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"backoffice/core/value"
)

// ErrEmpty is returned when a CSV has no header row
var ErrEmpty = errors.New("csv is empty")

// Columns returns the union of leaf paths of records in first-seen order
func Columns(records []value.Value) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for _, path := range value.Leaves(rec) {
			if !seen[path] {
				seen[path] = true
				cols = append(cols, path)
			}
		}
	}
	return cols
}

// Write renders records as CSV. With no columns given, Columns(records) is
// used. It returns the number of data rows written.
func Write(w io.Writer, records []value.Value, columns []string) (int, error) {
	if len(columns) == 0 {
		columns = Columns(records)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return 0, err
	}

	row := make([]string, len(columns))
	for n, rec := range records {
		for i, path := range columns {
			cell, err := Cell(rec, path)
			if err != nil {
				return n, fmt.Errorf("row %d column %s: %w", n+1, path, err)
			}
			row[i] = cell
		}
		if err := cw.Write(row); err != nil {
			return n, err
		}
	}

	cw.Flush()
	return len(records), cw.Error()
}

// Cell renders the value at path for a CSV cell. Missing and null values are
// empty; lists and maps are written as JSON.
func Cell(record value.Value, path string) (string, error) {
	v, ok := value.Lookup(record, path)
	if !ok || v.IsNull() {
		return "", nil
	}
	switch v.Kind() {
	case value.KindBool:
		return strconv.FormatBool(v.AsBool()), nil
	case value.KindDate:
		return v.AsTime().Format(time.RFC3339), nil
	case value.KindList, value.KindMap:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return v.String(), nil
}

// Read parses CSV into records. The header row names the dot path of every
// column; empty cells are left unset.
func Read(r io.Reader) ([]value.Value, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	}

	var records []value.Value
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		rec := value.NewMap()
		for i, cell := range row {
			if i >= len(header) || header[i] == "" || cell == "" {
				continue
			}
			rec = value.Assign(rec, header[i], ParseCell(cell))
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseCell infers a cell's type: true/false become booleans, numbers whose
// canonical form matches the text become numbers (so "0411" stays a string),
// JSON lists and objects are decoded. Everything else is a string.
func ParseCell(cell string) value.Value {
	switch cell {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}

	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		if value.Number(n).String() == cell {
			return value.Number(n)
		}
	}

	if strings.HasPrefix(cell, "[") || strings.HasPrefix(cell, "{") {
		if v, err := value.Parse([]byte(cell)); err == nil {
			return v
		}
	}
	return value.String(cell)
}
