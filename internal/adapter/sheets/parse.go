package sheets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
)

// SchemaError lists required columns missing from the sheet header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool {
	return target == domain.ErrInvalidTable
}

// ValueError reports a value cell that is not a non-negative integer.
type ValueError struct {
	Line   int // sheet line, the header being line 1
	Column string
	Value  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("line %d column %q: %q is not a non-negative integer", e.Line, e.Column, e.Value)
}

func (e *ValueError) Is(target error) bool {
	return target == domain.ErrInvalidTable
}

// ParseTable reads a CSV export into a normalized table. The header must
// contain every column of schema. Coordinates may use a comma decimal
// separator and become nil when unparseable; blank value cells become 0.
func ParseTable(r io.Reader, schema domain.Schema) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Missing: schema.RequiredColumns()}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range schema.RequiredColumns() {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	var table domain.Table
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		cell := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := domain.Record{
			Date:   cell(schema.Date),
			Region: cell(schema.Region),
			City:   cell(schema.City),
			Lon:    parseCoordinate(cell(schema.Longitude)),
			Lat:    parseCoordinate(cell(schema.Latitude)),
			Values: make(map[string]int, len(schema.ValueColumns)),
		}
		for _, col := range schema.ValueColumns {
			v, ok := parseValue(cell(col))
			if !ok {
				return nil, &ValueError{Line: line, Column: col, Value: cell(col)}
			}
			rec.Values[col] = v
		}
		table = append(table, rec)
	}
	return table, nil
}

// parseCoordinate accepts "30.5" and "30,5". It returns nil for blank or
// unparseable input.
func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseValue reads a value cell. Blank means 0; integral floats such as
// "3.0" are accepted. Readings must fit an unsigned 16-bit integer.
func parseValue(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0 && n <= math.MaxUint16
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > math.MaxUint16 {
		return 0, false
	}
	return int(f), true
}
