package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTable marks source errors caused by the table's contents (missing
// columns, unreadable values) rather than by retrieving it.
var ErrInvalidTable = errors.New("invalid table")

// ValueColumnCount is the number of value columns every table carries.
const ValueColumnCount = 10

// Schema names the source columns a table must provide.
type Schema struct {
	Date         string
	Region       string
	City         string
	Longitude    string
	Latitude     string
	ValueColumns []string
}

// DefaultSchema returns the column layout of the published sheet.
func DefaultSchema() Schema {
	return NewSchema("Значення ")
}

// NewSchema returns the default layout with value columns named
// prefix+"1" … prefix+"10".
func NewSchema(valuePrefix string) Schema {
	return Schema{
		Date:         "Дата",
		Region:       "Область",
		City:         "Місто",
		Longitude:    "long",
		Latitude:     "lat",
		ValueColumns: ValueColumns(valuePrefix),
	}
}

// ValueColumns builds the ordered value column names for a prefix.
func ValueColumns(prefix string) []string {
	cols := make([]string, ValueColumnCount)
	for i := range cols {
		cols[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return cols
}

// RequiredColumns lists every column the source header must contain.
func (s Schema) RequiredColumns() []string {
	cols := []string{s.Date, s.Region, s.City, s.Longitude, s.Latitude}
	return append(cols, s.ValueColumns...)
}

// Record is one normalized spreadsheet row.
type Record struct {
	Date   string
	Region string
	City   string
	Lon    *float64 // nil when missing or unparseable
	Lat    *float64 // nil when missing or unparseable
	// Values holds the value readings keyed by column name. Absent readings
	// are filled with 0 during normalization.
	Values map[string]int
}

// Table is an ordered sequence of records sharing one schema.
type Table []Record

// HasCoordinates reports whether both longitude and latitude are set.
func (r Record) HasCoordinates() bool {
	return r.Lon != nil && r.Lat != nil
}

// Float returns a pointer to v, for building records with coordinates.
func Float(v float64) *float64 {
	return &v
}

// withValues copies r with a fresh Values map so derived rows never share
// state with their source.
func (r Record) withValues(values map[string]int) Record {
	out := r
	out.Values = values
	return out
}
