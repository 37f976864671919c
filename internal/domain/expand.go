package domain

import (
	"errors"
	"fmt"
)

// ErrNegativeValue reports a value reading below zero. Normalization rejects
// these, so seeing one during expansion means the table was built elsewhere.
var ErrNegativeValue = errors.New("negative value reading")

// ExpandRow applies the unit ladder to one record. For each level 1..max of
// the readings in valueFields it emits a copy of rec whose value fields are 1
// where the reading reaches that level and 0 elsewhere. A record whose
// readings are all zero yields nil.
func ExpandRow(rec Record, valueFields []string) []Record {
	values := make([]int, len(valueFields))
	maxVal := 0
	for j, field := range valueFields {
		values[j] = rec.Values[field]
		if values[j] > maxVal {
			maxVal = values[j]
		}
	}
	if maxVal == 0 {
		return nil
	}

	rows := make([]Record, 0, maxVal)
	for level := 1; level <= maxVal; level++ {
		indicators := make(map[string]int, len(rec.Values))
		for k, v := range rec.Values {
			indicators[k] = v
		}
		for j, field := range valueFields {
			if values[j] >= level {
				indicators[field] = 1
			} else {
				indicators[field] = 0
			}
		}
		rows = append(rows, rec.withValues(indicators))
	}
	return rows
}

// ExpandTable expands every record of table in order. Derived rows of one
// source row stay contiguous and in ascending level order; all-zero rows
// contribute nothing, so the result may be empty.
func ExpandTable(table Table, valueFields []string, obs Observer) (Table, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	out := make(Table, 0, ExpandedLength(table, valueFields))
	for i, rec := range table {
		for _, field := range valueFields {
			if v := rec.Values[field]; v < 0 {
				return nil, fmt.Errorf("row %d column %q = %d: %w", i, field, v, ErrNegativeValue)
			}
		}
		out = append(out, ExpandRow(rec, valueFields)...)
	}

	obs.TableExpanded(len(table), len(out))
	return out, nil
}

// ExpandedLength returns the number of rows ExpandTable produces for table:
// the sum of each row's largest positive reading.
func ExpandedLength(table Table, valueFields []string) int {
	n := 0
	for _, rec := range table {
		maxVal := 0
		for _, field := range valueFields {
			maxVal = max(maxVal, rec.Values[field])
		}
		n += maxVal
	}
	return n
}
