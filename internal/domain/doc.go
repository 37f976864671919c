// Package domain models the observation table published in the source
// spreadsheet and its conversion into point features.
//
// # Data Source
//
// Each spreadsheet row is one observation: a date, a region (oblast), a city,
// a longitude/latitude pair and ten integer "value" columns. The sheet is
// exported as CSV; column headers are in Ukrainian:
//
//	Дата | Область | Місто | long | lat | Значення 1 … Значення 10
//
// Coordinates are frequently typed with a comma decimal separator
// ("30,5234"). Empty value cells mean zero.
//
// # Unit Ladder
//
// A row whose largest value is N expands into N indicator rows, one per
// level 1..N. In the row for level i every value column holds 1 when the
// original reading is at least i, otherwise 0:
//
//	values [2 1 0 0 0 0 0 0 0 0]
//	level 1 → [1 1 0 0 0 0 0 0 0 0]
//	level 2 → [1 0 0 0 0 0 0 0 0 0]
//
// Every column appears in every derived row, including columns whose own
// reading is zero. Rows whose readings are all zero produce nothing. See
// [ExpandRow].
//
// # Features
//
// Expanded rows become point features in WGS-84 (WKID 4326) with the fixed
// attribute names date, region, city, value_1 … value_10. Rows without both
// coordinates are skipped and counted, never defaulted. See [ToFeature].
package domain
