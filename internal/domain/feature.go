package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// SpatialReferenceWKID is the spatial reference of every feature geometry (WGS-84).
const SpatialReferenceWKID = 4326

// ErrInvalidIndicator reports an expanded record whose value field is absent
// or not a 0/1 indicator.
var ErrInvalidIndicator = errors.New("invalid indicator value")

// SpatialReference identifies a coordinate system by well-known ID.
type SpatialReference struct {
	WKID int `json:"wkid"`
}

// Geometry is a point in the given spatial reference.
type Geometry struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

// Attributes are the feature fields under their external names.
// Values[k] is serialized as value_{k+1}.
type Attributes struct {
	Date   string
	Region string
	City   string
	Values []int
}

// MarshalJSON writes the attributes in their fixed external order:
// date, region, city, value_1 … value_N.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range []struct{ key, val string }{
		{"date", a.Date}, {"region", a.Region}, {"city", a.City},
	} {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := json.Marshal(kv.val)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:%s", kv.key, val)
	}
	for k, v := range a.Values {
		buf.WriteString(`,"`)
		buf.WriteString(AttributeName(k))
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(v))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads attributes written by MarshalJSON.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Attributes{}
	for key, dst := range map[string]*string{"date": &out.Date, "region": &out.Region, "city": &out.City} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("attribute %s: %w", key, err)
			}
		}
	}
	for k := 0; ; k++ {
		v, ok := raw[AttributeName(k)]
		if !ok {
			break
		}
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("attribute %s: %w", AttributeName(k), err)
		}
		out.Values = append(out.Values, n)
	}
	*a = out
	return nil
}

// AttributeName returns the external name of the k-th (zero-based) value field.
func AttributeName(k int) string {
	return "value_" + strconv.Itoa(k+1)
}

// Feature is an attribute/geometry pair ready for a feature service.
type Feature struct {
	Attributes Attributes `json:"attributes"`
	Geometry   Geometry   `json:"geometry"`
}

// ToFeature converts an expanded record. ok is false when the record lacks a
// usable longitude or latitude; such records are skipped, not defaulted. An
// error means a value field is absent or not an indicator.
func ToFeature(rec Record, valueFields []string) (f Feature, ok bool, err error) {
	if !rec.HasCoordinates() || !finite(*rec.Lon) || !finite(*rec.Lat) {
		return Feature{}, false, nil
	}

	values := make([]int, len(valueFields))
	for k, field := range valueFields {
		v, present := rec.Values[field]
		if !present {
			return Feature{}, false, fmt.Errorf("column %q missing: %w", field, ErrInvalidIndicator)
		}
		if v != 0 && v != 1 {
			return Feature{}, false, fmt.Errorf("column %q = %d: %w", field, v, ErrInvalidIndicator)
		}
		values[k] = v
	}

	return Feature{
		Attributes: Attributes{
			Date:   rec.Date,
			Region: rec.Region,
			City:   rec.City,
			Values: values,
		},
		Geometry: Geometry{
			X:                *rec.Lon,
			Y:                *rec.Lat,
			SpatialReference: SpatialReference{WKID: SpatialReferenceWKID},
		},
	}, true, nil
}

// ConvertResult is the outcome of converting a table.
type ConvertResult struct {
	Features []Feature
	Skipped  int
}

// ConvertFeatures converts every record of an expanded table, skipping rows
// without coordinates. The first conversion error aborts the whole table.
func ConvertFeatures(table Table, valueFields []string, obs Observer) (ConvertResult, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	res := ConvertResult{Features: make([]Feature, 0, len(table))}
	for i, rec := range table {
		f, ok, err := ToFeature(rec, valueFields)
		if err != nil {
			return ConvertResult{}, fmt.Errorf("convert row %d: %w", i, err)
		}
		if !ok {
			res.Skipped++
			continue
		}
		res.Features = append(res.Features, f)
	}

	obs.FeaturesConverted(len(res.Features), res.Skipped)
	return res, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
