package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	results map[string]GeocodingResult
	err     error
	calls   []string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, city, region string) (GeocodingResult, error) {
	m.calls = append(m.calls, city+"|"+region)
	if m.err != nil {
		return GeocodingResult{}, m.err
	}
	return m.results[city], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestFillCoordinates_NilGeocoder(t *testing.T) {
	rec := makeRecord("Lviv", 1)
	rec.Lon = nil
	table := Table{rec}

	out, filled := FillCoordinates(context.Background(), table, nil, discardLogger())
	assert.Equal(t, 0, filled)
	assert.Nil(t, out[0].Lon)
}

func TestFillCoordinates_FillsMissing(t *testing.T) {
	geo := &mockGeocoder{results: map[string]GeocodingResult{
		"Lviv": {Lat: 49.8397, Lon: 24.0297, PlaceName: "Lviv"},
	}}
	missing := makeRecord("Lviv", 1)
	missing.Region = "Lvivska"
	missing.Lon, missing.Lat = nil, nil
	table := Table{makeRecord("Kyiv", 1), missing}

	out, filled := FillCoordinates(context.Background(), table, geo, discardLogger())
	require.Len(t, out, 2)
	assert.Equal(t, 1, filled)
	assert.Equal(t, []string{"Lviv|Lvivska"}, geo.calls, "rows with coordinates are not geocoded")
	require.True(t, out[1].HasCoordinates())
	assert.InDelta(t, 24.0297, *out[1].Lon, 1e-9)
	assert.InDelta(t, 49.8397, *out[1].Lat, 1e-9)
	assert.Nil(t, table[1].Lon, "input table is not modified")
}

func TestFillCoordinates_ErrorGracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("API timeout")}
	rec := makeRecord("Lviv", 1)
	rec.Lat = nil

	out, filled := FillCoordinates(context.Background(), Table{rec}, geo, discardLogger())
	assert.Equal(t, 0, filled)
	assert.Nil(t, out[0].Lat)
	assert.NotNil(t, out[0].Lon, "existing coordinate preserved")
}

func TestFillCoordinates_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{results: map[string]GeocodingResult{}}
	rec := makeRecord("Nowhere", 1)
	rec.Lon, rec.Lat = nil, nil

	out, filled := FillCoordinates(context.Background(), Table{rec}, geo, discardLogger())
	assert.Equal(t, 0, filled)
	assert.False(t, out[0].HasCoordinates())
}

func TestFillCoordinates_NoCity(t *testing.T) {
	geo := &mockGeocoder{}
	rec := makeRecord("", 1)
	rec.Lon = nil

	_, filled := FillCoordinates(context.Background(), Table{rec}, geo, discardLogger())
	assert.Equal(t, 0, filled)
	assert.Empty(t, geo.calls)
}

func TestFillCoordinates_CancelledContext(t *testing.T) {
	geo := &mockGeocoder{}
	rec := makeRecord("Lviv", 1)
	rec.Lon = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, filled := FillCoordinates(ctx, Table{rec}, geo, discardLogger())
	assert.Equal(t, 0, filled)
	assert.Len(t, out, 1)
	assert.Empty(t, geo.calls)
}
