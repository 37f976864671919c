package domain

import (
	"context"
	"log/slog"
)

// FillCoordinates forward geocodes records that lack coordinates but name a
// city. Lookup failures and empty results leave the record untouched so the
// converter skips it later. It returns the filled table and the number of
// records that gained coordinates.
func FillCoordinates(ctx context.Context, table Table, geocoder Geocoder, logger *slog.Logger) (Table, int) {
	if geocoder == nil {
		return table, 0
	}

	out := make(Table, len(table))
	filled := 0
	for i, rec := range table {
		out[i] = rec
		if rec.HasCoordinates() || rec.City == "" {
			continue
		}
		if ctx.Err() != nil {
			continue
		}

		result, err := geocoder.ForwardGeocode(ctx, rec.City, rec.Region)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"row", i,
				"city", rec.City,
				"region", rec.Region,
				"error", err,
			)
			continue
		}
		if result.Lat == 0 && result.Lon == 0 {
			logger.Debug("forward geocoding returned no match", "row", i, "city", rec.City, "region", rec.Region)
			continue
		}

		out[i].Lon = Float(result.Lon)
		out[i].Lat = Float(result.Lat)
		filled++
	}
	return out, filled
}
