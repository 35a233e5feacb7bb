// Package geo provides geographic primitives for station distance ranking.
package geo

import (
	"errors"
	"math"
)

// ErrNonFiniteCoordinate is returned when a coordinate is NaN or infinite.
var ErrNonFiniteCoordinate = errors.New("non-finite coordinate")

// EarthRadiusKM is the Earth mean radius used by the haversine formula.
const EarthRadiusKM = 6371.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between two points in
// kilometers, computed with the haversine formula and rounded to two
// decimal places. Validating that coordinates fall inside the −90..90 /
// −180..180 ranges is the caller's job; NaN and infinite input is rejected.
func Distance(a, b Point) (float64, error) {
	for _, v := range [...]float64{a.Lat, a.Lon, b.Lat, b.Lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, ErrNonFiniteCoordinate
		}
	}

	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(EarthRadiusKM*c*100) / 100, nil
}
