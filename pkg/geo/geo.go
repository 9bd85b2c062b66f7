package geo

import (
	"errors"
	"math"
)

// ErrInvalidGeometry is returned when a point carries non-finite or
// out-of-range coordinates. Callers should never see NaN from this package.
var ErrInvalidGeometry = errors.New("invalid geometry")

// earthRadiusKm is the mean Earth radius used for great-circle distance.
const earthRadiusKm = 6371.0

// Point is a single GPS fix with a millisecond timestamp.
type Point struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// Valid reports whether the point's coordinates are finite and in range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return false
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the great-circle (haversine) distance between two points
// in kilometers. It is symmetric and bounded by half the Earth's circumference.
func Distance(a, b Point) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, ErrInvalidGeometry
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// Clamp against floating error before the square root so antipodal
	// points cannot push the argument of Asin above 1.
	if h > 1 {
		h = 1
	}
	if h < 0 {
		h = 0
	}

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h)), nil
}

// PathDistance returns the total length of a path in kilometers, computed as
// the sum of consecutive-pair distances. Paths of length 0 or 1 have distance 0.
func PathDistance(path []Point) (float64, error) {
	if len(path) <= 1 {
		if len(path) == 1 && !path[0].Valid() {
			return 0, ErrInvalidGeometry
		}
		return 0, nil
	}

	var total float64
	for i := 1; i < len(path); i++ {
		d, err := Distance(path[i-1], path[i])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// ElapsedMinutes returns the span between the first and last timestamps of a
// path in minutes. Returns 0 for short paths or non-increasing clocks.
func ElapsedMinutes(path []Point) float64 {
	if len(path) <= 1 {
		return 0
	}
	deltaMs := path[len(path)-1].TimestampMs - path[0].TimestampMs
	if deltaMs <= 0 {
		return 0
	}
	return float64(deltaMs) / 60000.0
}

// AverageSpeed returns the average speed over a path in km/h. When the
// elapsed time between the first and last fix is zero the speed is defined
// as 0 rather than dividing by zero.
func AverageSpeed(path []Point) (float64, error) {
	dist, err := PathDistance(path)
	if err != nil {
		return 0, err
	}

	elapsedHours := ElapsedMinutes(path) / 60.0
	if elapsedHours <= 0 {
		return 0, nil
	}

	return dist / elapsedHours, nil
}
