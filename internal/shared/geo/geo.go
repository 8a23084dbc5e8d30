package geo

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

const earthRadiusKm = 6371

// Coordinate is one GPS fix. Timestamp is epoch milliseconds; zero means the
// fix carries no timestamp.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// HaversineKm returns the great-circle distance in kilometres between two
// points given as latitude/longitude degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := rlat2 - rlat1
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(math.Max(0, a)))
}

// DistanceKm is HaversineKm over two coordinates.
func DistanceKm(a, b Coordinate) float64 {
	return HaversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// DistanceM is DistanceKm in metres.
func DistanceM(a, b Coordinate) float64 {
	return DistanceKm(a, b) * 1000
}

// ToLngLat converts coordinates to the [longitude, latitude] pair convention
// used by the scoring API and GeoJSON.
func ToLngLat(coords []Coordinate) [][]float64 {
	pairs := make([][]float64, 0, len(coords))
	for _, c := range coords {
		pairs = append(pairs, []float64{c.Longitude, c.Latitude})
	}
	return pairs
}

// RouteDistanceKm sums consecutive haversine distances over [lng,lat] pairs.
func RouteDistanceKm(pairs [][]float64) float64 {
	total := 0.0
	for i := 0; i+1 < len(pairs); i++ {
		total += HaversineKm(pairs[i][1], pairs[i][0], pairs[i+1][1], pairs[i+1][0])
	}
	return total
}

// ColorForUser derives a stable HSL color string from a user id. The hue is
// the first 8 hex digits of md5(id) mod 360.
func ColorForUser(userID string) string {
	sum := md5.Sum([]byte(userID))
	head := hex.EncodeToString(sum[:])[:8]
	val, err := strconv.ParseUint(head, 16, 64)
	if err != nil {
		return "hsl(0, 70%, 55%)"
	}
	return fmt.Sprintf("hsl(%d, 70%%, 55%%)", val%360)
}
