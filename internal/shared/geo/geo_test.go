package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	ab := HaversineKm(51.5, -0.1, 48.85, 2.35)
	ba := HaversineKm(48.85, 2.35, 51.5, -0.1)
	if math.Abs(ab-ba) > 1e-12 {
		t.Fatalf("haversine not symmetric: %v vs %v", ab, ba)
	}
}

func TestHaversineZeroForSamePoint(t *testing.T) {
	if d := HaversineKm(12.34, 56.78, 12.34, 56.78); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestHaversineMonotonicWithSeparation(t *testing.T) {
	base := Coordinate{Latitude: 0, Longitude: 0}
	prev := 0.0
	for _, dlng := range []float64{0.001, 0.01, 0.1, 1} {
		d := DistanceKm(base, Coordinate{Latitude: 0, Longitude: dlng})
		if d <= prev {
			t.Fatalf("distance not increasing at dlng=%v: %v <= %v", dlng, d, prev)
		}
		prev = d
	}
}

func TestToLngLatOrder(t *testing.T) {
	pairs := ToLngLat([]Coordinate{{Latitude: 51.5, Longitude: -0.1}})
	if len(pairs) != 1 || pairs[0][0] != -0.1 || pairs[0][1] != 51.5 {
		t.Fatalf("unexpected pairs: %v", pairs)
	}
}

func TestRouteDistanceKm(t *testing.T) {
	pairs := [][]float64{{-0.1, 51.5}, {-0.1, 51.51}, {-0.1, 51.52}}
	want := HaversineKm(51.5, -0.1, 51.51, -0.1) + HaversineKm(51.51, -0.1, 51.52, -0.1)
	if got := RouteDistanceKm(pairs); math.Abs(got-want) > 1e-9 {
		t.Fatalf("route distance %v, want %v", got, want)
	}
	if RouteDistanceKm(nil) != 0 {
		t.Fatalf("empty route should be 0")
	}
}

func TestColorForUserStable(t *testing.T) {
	a := ColorForUser("user-1")
	if a != ColorForUser("user-1") {
		t.Fatalf("color not stable")
	}
	if a[:4] != "hsl(" {
		t.Fatalf("unexpected color format: %q", a)
	}
	if a == ColorForUser("user-2") {
		t.Fatalf("expected distinct colors for these ids")
	}
}
