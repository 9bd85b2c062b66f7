package verify

import (
	"math"
	"testing"

	"github.com/stakeway/stakeway-platform/pkg/geo"
)

// pathWithLegs builds a path where each leg covers legKm in legMin minutes.
func pathWithLegs(legs []struct {
	legKm  float64
	legMin float64
}) []geo.Point {
	const kmPerDegreeLat = 111.19

	points := []geo.Point{{Lat: 40.0, Lng: -74.0, TimestampMs: 0}}
	lat := 40.0
	var ts int64
	for _, leg := range legs {
		lat += leg.legKm / kmPerDegreeLat
		ts += int64(leg.legMin * 60000)
		points = append(points, geo.Point{Lat: lat, Lng: -74.0, TimestampMs: ts})
	}
	return points
}

func TestModeShare_AllWalking(t *testing.T) {
	// Two legs at ~4.8 km/h.
	path := pathWithLegs([]struct {
		legKm  float64
		legMin float64
	}{
		{legKm: 1.2, legMin: 15},
		{legKm: 1.2, legMin: 15},
	})

	share, err := ModeShare(path, "walking")
	if err != nil {
		t.Fatalf("ModeShare returned error: %v", err)
	}
	if math.Abs(share-1.0) > 1e-9 {
		t.Errorf("Expected share 1.0 for all-walking path, got %g", share)
	}
}

func TestModeShare_MixedLegs(t *testing.T) {
	// One walking leg (~4.8 km/h) and one driving leg (~40 km/h) of equal
	// distance: the walk share should be about half.
	path := pathWithLegs([]struct {
		legKm  float64
		legMin float64
	}{
		{legKm: 2.0, legMin: 25},
		{legKm: 2.0, legMin: 3},
	})

	share, err := ModeShare(path, "walk")
	if err != nil {
		t.Fatalf("ModeShare returned error: %v", err)
	}
	if share < 0.4 || share > 0.6 {
		t.Errorf("Expected walk share around 0.5, got %g", share)
	}
}

func TestModeShare_UnknownModeMatchesNothing(t *testing.T) {
	path := pathWithLegs([]struct {
		legKm  float64
		legMin float64
	}{
		{legKm: 1.0, legMin: 12},
	})

	share, err := ModeShare(path, "teleport")
	if err != nil {
		t.Fatalf("ModeShare returned error: %v", err)
	}
	if share != 0 {
		t.Errorf("Expected 0 share for unknown mode, got %g", share)
	}
}

func TestModeShare_ShortPath(t *testing.T) {
	share, err := ModeShare([]geo.Point{{Lat: 40, Lng: -74}}, "walk")
	if err != nil || share != 0 {
		t.Errorf("Expected (0, nil) for single-point path, got (%g, %v)", share, err)
	}
}

func TestClassifyLegSpeed(t *testing.T) {
	cases := []struct {
		speed float64
		want  string
	}{
		{4, "walk"},
		{7, "walk"},
		{10, "run"},
		{20, "cycle"},
		{50, "drive"},
	}

	for _, tc := range cases {
		if got := classifyLegSpeed(tc.speed); got != tc.want {
			t.Errorf("classifyLegSpeed(%g) = %s, want %s", tc.speed, got, tc.want)
		}
	}
}
