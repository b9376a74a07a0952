package geo

import (
	"math"
	"testing"
)

func TestDistanceKmSymmetry(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
	}{
		{"boston to nyc", 42.3601, -71.0589, 40.7128, -74.0060},
		{"across meridian", 51.5, -0.1, 48.85, 2.35},
		{"southern hemisphere", -33.87, 151.21, -37.81, 144.96},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			ba := DistanceKm(tt.lat2, tt.lng2, tt.lat1, tt.lng1)
			if math.Abs(ab-ba) > 1e-9 {
				t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
			}
		})
	}
}

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	if d := DistanceKm(42.3601, -71.0589, 42.3601, -71.0589); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKmKnownValue(t *testing.T) {
	// Boston to New York, roughly 306 km great-circle.
	d := DistanceKm(42.3601, -71.0589, 40.7128, -74.0060)
	if d < 300 || d > 312 {
		t.Fatalf("expected ~306 km, got %f", d)
	}
}
