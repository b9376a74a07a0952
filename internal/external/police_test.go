package external

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestPlaneToLatLngAnchor(t *testing.T) {
	lat, lng := planeToLatLng(bostonPlaneX, bostonPlaneY)
	if math.Abs(lat-bostonLat) > 1e-9 || math.Abs(lng-bostonLng) > 1e-9 {
		t.Fatalf("anchor should map to Boston, got (%f, %f)", lat, lng)
	}
}

func TestPlaneToLatLngBiasCorrection(t *testing.T) {
	// A point far west of the anchor drifts past the 0.5 degree guard and
	// gets shifted back east.
	farWestX := bostonPlaneX - 1.0/planeXScale // 1 degree west, unscaled
	_, lng := planeToLatLng(farWestX, bostonPlaneY)
	want := bostonLng - 1.0 + planeBiasDeg
	if math.Abs(lng-want) > 1e-9 {
		t.Fatalf("expected corrected lng %f, got %f", want, lng)
	}

	// A point within the guard is left alone.
	nearX := bostonPlaneX - 0.1/planeXScale
	_, lng = planeToLatLng(nearX, bostonPlaneY)
	if math.Abs(lng-(bostonLng-0.1)) > 1e-9 {
		t.Fatalf("expected uncorrected lng %f, got %f", bostonLng-0.1, lng)
	}
}

func TestPoliceFetchFromCSV(t *testing.T) {
	csv := "X,Y,OBJECTID,NAME,ADDRESS,CITY,STATE,ZIP\n" +
		"236217.47,901349.05,17,Boston HQ,1 Schroeder Plaza,Boston,MA,02120\n" +
		"236217.47,901349.05,18,,2 Main St,,MA,\n"
	path := filepath.Join(t.TempDir(), "police_stations.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewPoliceSource(path)
	locs, err := src.Fetch(context.Background(), Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(locs))
	}

	first := locs[0]
	if first.Name != "Boston HQ" {
		t.Errorf("name: got %q", first.Name)
	}
	if first.Address != "1 Schroeder Plaza, Boston, MA 02120" {
		t.Errorf("address: got %q", first.Address)
	}
	if first.ExternalID != "17" {
		t.Errorf("external id: got %q", first.ExternalID)
	}
	if math.Abs(first.Lat-bostonLat) > 1e-6 || math.Abs(first.Lng-bostonLng) > 1e-6 {
		t.Errorf("anchor row should land on Boston, got (%f, %f)", first.Lat, first.Lng)
	}

	second := locs[1]
	if second.Name != "Unknown Police Station" {
		t.Errorf("missing name default: got %q", second.Name)
	}
	if second.Address != "2 Main St, MA" {
		t.Errorf("sparse address: got %q", second.Address)
	}
}

func TestPoliceFetchFallsBackToMock(t *testing.T) {
	src := NewPoliceSource(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	locs, err := src.Fetch(context.Background(), Params{})
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if len(locs) != mockPoliceCount {
		t.Fatalf("expected %d mock stations, got %d", mockPoliceCount, len(locs))
	}
	for _, loc := range locs {
		if loc.Type != "police" {
			t.Fatalf("mock station type: got %q", loc.Type)
		}
		if loc.Source == nil || *loc.Source != SourcePolice {
			t.Fatalf("mock station source: got %v", loc.Source)
		}
	}
	if locs[0].ExternalID != "mock-police-1" {
		t.Fatalf("mock external id: got %q", locs[0].ExternalID)
	}
}
