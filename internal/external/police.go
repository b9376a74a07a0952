package external

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

// SourcePolice identifies police stations loaded from the state CSV export.
const SourcePolice = "csv"

// The CSV carries Massachusetts state-plane X/Y coordinates. Converting them
// exactly needs a full spatial-reference library; instead an affine transform
// anchored at Boston is applied. The scale factors are tuned, not derived,
// and the result is a best-effort approximation.
const (
	bostonPlaneX = 236217.47
	bostonPlaneY = 901349.05
	bostonLat    = 42.3601
	bostonLng    = -71.0589

	planeXScale = 0.000015
	planeYScale = 0.000009

	// Points landing more than this far south/west of the anchor get
	// shifted back by the same amount.
	planeBiasDeg = 0.5
)

const mockPoliceCount = 8

// PoliceSource loads police stations from a CSV file, converting state-plane
// coordinates to lat/lng. A missing or unreadable file falls back to a
// deterministic mock set around Boston.
type PoliceSource struct {
	csvPath string
}

func NewPoliceSource(csvPath string) *PoliceSource {
	return &PoliceSource{csvPath: csvPath}
}

func (s *PoliceSource) Name() string { return SourcePolice }

// Fetch ignores the query coordinate: the CSV covers a fixed region.
func (s *PoliceSource) Fetch(_ context.Context, _ Params) ([]*models.Location, error) {
	stations, err := s.loadCSV()
	if err != nil {
		log.Printf("police: falling back to mock data: %v", err)
		return mockPoliceStations(), nil
	}
	return stations, nil
}

func (s *PoliceSource) loadCSV() ([]*models.Location, error) {
	f, err := os.Open(s.csvPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.csvPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.csvPath, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: no data rows", s.csvPath)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := []*models.Location{}
	for _, row := range rows[1:] {
		x, _ := strconv.ParseFloat(field(row, "X"), 64)
		y, _ := strconv.ParseFloat(field(row, "Y"), 64)
		lat, lng := planeToLatLng(x, y)

		name := field(row, "NAME")
		if name == "" {
			name = "Unknown Police Station"
		}

		stateZip := strings.TrimSpace(field(row, "STATE") + " " + field(row, "ZIP"))
		src := SourcePolice
		out = append(out, &models.Location{
			Name:        name,
			Type:        models.TypePolice,
			Address:     joinAddress(field(row, "ADDRESS"), field(row, "CITY"), stateZip),
			Lat:         lat,
			Lng:         lng,
			Source:      &src,
			ExternalID:  field(row, "OBJECTID"),
			LastUpdated: models.NowMillis(),
		})
	}
	log.Printf("police: loaded %d stations from %s", len(out), s.csvPath)
	return out, nil
}

// planeToLatLng converts state-plane X/Y to lat/lng with the tuned affine
// transform, then corrects points that drift far south/west of the anchor.
func planeToLatLng(x, y float64) (lat, lng float64) {
	lat = bostonLat + (y-bostonPlaneY)*planeYScale
	lng = bostonLng + (x-bostonPlaneX)*planeXScale
	if lat < bostonLat-planeBiasDeg {
		lat += planeBiasDeg
	}
	if lng < bostonLng-planeBiasDeg {
		lng += planeBiasDeg
	}
	return lat, lng
}

func mockPoliceStations() []*models.Location {
	out := make([]*models.Location, 0, mockPoliceCount)
	for i := 0; i < mockPoliceCount; i++ {
		src := SourcePolice
		out = append(out, &models.Location{
			Name:        fmt.Sprintf("Mock Police Station %d", i+1),
			Type:        models.TypePolice,
			Address:     fmt.Sprintf("Mock Address %d, Boston, MA", i+1),
			Lat:         bostonLat + float64(i%4)*0.02,
			Lng:         bostonLng + float64(i%3)*0.02,
			Source:      &src,
			ExternalID:  fmt.Sprintf("mock-police-%d", i+1),
			LastUpdated: models.NowMillis(),
		})
	}
	return out
}
