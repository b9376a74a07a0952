package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alpacaswillrule/BlueShark/internal/cache"
)

func newTestRefugeClient(serverURL string) *RefugeClient {
	c := NewRefugeClient(cache.NewMemory())
	c.baseURL = serverURL
	c.pageDelay = 0
	return c
}

func serveRestrooms(t *testing.T, pages map[int][]refugeRestroom) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/by_location.json", func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			t.Fatalf("bad page param: %v", err)
		}
		items := pages[page]
		if items == nil {
			items = []refugeRestroom{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	})
	return httptest.NewServer(mux)
}

func makeRestrooms(start, n int) []refugeRestroom {
	out := make([]refugeRestroom, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, refugeRestroom{
			ID:       int64(start + i),
			Name:     "Restroom",
			Street:   "1 Main St",
			City:     "Boston",
			State:    "MA",
			Latitude: 42.36, Longitude: -71.05,
		})
	}
	return out
}

func TestRefugeFetchStopsOnShortPage(t *testing.T) {
	server := serveRestrooms(t, map[int][]refugeRestroom{
		1: makeRestrooms(0, 50),
		2: makeRestrooms(50, 7), // short page ends pagination
		3: makeRestrooms(57, 50),
	})
	defer server.Close()

	client := newTestRefugeClient(server.URL)
	locs, err := client.Fetch(context.Background(), Params{Lat: 42.36, Lng: -71.05, MaxRestrooms: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 57 {
		t.Fatalf("expected 57 restrooms, got %d", len(locs))
	}
}

// serveWindowedRestrooms slices a fixed dataset by (page, per_page), the way
// the real API windows its results.
func serveWindowedRestrooms(t *testing.T, total int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/by_location.json", func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			t.Fatalf("bad page param: %v", err)
		}
		perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
		if err != nil {
			t.Fatalf("bad per_page param: %v", err)
		}
		start := (page - 1) * perPage
		end := start + perPage
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(makeRestrooms(start, end-start))
	})
	return httptest.NewServer(mux)
}

func TestRefugeFetchAlignsPageWindows(t *testing.T) {
	server := serveWindowedRestrooms(t, 200)
	defer server.Close()

	client := newTestRefugeClient(server.URL)
	// a limit that is not a multiple of the page size must not re-fetch or
	// skip any upstream window
	locs, err := client.Fetch(context.Background(), Params{Lat: 42.36, Lng: -71.05, MaxRestrooms: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 60 {
		t.Fatalf("expected 60 restrooms, got %d", len(locs))
	}
	seen := map[string]bool{}
	for _, loc := range locs {
		if seen[loc.ExternalID] {
			t.Fatalf("duplicate external id %s across pages", loc.ExternalID)
		}
		seen[loc.ExternalID] = true
	}
	for i := 0; i < 60; i++ {
		if !seen[strconv.Itoa(i)] {
			t.Fatalf("record %d skipped by pagination", i)
		}
	}
}

func TestRefugeFetchStopsAtMaxResults(t *testing.T) {
	server := serveRestrooms(t, map[int][]refugeRestroom{
		1: makeRestrooms(0, 50),
		2: makeRestrooms(50, 30),
	})
	defer server.Close()

	client := newTestRefugeClient(server.URL)
	locs, err := client.Fetch(context.Background(), Params{Lat: 42.36, Lng: -71.05, MaxRestrooms: 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 80 {
		t.Fatalf("expected 80 restrooms, got %d", len(locs))
	}
}

func TestRefugeNormalization(t *testing.T) {
	tests := []struct {
		name        string
		item        refugeRestroom
		wantName    string
		wantAddress string
	}{
		{
			name:        "full record",
			item:        refugeRestroom{ID: 9, Name: "Cafe WC", Street: "1 Main St", City: "Boston", State: "MA"},
			wantName:    "Cafe WC",
			wantAddress: "1 Main St, Boston, MA",
		},
		{
			name:        "missing name and city",
			item:        refugeRestroom{ID: 10, Street: "2 Elm St", State: "MA"},
			wantName:    "Unknown Restroom",
			wantAddress: "2 Elm St, MA",
		},
		{
			name:        "empty address",
			item:        refugeRestroom{ID: 11, Name: "Depot"},
			wantName:    "Depot",
			wantAddress: "Unknown Address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := normalizeRefuge(tt.item)
			if loc.Name != tt.wantName {
				t.Errorf("name: got %q, want %q", loc.Name, tt.wantName)
			}
			if loc.Address != tt.wantAddress {
				t.Errorf("address: got %q, want %q", loc.Address, tt.wantAddress)
			}
			if loc.Source == nil || *loc.Source != SourceRefuge {
				t.Errorf("source: got %v", loc.Source)
			}
			if loc.ExternalID != strconv.FormatInt(tt.item.ID, 10) {
				t.Errorf("external id: got %q", loc.ExternalID)
			}
			if loc.TotalRatings != 0 {
				t.Errorf("fresh record should carry no ratings, got %d", loc.TotalRatings)
			}
		})
	}
}

func TestRefugeFetchUsesCache(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/by_location.json", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(makeRestrooms(0, 3))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestRefugeClient(server.URL)
	p := Params{Lat: 42.36, Lng: -71.05, MaxRestrooms: 10}

	first, err := client.Fetch(context.Background(), p)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := client.Fetch(context.Background(), p)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result differs: %d vs %d", len(first), len(second))
	}
}

func TestRefugeFetchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestRefugeClient(server.URL)
	if _, err := client.Fetch(context.Background(), Params{Lat: 1, Lng: 2, MaxRestrooms: 10}); err == nil {
		t.Fatal("expected error on upstream 500")
	}
}
