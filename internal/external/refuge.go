package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alpacaswillrule/BlueShark/internal/cache"
	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

const (
	// SourceRefuge identifies records pulled from the Refuge Restrooms API.
	SourceRefuge = "refuge_restrooms"

	defaultRefugeBaseURL = "https://www.refugerestrooms.org/api/v1/restrooms"
	refugePerPage        = 50
	refugePageDelay      = 500 * time.Millisecond
	refugeTimeout        = 15 * time.Second
)

// refugeRestroom is the upstream response shape for one restroom.
type refugeRestroom struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Street     string  `json:"street"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Accessible bool    `json:"accessible"`
	Unisex     bool    `json:"unisex"`
}

// RefugeClient pages through the Refuge Restrooms by_location endpoint and
// normalizes results. Responses are cached for 24h keyed by the query.
type RefugeClient struct {
	httpClient HTTPClient
	baseURL    string
	cache      cache.Cache
	pageDelay  time.Duration

	// optional upstream filters forwarded as query params
	ADA    *bool
	Unisex *bool
}

func NewRefugeClient(c cache.Cache) *RefugeClient {
	return &RefugeClient{
		httpClient: &http.Client{Timeout: refugeTimeout},
		baseURL:    defaultRefugeBaseURL,
		cache:      c,
		pageDelay:  refugePageDelay,
	}
}

func (r *RefugeClient) Name() string { return SourceRefuge }

// Fetch pages until p.MaxRestrooms records are collected or a page comes
// back short, throttling between page requests.
func (r *RefugeClient) Fetch(ctx context.Context, p Params) ([]*models.Location, error) {
	maxResults := p.MaxRestrooms
	if maxResults <= 0 {
		maxResults = refugePerPage
	}

	key := cache.Key{
		Source: SourceRefuge, Lat: p.Lat, Lng: p.Lng,
		MaxResults: maxResults, ADA: r.ADA, Unisex: r.Unisex,
	}.String()
	if raw, ok := r.cache.Get(ctx, key); ok {
		var cached []*models.Location
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	// per_page stays fixed so the upstream page windows line up; the
	// final page is truncated client-side instead.
	out := []*models.Location{}
	for page := 1; len(out) < maxResults; page++ {
		items, err := r.fetchPage(ctx, p.Lat, p.Lng, page, refugePerPage)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out = append(out, normalizeRefuge(item))
		}
		// a short page means the upstream ran out of data
		if len(items) < refugePerPage {
			break
		}

		if len(out) < maxResults {
			select {
			case <-time.After(r.pageDelay):
			case <-ctx.Done():
				return out, ctx.Err()
			}
		}
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}

	if raw, err := json.Marshal(out); err == nil {
		r.cache.Set(ctx, key, raw, cache.DefaultTTL)
	}
	log.Printf("refuge: fetched %d restrooms around (%g, %g)", len(out), p.Lat, p.Lng)
	return out, nil
}

func (r *RefugeClient) fetchPage(ctx context.Context, lat, lng float64, page, perPage int) ([]refugeRestroom, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	if r.ADA != nil {
		params.Set("ada", strconv.FormatBool(*r.ADA))
	}
	if r.Unisex != nil {
		params.Set("unisex", strconv.FormatBool(*r.Unisex))
	}

	u := fmt.Sprintf("%s/by_location.json?%s", r.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("refuge request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refuge fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("refuge fetch page %d: status=%d body=%q", page, resp.StatusCode, body)
	}

	var items []refugeRestroom
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("refuge decode page %d: %w", page, err)
	}
	return items, nil
}

func normalizeRefuge(item refugeRestroom) *models.Location {
	name := item.Name
	if name == "" {
		name = "Unknown Restroom"
	}

	src := SourceRefuge
	ada := item.Accessible
	unisex := item.Unisex
	return &models.Location{
		Name:          name,
		Type:          models.TypeRestroom,
		Address:       joinAddress(item.Street, item.City, item.State),
		Lat:           item.Latitude,
		Lng:           item.Longitude,
		Source:        &src,
		ExternalID:    strconv.FormatInt(item.ID, 10),
		ADAAccessible: &ada,
		Unisex:        &unisex,
		LastUpdated:   models.NowMillis(),
	}
}

// joinAddress comma-joins the non-empty parts, falling back to a placeholder
// when the upstream record has no address at all.
func joinAddress(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return "Unknown Address"
	}
	return strings.Join(kept, ", ")
}
