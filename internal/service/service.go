package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/alpacaswillrule/BlueShark/internal/external"
	"github.com/alpacaswillrule/BlueShark/internal/geo"
	"github.com/alpacaswillrule/BlueShark/internal/store"
	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

// Boston is the reference coordinate for the scheduled full refresh.
const (
	RefreshLat      = 42.3601
	RefreshLng      = -71.0589
	RefreshRadiusKm = 50

	defaultQueryRadiusKm = 10
	recentRatingsLimit   = 10

	// queryMaxRestrooms bounds a foreground request to one upstream page;
	// the configurable wide cap applies only to the daily refresh.
	queryMaxRestrooms = 50
)

// LocationStore is the persistence surface the service needs.
type LocationStore interface {
	UpsertExternal(*models.Location) error
	List(locationType string) ([]*models.Location, error)
	Insert(*models.Location) error
	ApplyRating(locationID, sentiment string) error
	InsertRating(*models.Rating) error
	RecentRatings(locationID string, limit int) ([]*models.Rating, error)
}

// Filter describes one locations query.
type Filter struct {
	Type            string
	RatingMin       float64
	RadiusKm        float64
	Lat             *float64
	Lng             *float64
	IncludeExternal bool
}

func (f Filter) hasCenter() bool { return f.Lat != nil && f.Lng != nil }

type Service struct {
	repo         LocationStore
	agg          *external.Aggregator
	maxRestrooms int
}

func NewService(repo LocationStore, agg *external.Aggregator, maxRestrooms int) *Service {
	if maxRestrooms <= 0 {
		maxRestrooms = 1000
	}
	return &Service{repo: repo, agg: agg, maxRestrooms: maxRestrooms}
}

// Query reads persisted locations, applies the filter, and optionally merges
// freshly fetched external records. Store and upstream failures degrade to
// partial results instead of failing the request.
func (s *Service) Query(ctx context.Context, f Filter) ([]*models.Location, error) {
	out := []*models.Location{}

	persisted, err := s.repo.List(f.Type)
	if err != nil {
		log.Printf("query: store read failed, continuing with external only: %v", err)
		persisted = nil
	}

	for _, loc := range persisted {
		if !f.IncludeExternal && loc.IsExternal() {
			continue
		}
		if rating, rated := loc.NormalizedRating(); rated {
			if rating < f.RatingMin {
				continue
			}
		} else if f.RatingMin > 0 && !loc.IsExternal() {
			// unrated external locations survive the rating filter;
			// unrated user submissions do not
			continue
		}
		if !s.withinRadius(f, loc) {
			continue
		}
		out = append(out, loc)
	}

	if f.IncludeExternal && f.hasCenter() {
		out = append(out, s.freshExternal(ctx, f)...)
	}

	return out, nil
}

func (s *Service) withinRadius(f Filter, loc *models.Location) bool {
	if !f.hasCenter() || f.RadiusKm <= 0 {
		return true
	}
	return geo.DistanceKm(*f.Lat, *f.Lng, loc.Lat, loc.Lng) <= f.RadiusKm
}

// freshExternal fetches external records for a query and runs them through
// the type and distance filters. The rating filter does not apply: these
// records are not in the store yet and carry no ratings.
func (s *Service) freshExternal(ctx context.Context, f Filter) []*models.Location {
	radius := f.RadiusKm
	if radius <= 0 {
		radius = defaultQueryRadiusKm
	}

	grouped := s.agg.FetchAll(ctx, external.Params{
		Lat: *f.Lat, Lng: *f.Lng, RadiusKm: radius, MaxRestrooms: queryMaxRestrooms,
	})

	out := []*models.Location{}
	for source, locs := range grouped {
		for _, loc := range locs {
			if f.Type != "" && f.Type != "all" && loc.Type != f.Type {
				continue
			}
			if f.RadiusKm > 0 && geo.DistanceKm(*f.Lat, *f.Lng, loc.Lat, loc.Lng) > radius {
				continue
			}
			if loc.ID == "" {
				loc.ID = loc.SyntheticID()
			}
			out = append(out, loc)
		}
		log.Printf("query: fetched %d fresh records from %s", len(grouped[source]), source)
	}
	return out
}

// ExternalLocations fans out to every source around the given coordinate.
func (s *Service) ExternalLocations(ctx context.Context, lat, lng, radiusKm float64) map[string][]*models.Location {
	if radiusKm <= 0 {
		radiusKm = defaultQueryRadiusKm
	}
	return s.agg.FetchAll(ctx, external.Params{
		Lat: lat, Lng: lng, RadiusKm: radiusKm, MaxRestrooms: queryMaxRestrooms,
	})
}

// SyncExternal upserts fetched records into the store keyed by
// (source, external_id). Per-record failures are logged and skipped; the
// in-memory result stays usable even when the store is down.
func (s *Service) SyncExternal(ctx context.Context, locs []*models.Location) {
	saved := 0
	for _, loc := range locs {
		if loc.Source == nil || *loc.Source == "" || loc.ExternalID == "" {
			continue
		}
		// persisted rows get their own uuid; never store the synthetic id
		cp := *loc
		cp.ID = ""
		if err := s.repo.UpsertExternal(&cp); err != nil {
			log.Printf("sync: %v", err)
			continue
		}
		saved++
	}
	log.Printf("sync: saved %d of %d external locations", saved, len(locs))
}

// RefreshAll aggregates from the reference coordinate with a wide radius and
// syncs the result. Runs at startup and on the daily ticker.
func (s *Service) RefreshAll(ctx context.Context) {
	grouped := s.agg.FetchAll(ctx, external.Params{
		Lat: RefreshLat, Lng: RefreshLng, RadiusKm: RefreshRadiusKm, MaxRestrooms: s.maxRestrooms,
	})
	for source, locs := range grouped {
		log.Printf("refresh: found %d locations from %s", len(locs), source)
	}
	s.SyncExternal(ctx, external.Flatten(grouped))
}

// SubmitRating stores the rating and rolls it up into the location counters.
// With isNew it creates the location from locationData and links the rating
// to the fresh id; otherwise the referenced location must already exist.
func (s *Service) SubmitRating(ctx context.Context, rating *models.Rating, isNew bool, locationData *models.Location) (string, error) {
	if rating == nil {
		return "", fmt.Errorf("%w: missing rating", ErrValidation)
	}
	if !models.ValidSentiment(rating.Sentiment) {
		return "", fmt.Errorf("%w: unknown sentiment %q", ErrValidation, rating.Sentiment)
	}
	rating.Timestamp = models.NowMillis()

	if isNew {
		if locationData == nil {
			return "", fmt.Errorf("%w: missing location data", ErrValidation)
		}
		loc := *locationData
		loc.ID = ""
		loc.PositiveCount = boolToCount(rating.Sentiment == models.SentimentPositive)
		loc.NeutralCount = boolToCount(rating.Sentiment == models.SentimentNeutral)
		loc.NegativeCount = boolToCount(rating.Sentiment == models.SentimentNegative)
		loc.TotalRatings = 1
		if loc.LastUpdated == 0 {
			loc.LastUpdated = rating.Timestamp
		}
		if err := s.repo.Insert(&loc); err != nil {
			return "", fmt.Errorf("create location: %w", err)
		}
		rating.LocationID = loc.ID
		if err := s.repo.InsertRating(rating); err != nil {
			return "", fmt.Errorf("save rating: %w", err)
		}
		return loc.ID, nil
	}

	if rating.LocationID == "" {
		return "", fmt.Errorf("%w: missing location_id", ErrValidation)
	}
	if err := s.repo.InsertRating(rating); err != nil {
		return "", fmt.Errorf("save rating: %w", err)
	}
	if err := s.repo.ApplyRating(rating.LocationID, rating.Sentiment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: id=%s", ErrNotFound, rating.LocationID)
		}
		return "", fmt.Errorf("update counters: %w", err)
	}
	return rating.LocationID, nil
}

// RecentRatings returns up to 10 ratings for a location, newest first.
func (s *Service) RecentRatings(ctx context.Context, locationID string) ([]*models.Rating, error) {
	return s.repo.RecentRatings(locationID, recentRatingsLimit)
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
