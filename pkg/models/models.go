package models

import (
	"fmt"
	"time"

	dbtypes "github.com/alpacaswillrule/BlueShark/internal/db"
)

// Location types served by the API.
const (
	TypeRestroom = "restroom"
	TypePolice   = "police"
)

// Rating sentiments.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Location is a point of interest, either user-submitted or pulled from an
// external source. External records are identified by (Source, ExternalID);
// user-submitted records carry a nil Source and only the store-assigned ID.
type Location struct {
	ID            string  `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	Type          string  `db:"type" json:"type"`
	Address       string  `db:"address" json:"address"`
	Lat           float64 `db:"lat" json:"lat"`
	Lng           float64 `db:"lng" json:"lng"`
	PositiveCount int     `db:"positive_count" json:"positive_count"`
	NeutralCount  int     `db:"neutral_count" json:"neutral_count"`
	NegativeCount int     `db:"negative_count" json:"negative_count"`
	TotalRatings  int     `db:"total_ratings" json:"total_ratings"`
	Source        *string `db:"source" json:"source"`
	ExternalID    string  `db:"external_id" json:"external_id,omitempty"`
	ADAAccessible *bool   `db:"ada_accessible" json:"ada_accessible,omitempty"`
	Unisex        *bool   `db:"unisex" json:"unisex,omitempty"`
	LastUpdated   int64   `db:"last_updated" json:"last_updated"`
}

// IsExternal reports whether the record came from an external source.
func (l *Location) IsExternal() bool {
	return l.Source != nil && *l.Source != ""
}

// SyntheticID builds the "{source}-{external_id}" identifier used for
// freshly fetched records that have not been persisted yet.
func (l *Location) SyntheticID() string {
	src := ""
	if l.Source != nil {
		src = *l.Source
	}
	return fmt.Sprintf("%s-%s", src, l.ExternalID)
}

// NormalizedRating maps the sentiment counters onto a 0-5 scale:
// ((positive - negative) / total + 1) / 2 * 5.
// The second return value is false when the location has no ratings yet.
func (l *Location) NormalizedRating() (float64, bool) {
	if l.TotalRatings <= 0 {
		return 0, false
	}
	weight := float64(l.PositiveCount - l.NegativeCount)
	return (weight/float64(l.TotalRatings) + 1) / 2 * 5, true
}

// Rating is a rating event against a location. Ratings are never mutated
// after creation; the parent location's counters are updated instead.
type Rating struct {
	ID         string          `db:"id" json:"id"`
	LocationID string          `db:"location_id" json:"location_id"`
	Sentiment  string          `db:"sentiment" json:"sentiment"`
	Timestamp  int64           `db:"timestamp" json:"timestamp"`
	Details    dbtypes.JSONMap `db:"details" json:"details,omitempty"`
}

// ValidSentiment reports whether s is one of the known sentiment values.
func ValidSentiment(s string) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// NowMillis returns the current time as epoch milliseconds, the timestamp
// unit shared by locations and ratings.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
