package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

// ErrNotFound is returned when a location id does not exist.
var ErrNotFound = fmt.Errorf("location not found")

type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS locations(
  id UUID PRIMARY KEY,
  name TEXT,
  type TEXT,
  address TEXT,
  lat DOUBLE PRECISION,
  lng DOUBLE PRECISION,
  positive_count INTEGER NOT NULL DEFAULT 0,
  neutral_count INTEGER NOT NULL DEFAULT 0,
  negative_count INTEGER NOT NULL DEFAULT 0,
  total_ratings INTEGER NOT NULL DEFAULT 0,
  source TEXT,
  external_id TEXT,
  ada_accessible BOOLEAN,
  unisex BOOLEAN,
  last_updated BIGINT
);

-- one row per (source, external_id); user-submitted rows have NULL source
CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_source_external
  ON locations(source, external_id) WHERE source IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_locations_type ON locations(type);

CREATE TABLE IF NOT EXISTS ratings(
  id UUID PRIMARY KEY,
  location_id TEXT,
  sentiment TEXT,
  timestamp BIGINT,
  details JSONB
);

CREATE INDEX IF NOT EXISTS idx_ratings_location ON ratings(location_id, timestamp DESC);
`
	_, err := db.Exec(initSQL)
	return err
}

const locationColumns = `id,name,type,address,lat,lng,positive_count,neutral_count,negative_count,total_ratings,source,external_id,ada_accessible,unisex,last_updated`

// UpsertExternal writes one external record keyed by (source, external_id).
// An existing row keeps its accumulated rating counters; only the display
// fields are refreshed. Safe to call repeatedly with overlapping data.
func (p *PgStore) UpsertExternal(loc *models.Location) error {
	if loc.Source == nil || *loc.Source == "" || loc.ExternalID == "" {
		return fmt.Errorf("upsert external: record has no (source, external_id) key")
	}
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	stmt := `
INSERT INTO locations (` + locationColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (source, external_id) WHERE source IS NOT NULL DO UPDATE SET
 name=EXCLUDED.name,
 address=EXCLUDED.address,
 lat=EXCLUDED.lat,
 lng=EXCLUDED.lng,
 last_updated=EXCLUDED.last_updated;
`
	_, err := p.db.Exec(stmt,
		loc.ID,
		loc.Name,
		loc.Type,
		loc.Address,
		loc.Lat,
		loc.Lng,
		loc.PositiveCount,
		loc.NeutralCount,
		loc.NegativeCount,
		loc.TotalRatings,
		loc.Source,
		loc.ExternalID,
		loc.ADAAccessible,
		loc.Unisex,
		loc.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert location source=%s external_id=%s: %w", *loc.Source, loc.ExternalID, err)
	}
	return nil
}

// List returns all locations, optionally filtered by exact type.
func (p *PgStore) List(locationType string) ([]*models.Location, error) {
	rows := []*models.Location{}
	if locationType == "" || locationType == "all" {
		err := p.db.Select(&rows, `SELECT `+locationColumns+` FROM locations`)
		return rows, err
	}
	err := p.db.Select(&rows, `SELECT `+locationColumns+` FROM locations WHERE type = $1`, locationType)
	return rows, err
}

// Insert stores a new location, assigning an id when missing.
func (p *PgStore) Insert(loc *models.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	stmt := `
INSERT INTO locations (` + locationColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`
	_, err := p.db.Exec(stmt,
		loc.ID, loc.Name, loc.Type, loc.Address, loc.Lat, loc.Lng,
		loc.PositiveCount, loc.NeutralCount, loc.NegativeCount, loc.TotalRatings,
		loc.Source, loc.ExternalID, loc.ADAAccessible, loc.Unisex, loc.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("insert location id=%s: %w", loc.ID, err)
	}
	return nil
}

// ApplyRating bumps total_ratings and the counter matching sentiment in a
// single UPDATE, so concurrent submissions never lose increments.
func (p *PgStore) ApplyRating(locationID, sentiment string) error {
	var column string
	switch sentiment {
	case models.SentimentPositive:
		column = "positive_count"
	case models.SentimentNeutral:
		column = "neutral_count"
	case models.SentimentNegative:
		column = "negative_count"
	default:
		return fmt.Errorf("apply rating: unknown sentiment %q", sentiment)
	}

	stmt := fmt.Sprintf(
		`UPDATE locations SET total_ratings = total_ratings + 1, %s = %s + 1 WHERE id = $1`,
		column, column)
	res, err := p.db.Exec(stmt, locationID)
	if err != nil {
		return fmt.Errorf("apply rating id=%s: %w", locationID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PgStore) InsertRating(r *models.Rating) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	stmt := `INSERT INTO ratings (id, location_id, sentiment, timestamp, details) VALUES ($1,$2,$3,$4,$5)`
	_, err := p.db.Exec(stmt, r.ID, r.LocationID, r.Sentiment, r.Timestamp, r.Details)
	if err != nil {
		return fmt.Errorf("insert rating id=%s: %w", r.ID, err)
	}
	return nil
}

// RecentRatings returns the newest ratings for a location, newest first.
func (p *PgStore) RecentRatings(locationID string, limit int) ([]*models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows := []*models.Rating{}
	query := `
SELECT id, location_id, sentiment, timestamp, details
FROM ratings
WHERE location_id = $1
ORDER BY timestamp DESC
LIMIT $2
`
	err := p.db.Select(&rows, query, locationID, limit)
	return rows, err
}
