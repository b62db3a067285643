package repository

import (
	"context"
	"fmt"

	"ecopark-admin/internal/models"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TrailRepository handles database operations for trails
type TrailRepository struct {
	db *pgxpool.Pool
}

// NewTrailRepository creates a new trail repository
func NewTrailRepository(db *pgxpool.Pool) *TrailRepository {
	return &TrailRepository{db: db}
}

// List retrieves every trail. Documents that cannot be decoded are logged and skipped.
func (r *TrailRepository) List(ctx context.Context) ([]*models.Trail, error) {
	rows, err := r.db.Query(ctx, `SELECT id, doc FROM trails`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trails: %w", err)
	}
	defer rows.Close()

	trails := []*models.Trail{}
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan trail: %w", err)
		}

		trail, err := DecodeTrail(id, doc)
		if err != nil {
			log.Warn().Err(err).Str("trail_id", id).Msg("Skipping malformed trail document")
			continue
		}
		trails = append(trails, trail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trails: %w", err)
	}
	return trails, nil
}

// Delete deletes a trail by ID
func (r *TrailRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM trails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trail: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("trail %s: %w", id, ErrNotFound)
	}
	return nil
}

type trailDoc struct {
	Name      string          `json:"name"`
	Timestamp json.RawMessage `json:"timestamp"`
	StartTime json.RawMessage `json:"startTime"`
	EndTime   json.RawMessage `json:"endTime"`
	Distance  *float64        `json:"distance"`
	Path      []pathPoint     `json:"path"`
}

// pathPoint accepts the GeoPoint encodings seen in recorder documents
type pathPoint models.LatLng

func (p *pathPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		GeoLat    *float64 `json:"_lat"`
		GeoLong   *float64 `json:"_long"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.GeoLat != nil && raw.GeoLong != nil:
		p.Lat, p.Lng = *raw.GeoLat, *raw.GeoLong
	case raw.Latitude != nil && raw.Longitude != nil:
		p.Lat, p.Lng = *raw.Latitude, *raw.Longitude
	case raw.Lat != nil && raw.Lng != nil:
		p.Lat, p.Lng = *raw.Lat, *raw.Lng
	default:
		return fmt.Errorf("path point without coordinates: %s", data)
	}
	return nil
}

// DecodeTrail converts a stored trail document into a Trail, normalizing
// every timestamp encoding and clamping negative distances to zero
func DecodeTrail(id string, doc []byte) (*models.Trail, error) {
	var d trailDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("failed to decode trail document: %w", err)
	}

	trail := &models.Trail{ID: id, Name: d.Name}

	var err error
	if trail.Timestamp, err = models.ParseTimestamp(d.Timestamp); err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	if trail.StartTime, err = models.ParseTimestamp(d.StartTime); err != nil {
		return nil, fmt.Errorf("startTime: %w", err)
	}
	if trail.EndTime, err = models.ParseTimestamp(d.EndTime); err != nil {
		return nil, fmt.Errorf("endTime: %w", err)
	}

	if d.Distance != nil && *d.Distance > 0 {
		trail.Distance = *d.Distance
	}

	trail.Path = make([]models.LatLng, len(d.Path))
	for i, p := range d.Path {
		trail.Path[i] = models.LatLng(p)
	}

	return trail, nil
}
