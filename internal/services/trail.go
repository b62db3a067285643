package services

import (
	"context"
	"sync/atomic"
	"time"

	"ecopark-admin/internal/cache"
	"ecopark-admin/internal/metrics"
	"ecopark-admin/internal/models"
	"ecopark-admin/internal/trailstats"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	trailCachePrefix = "trails:"
	trailsAllKey     = trailCachePrefix + "all"
)

// TrailStore is the persistence the trail service needs
type TrailStore interface {
	List(ctx context.Context) ([]*models.Trail, error)
	Delete(ctx context.Context, id string) error
}

// TrailService serves walking-trail aggregates
type TrailService struct {
	trails      TrailStore
	cache       *cache.Cache
	hub         *WSHub
	loc         *time.Location
	deleteLimit int
}

// NewTrailService creates a new trail service. Calendar buckets are computed in loc.
func NewTrailService(trails TrailStore, c *cache.Cache, hub *WSHub, loc *time.Location, deleteLimit int) *TrailService {
	if loc == nil {
		loc = time.UTC
	}
	if deleteLimit <= 0 {
		deleteLimit = 8
	}
	return &TrailService{
		trails:      trails,
		cache:       c,
		hub:         hub,
		loc:         loc,
		deleteLimit: deleteLimit,
	}
}

// Heatmap is the point cloud of a set of trails with its bounding box
type Heatmap struct {
	Points []models.LatLng     `json:"points"`
	Bounds *trailstats.Bounds `json:"bounds,omitempty"`
}

// ListTrails returns every trail. The slice is shared and must not be modified.
func (s *TrailService) ListTrails(ctx context.Context) ([]*models.Trail, error) {
	return cache.Fetch(ctx, s.cache, trailsAllKey, s.trails.List)
}

// Trails returns the trails of one person, or all trails when name is empty
func (s *TrailService) Trails(ctx context.Context, name string) ([]trailstats.TrailWithMetrics, error) {
	trails, err := s.selectTrails(ctx, name)
	if err != nil {
		return nil, err
	}

	result := make([]trailstats.TrailWithMetrics, len(trails))
	for i, t := range trails {
		result[i] = trailstats.TrailWithMetrics{Trail: t, Metrics: trailstats.ComputeMetrics(t)}
	}
	return result, nil
}

// People returns one summary per walker
func (s *TrailService) People(ctx context.Context) ([]trailstats.PersonSummary, error) {
	trails, err := s.ListTrails(ctx)
	if err != nil {
		return nil, err
	}
	return trailstats.PersonSummaries(trails), nil
}

// Stats summarizes the trails of one person, or all trails when name is empty
func (s *TrailService) Stats(ctx context.Context, name string) (trailstats.Summary, error) {
	trails, err := s.selectTrails(ctx, name)
	if err != nil {
		return trailstats.Summary{}, err
	}
	return trailstats.Summarize(trails, s.loc), nil
}

// Heatmap returns the path points of one person, or of all trails when name is empty
func (s *TrailService) Heatmap(ctx context.Context, name string) (*Heatmap, error) {
	trails, err := s.selectTrails(ctx, name)
	if err != nil {
		return nil, err
	}

	h := &Heatmap{Points: trailstats.HeatmapPoints(trails)}
	if b, ok := trailstats.ComputeBounds(h.Points); ok {
		h.Bounds = &b
	}
	return h, nil
}

// DeleteTrails deletes trails concurrently. Each deletion is independent: a
// failure is logged and counted but does not stop the others. It returns the
// number of trails deleted.
func (s *TrailService) DeleteTrails(ctx context.Context, ids []string) int {
	var deleted atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deleteLimit)
	for _, id := range ids {
		g.Go(func() error {
			if err := s.trails.Delete(gctx, id); err != nil {
				metrics.BatchDeleteFailures.WithLabelValues("trail").Inc()
				log.Error().Err(err).Str("trail_id", id).Msg("Failed to delete trail")
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(deleted.Load())
	if n > 0 {
		removed := s.cache.Invalidate(trailCachePrefix)
		log.Debug().Int("entries", removed).Msg("Trail cache invalidated")
		s.hub.NotifyInvalidated(ScopeTrails, ids...)
	}

	log.Info().Int("requested", len(ids)).Int("deleted", n).Msg("Trails deleted")
	return n
}

// DeletePersonTrails deletes every trail of one person
func (s *TrailService) DeletePersonTrails(ctx context.Context, name string) (int, error) {
	trails, err := s.ListTrails(ctx)
	if err != nil {
		return 0, err
	}

	owned := trailstats.FilterByPerson(trails, name)
	if len(owned) == 0 {
		return 0, ErrNotFound
	}

	ids := make([]string, len(owned))
	for i, t := range owned {
		ids[i] = t.ID
	}
	return s.DeleteTrails(ctx, ids), nil
}

func (s *TrailService) selectTrails(ctx context.Context, name string) ([]*models.Trail, error) {
	trails, err := s.ListTrails(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return trails, nil
	}
	return trailstats.FilterByPerson(trails, name), nil
}
