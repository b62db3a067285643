package services

import (
	"context"
	"fmt"
	"strings"

	"ecopark-admin/internal/cache"
	"ecopark-admin/internal/models"
	"ecopark-admin/internal/repository"
	"ecopark-admin/internal/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Neighbor lookup strategies
const (
	NeighborRange = "range"
	NeighborScan  = "scan"
)

const (
	photoCachePrefix = "photos:"
	blobDeleteLimit  = 4
)

// PhotoStore is the persistence the photo service needs
type PhotoStore interface {
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	List(ctx context.Context, q repository.PhotoQuery) ([]*models.Photo, error)
	Adjacent(ctx context.Context, p *models.Photo, newer bool) (string, error)
	PartitionIDs(ctx context.Context, reviewed bool) ([]string, error)
	SetReviewed(ctx context.Context, id string, reviewed bool, annotation *string) error
	RemoveImage(ctx context.Context, id string, index int) (*models.Photo, string, error)
	Delete(ctx context.Context, id string) error
}

// PhotoServiceConfig tunes listing and navigation
type PhotoServiceConfig struct {
	PageSize         int
	NeighborStrategy string
}

// PhotoService handles photo review business logic
type PhotoService struct {
	photos  PhotoStore
	images  storage.ImageStore
	cache   *cache.Cache
	hub     *WSHub
	cursors *CursorCodec
	cfg     PhotoServiceConfig
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	photos PhotoStore,
	images storage.ImageStore,
	c *cache.Cache,
	hub *WSHub,
	cursors *CursorCodec,
	cfg PhotoServiceConfig,
) *PhotoService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.NeighborStrategy == "" {
		cfg.NeighborStrategy = NeighborRange
	}
	return &PhotoService{
		photos:  photos,
		images:  images,
		cache:   c,
		hub:     hub,
		cursors: cursors,
		cfg:     cfg,
	}
}

// ListPhotosRequest selects a page of one review partition
type ListPhotosRequest struct {
	Reviewed bool
	Category models.Category
	Sort     string
	Cursor   string
}

// PhotoPage is one page of a photo listing
type PhotoPage struct {
	Photos     []*models.Photo `json:"photos"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Neighbors are the adjacent record IDs within a partition. Empty means none.
type Neighbors struct {
	PrevID string `json:"prev_id,omitempty"`
	NextID string `json:"next_id,omitempty"`
}

// ListPhotos returns one page of photos, newest (or last by name) first
func (s *PhotoService) ListPhotos(ctx context.Context, req ListPhotosRequest) (*PhotoPage, error) {
	if req.Sort == "" {
		req.Sort = repository.SortByTimestamp
	}
	if req.Sort != repository.SortByTimestamp && req.Sort != repository.SortByName {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, req.Sort)
	}

	var after *repository.PageKey
	if req.Cursor != "" {
		key, err := s.cursors.Decode(req.Cursor, req)
		if err != nil {
			return nil, err
		}
		after = key
	}

	key := fmt.Sprintf("%slist:%t:%s:%s:%s", photoCachePrefix, req.Reviewed, req.Category, req.Sort, req.Cursor)
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*PhotoPage, error) {
		photos, err := s.photos.List(ctx, repository.PhotoQuery{
			Reviewed: req.Reviewed,
			Category: req.Category,
			Sort:     req.Sort,
			After:    after,
			Limit:    s.cfg.PageSize + 1,
		})
		if err != nil {
			return nil, err
		}

		page := &PhotoPage{Photos: photos}
		if len(photos) > s.cfg.PageSize {
			page.Photos = photos[:s.cfg.PageSize]
			next, err := s.cursors.Encode(req, page.Photos[len(page.Photos)-1])
			if err != nil {
				return nil, err
			}
			page.NextCursor = next
		}
		return page, nil
	})
}

// GetPhoto returns a single photo
func (s *PhotoService) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	return cache.Fetch(ctx, s.cache, photoCachePrefix+"get:"+id, func(ctx context.Context) (*models.Photo, error) {
		return s.photos.GetByID(ctx, id)
	})
}

// Review marks a photo reviewed. A nil or blank annotation keeps the stored one.
func (s *PhotoService) Review(ctx context.Context, id string, annotation *string) error {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if len(photo.Images) == 0 {
		return ErrNoImages
	}

	if annotation != nil && strings.TrimSpace(*annotation) == "" {
		annotation = nil
	}
	if err := s.photos.SetReviewed(ctx, id, true, annotation); err != nil {
		return err
	}

	log.Info().Str("photo_id", id).Msg("Photo reviewed")
	s.invalidate(id)
	return nil
}

// Unreview moves a photo back to the unreviewed partition
func (s *PhotoService) Unreview(ctx context.Context, id string) error {
	if err := s.photos.SetReviewed(ctx, id, false, nil); err != nil {
		return err
	}

	log.Info().Str("photo_id", id).Msg("Photo unreviewed")
	s.invalidate(id)
	return nil
}

// DeletePhoto removes every image blob of a photo, then the record itself.
// The record is kept when any blob fails to delete so the call can be retried.
func (s *PhotoService) DeletePhoto(ctx context.Context, id string) error {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobDeleteLimit)
	for _, img := range photo.Images {
		url := img.URL
		g.Go(func() error {
			if err := s.images.DeleteByURL(gctx, url); err != nil {
				return fmt.Errorf("failed to delete image %s: %w", url, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("photo_id", id).Msg("Failed to delete photo images")
		return err
	}

	if err := s.photos.Delete(ctx, id); err != nil {
		return err
	}

	log.Info().Str("photo_id", id).Int("images", len(photo.Images)).Msg("Photo deleted")
	s.invalidate(id)
	return nil
}

// RemoveImage drops the image at index from a photo with more than one image
func (s *PhotoService) RemoveImage(ctx context.Context, id string, index int) error {
	photo, url, err := s.photos.RemoveImage(ctx, id, index)
	if err != nil {
		return err
	}
	s.invalidate(id)
	log.Info().Str("photo_id", id).Int("index", index).Msg("Image removed")

	if referencesImage(photo, url) {
		return nil
	}
	// An orphaned blob is harmless; the record no longer points to it.
	if err := s.images.DeleteByURL(ctx, url); err != nil {
		log.Warn().Err(err).Str("photo_id", id).Str("url", url).Msg("Failed to delete image blob")
	}
	return nil
}

func referencesImage(photo *models.Photo, url string) bool {
	for _, img := range photo.Images {
		if img.URL == url {
			return true
		}
	}
	return false
}

// Neighbors returns the previous (newer) and next (older) record of a photo
// within its review partition
func (s *PhotoService) Neighbors(ctx context.Context, id string) (*Neighbors, error) {
	return cache.Fetch(ctx, s.cache, photoCachePrefix+"neighbors:"+id, func(ctx context.Context) (*Neighbors, error) {
		photo, err := s.photos.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cfg.NeighborStrategy == NeighborScan {
			return s.scanNeighbors(ctx, photo)
		}
		return s.rangeNeighbors(ctx, photo)
	})
}

func (s *PhotoService) rangeNeighbors(ctx context.Context, photo *models.Photo) (*Neighbors, error) {
	var n Neighbors
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := s.photos.Adjacent(gctx, photo, true)
		n.PrevID = id
		return err
	})
	g.Go(func() error {
		id, err := s.photos.Adjacent(gctx, photo, false)
		n.NextID = id
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PhotoService) scanNeighbors(ctx context.Context, photo *models.Photo) (*Neighbors, error) {
	ids, err := s.photos.PartitionIDs(ctx, photo.IsReviewed)
	if err != nil {
		return nil, err
	}

	var n Neighbors
	for i, id := range ids {
		if id != photo.ID {
			continue
		}
		if i > 0 {
			n.PrevID = ids[i-1]
		}
		if i < len(ids)-1 {
			n.NextID = ids[i+1]
		}
		break
	}
	return &n, nil
}

func (s *PhotoService) invalidate(id string) {
	removed := s.cache.Invalidate(photoCachePrefix)
	log.Debug().Int("entries", removed).Msg("Photo cache invalidated")
	s.hub.NotifyInvalidated(ScopePhotos, id)
}
