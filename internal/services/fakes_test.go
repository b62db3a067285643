package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ecopark-admin/internal/models"
	"ecopark-admin/internal/repository"
)

type fakePhotoStore struct {
	mu        sync.Mutex
	photos    map[string]*models.Photo
	listCalls int
}

func newFakePhotoStore(photos ...*models.Photo) *fakePhotoStore {
	s := &fakePhotoStore{photos: make(map[string]*models.Photo)}
	for _, p := range photos {
		s.photos[p.ID] = p
	}
	return s
}

func clonePhoto(p *models.Photo) *models.Photo {
	c := *p
	c.Images = append([]models.PhotoImage(nil), p.Images...)
	if p.Annotation != nil {
		a := *p.Annotation
		c.Annotation = &a
	}
	return &c
}

func lessPhoto(sortKey string, a, b *models.Photo) bool {
	if sortKey == repository.SortByName {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

func keyPhoto(k *repository.PageKey) *models.Photo {
	return &models.Photo{ID: k.ID, Name: k.Name, Timestamp: k.Timestamp}
}

func (s *fakePhotoStore) partition(reviewed bool, category models.Category, sortKey string) []*models.Photo {
	var out []*models.Photo
	for _, p := range s.photos {
		if p.IsReviewed != reviewed {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return lessPhoto(sortKey, out[j], out[i]) })
	return out
}

func (s *fakePhotoStore) GetByID(_ context.Context, id string) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, fmt.Errorf("photo %s: %w", id, repository.ErrNotFound)
	}
	return clonePhoto(p), nil
}

func (s *fakePhotoStore) List(_ context.Context, q repository.PhotoQuery) ([]*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	out := []*models.Photo{}
	for _, p := range s.partition(q.Reviewed, q.Category, q.Sort) {
		if q.After != nil && !lessPhoto(q.Sort, p, keyPhoto(q.After)) {
			continue
		}
		out = append(out, clonePhoto(p))
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakePhotoStore) Adjacent(_ context.Context, p *models.Photo, newer bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.partition(p.IsReviewed, "", repository.SortByTimestamp)
	for i, cur := range ids {
		if cur.ID != p.ID {
			continue
		}
		if newer && i > 0 {
			return ids[i-1].ID, nil
		}
		if !newer && i < len(ids)-1 {
			return ids[i+1].ID, nil
		}
		return "", nil
	}
	return "", nil
}

func (s *fakePhotoStore) PartitionIDs(_ context.Context, reviewed bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, p := range s.partition(reviewed, "", repository.SortByTimestamp) {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *fakePhotoStore) SetReviewed(_ context.Context, id string, reviewed bool, annotation *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return fmt.Errorf("photo %s: %w", id, repository.ErrNotFound)
	}
	p.IsReviewed = reviewed
	if annotation != nil {
		a := *annotation
		p.Annotation = &a
	}
	return nil
}

func (s *fakePhotoStore) RemoveImage(_ context.Context, id string, index int) (*models.Photo, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, "", fmt.Errorf("photo %s: %w", id, repository.ErrNotFound)
	}
	if index < 0 || index >= len(p.Images) {
		return nil, "", fmt.Errorf("%w: %d", repository.ErrInvalidIndex, index)
	}
	if len(p.Images) == 1 {
		return nil, "", repository.ErrLastImage
	}
	removed := p.Images[index].URL
	p.Images = append(p.Images[:index:index], p.Images[index+1:]...)
	return clonePhoto(p), removed, nil
}

func (s *fakePhotoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.photos[id]; !ok {
		return fmt.Errorf("photo %s: %w", id, repository.ErrNotFound)
	}
	delete(s.photos, id)
	return nil
}

func (s *fakePhotoStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.photos[id]
	return ok
}

type fakeImageStore struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
}

func (s *fakeImageStore) DeleteByURL(_ context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[rawURL] {
		return errors.New("storage unavailable")
	}
	s.deleted = append(s.deleted, rawURL)
	return nil
}

type fakeTrailStore struct {
	mu     sync.Mutex
	trails map[string]*models.Trail
	fail   map[string]bool
}

func newFakeTrailStore(trails ...*models.Trail) *fakeTrailStore {
	s := &fakeTrailStore{trails: make(map[string]*models.Trail), fail: map[string]bool{}}
	for _, t := range trails {
		s.trails[t.ID] = t
	}
	return s
}

func (s *fakeTrailStore) List(_ context.Context) ([]*models.Trail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Trail, 0, len(s.trails))
	for _, t := range s.trails {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeTrailStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[id] {
		return errors.New("backend unavailable")
	}
	if _, ok := s.trails[id]; !ok {
		return fmt.Errorf("trail %s: %w", id, repository.ErrNotFound)
	}
	delete(s.trails, id)
	return nil
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSummarizer) Summary(_ context.Context, title string) string {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return title + " is a species."
}

func photo(id, name string, category models.Category, ts time.Time, reviewed bool, urls ...string) *models.Photo {
	p := &models.Photo{ID: id, Name: name, Category: category, Timestamp: ts, IsReviewed: reviewed}
	for i, u := range urls {
		p.Images = append(p.Images, models.PhotoImage{URL: u, Latitude: 37.5 + float64(i)/100, Longitude: 126.9})
	}
	return p
}
