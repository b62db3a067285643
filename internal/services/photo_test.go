package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ecopark-admin/internal/cache"
	"ecopark-admin/internal/models"
	"ecopark-admin/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newPhotoService(t *testing.T, store *fakePhotoStore, images *fakeImageStore, cfg PhotoServiceConfig) *PhotoService {
	t.Helper()
	c := cache.New(5*time.Minute, 30*time.Minute)
	t.Cleanup(c.Close)
	return NewPhotoService(store, images, c, NewWSHub(), NewCursorCodec("test-secret"), cfg)
}

// seedPartition creates n unreviewed photos. Every third photo shares its
// timestamp with the previous one to exercise tie-breaking.
func seedPartition(n int) []*models.Photo {
	photos := make([]*models.Photo, 0, n)
	ts := base
	for i := 0; i < n; i++ {
		if i%3 != 0 {
			ts = ts.Add(time.Minute)
		}
		name := fmt.Sprintf("species-%02d", (i*7)%n)
		photos = append(photos, photo(fmt.Sprintf("p%03d", i), name, models.CategoryBird, ts, false, "https://cdn/"+name))
	}
	return photos
}

func collectAll(t *testing.T, svc *PhotoService, req ListPhotosRequest) []*models.Photo {
	t.Helper()
	var all []*models.Photo
	for pages := 0; pages < 100; pages++ {
		page, err := svc.ListPhotos(context.Background(), req)
		require.NoError(t, err)
		all = append(all, page.Photos...)
		if page.NextCursor == "" {
			return all
		}
		req.Cursor = page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestListPhotosPaginationNeverRepeats(t *testing.T) {
	seed := seedPartition(47)
	seed = append(seed, photo("r1", "reviewed", models.CategoryBird, base, true, "https://cdn/r1"))
	store := newFakePhotoStore(seed...)
	svc := newPhotoService(t, store, &fakeImageStore{}, PhotoServiceConfig{PageSize: 10})

	for _, sortKey := range []string{repository.SortByTimestamp, repository.SortByName} {
		t.Run(sortKey, func(t *testing.T) {
			all := collectAll(t, svc, ListPhotosRequest{Sort: sortKey})
			require.Len(t, all, 47)

			seen := make(map[string]bool)
			for i, p := range all {
				assert.False(t, seen[p.ID], "photo %s returned twice", p.ID)
				seen[p.ID] = true
				assert.False(t, p.IsReviewed)
				if i > 0 {
					assert.False(t, lessPhoto(sortKey, all[i-1], p), "order broken at %d", i)
				}
			}
		})
	}
}

func TestListPhotosPageShape(t *testing.T) {
	store := newFakePhotoStore(seedPartition(20)...)
	svc := newPhotoService(t, store, &fakeImageStore{}, PhotoServiceConfig{PageSize: 20})

	page, err := svc.ListPhotos(context.Background(), ListPhotosRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Photos, 20)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, "p019", page.Photos[0].ID)
}

func TestListPhotosRejectsBadInput(t *testing.T) {
	store := newFakePhotoStore(seedPartition(15)...)
	svc := newPhotoService(t, store, &fakeImageStore{}, PhotoServiceConfig{PageSize: 5})
	ctx := context.Background()

	_, err := svc.ListPhotos(ctx, ListPhotosRequest{Sort: "size"})
	assert.ErrorIs(t, err, ErrInvalidSort)

	_, err = svc.ListPhotos(ctx, ListPhotosRequest{Cursor: "garbage"})
	assert.ErrorIs(t, err, ErrInvalidCursor)

	page, err := svc.ListPhotos(ctx, ListPhotosRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, page.NextCursor)

	_, err = svc.ListPhotos(ctx, ListPhotosRequest{Reviewed: true, Cursor: page.NextCursor})
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = svc.ListPhotos(ctx, ListPhotosRequest{Sort: repository.SortByName, Cursor: page.NextCursor})
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = svc.ListPhotos(ctx, ListPhotosRequest{Cursor: page.NextCursor + "x"})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursorExpires(t *testing.T) {
	codec := NewCursorCodec("secret")
	now := base
	codec.now = func() time.Time { return now }

	req := ListPhotosRequest{Sort: repository.SortByTimestamp}
	cursor, err := codec.Encode(req, photo("p1", "n", models.CategoryBird, base, false))
	require.NoError(t, err)

	key, err := codec.Decode(cursor, req)
	require.NoError(t, err)
	assert.Equal(t, "p1", key.ID)
	assert.True(t, base.Equal(key.Timestamp))

	now = now.Add(cursorTTL + time.Minute)
	_, err = codec.Decode(cursor, req)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = NewCursorCodec("other").Decode(cursor, req)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestListPhotosServedFromCacheUntilMutation(t *testing.T) {
	store := newFakePhotoStore(seedPartition(3)...)
	svc := newPhotoService(t, store, &fakeImageStore{}, PhotoServiceConfig{})
	ctx := context.Background()

	_, err := svc.ListPhotos(ctx, ListPhotosRequest{})
	require.NoError(t, err)
	_, err = svc.ListPhotos(ctx, ListPhotosRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.listCalls)

	require.NoError(t, svc.Review(ctx, "p001", nil))

	page, err := svc.ListPhotos(ctx, ListPhotosRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
	assert.Len(t, page.Photos, 2)
}

func TestReview(t *testing.T) {
	note := "old note"
	withNote := photo("a", "까치", models.CategoryBird, base, false, "https://cdn/a")
	withNote.Annotation = &note
	empty := photo("e", "빈 사진", models.CategoryBird, base, false)
	store := newFakePhotoStore(withNote, empty)
	svc := newPhotoService(t, store, &fakeImageStore{}, PhotoServiceConfig{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Review(ctx, "e", nil), ErrNoImages)
	assert.ErrorIs(t, svc.Review(ctx, "missing", nil), ErrNotFound)

	blank := "   "
	require.NoError(t, svc.Review(ctx, "a", &blank))
	got, err := svc.GetPhoto(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.IsReviewed)
	require.NotNil(t, got.Annotation)
	assert.Equal(t, "old note", *got.Annotation)

	updated := "seen near the pond"
	require.NoError(t, svc.Review(ctx, "a", &updated))
	got, err = svc.GetPhoto(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "seen near the pond", *got.Annotation)

	require.NoError(t, svc.Unreview(ctx, "a"))
	got, err = svc.GetPhoto(ctx, "a")
	require.NoError(t, err)
	assert.False(t, got.IsReviewed)
	assert.Equal(t, "seen near the pond", *got.Annotation)
}

func TestDeletePhoto(t *testing.T) {
	t.Run("removes blobs then record", func(t *testing.T) {
		store := newFakePhotoStore(photo("a", "n", models.CategoryBird, base, false, "u1", "u2", "u3"))
		images := &fakeImageStore{}
		svc := newPhotoService(t, store, images, PhotoServiceConfig{})

		require.NoError(t, svc.DeletePhoto(context.Background(), "a"))
		assert.False(t, store.has("a"))
		assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, images.deleted)
	})

	t.Run("keeps record when a blob fails", func(t *testing.T) {
		store := newFakePhotoStore(photo("a", "n", models.CategoryBird, base, false, "u1", "u2"))
		images := &fakeImageStore{fail: map[string]bool{"u2": true}}
		svc := newPhotoService(t, store, images, PhotoServiceConfig{})

		assert.Error(t, svc.DeletePhoto(context.Background(), "a"))
		assert.True(t, store.has("a"))
	})

	t.Run("missing record", func(t *testing.T) {
		svc := newPhotoService(t, newFakePhotoStore(), &fakeImageStore{}, PhotoServiceConfig{})
		assert.ErrorIs(t, svc.DeletePhoto(context.Background(), "nope"), ErrNotFound)
	})
}

func TestRemoveImage(t *testing.T) {
	store := newFakePhotoStore(
		photo("multi", "n", models.CategoryBird, base, false, "u1", "u2", "u3"),
		photo("single", "n", models.CategoryBird, base, false, "s1"),
	)
	images := &fakeImageStore{}
	svc := newPhotoService(t, store, images, PhotoServiceConfig{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.RemoveImage(ctx, "multi", 3), ErrInvalidIndex)
	assert.ErrorIs(t, svc.RemoveImage(ctx, "multi", -1), ErrInvalidIndex)
	assert.ErrorIs(t, svc.RemoveImage(ctx, "single", 0), ErrLastImage)

	require.NoError(t, svc.RemoveImage(ctx, "multi", 1))
	got, err := svc.GetPhoto(ctx, "multi")
	require.NoError(t, err)
	require.Len(t, got.Images, 2)
	assert.Equal(t, "u1", got.Images[0].URL)
	assert.Equal(t, "u3", got.Images[1].URL)
	assert.Equal(t, []string{"u2"}, images.deleted)
}

func TestRemoveImageToleratesBlobFailure(t *testing.T) {
	store := newFakePhotoStore(photo("multi", "n", models.CategoryBird, base, false, "u1", "u2"))
	svc := newPhotoService(t, store, &fakeImageStore{fail: map[string]bool{"u1": true}}, PhotoServiceConfig{})

	require.NoError(t, svc.RemoveImage(context.Background(), "multi", 0))
	got, err := svc.GetPhoto(context.Background(), "multi")
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "u2", got.Images[0].URL)
}

func TestConcurrentRemovalsKeepOneImage(t *testing.T) {
	store := newFakePhotoStore(photo("p1", "n", models.CategoryBird, base, true, "u1", "u2"))
	svc := newPhotoService(t, store, &fakeImageStore{}, PhotoServiceConfig{})
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.RemoveImage(ctx, "p1", i)
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.IsReviewed)
	assert.Len(t, got.Images, 1)
}

func TestRemoveImageWithSharedURL(t *testing.T) {
	store := newFakePhotoStore(photo("p2", "n", models.CategoryBird, base, false, "same", "same"))
	images := &fakeImageStore{}
	svc := newPhotoService(t, store, images, PhotoServiceConfig{})
	ctx := context.Background()

	require.NoError(t, svc.RemoveImage(ctx, "p2", 0))
	got, err := store.GetByID(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "same", got.Images[0].URL)
	assert.Empty(t, images.deleted)

	assert.ErrorIs(t, svc.RemoveImage(ctx, "p2", 0), ErrLastImage)
}

func TestNeighborStrategiesAgree(t *testing.T) {
	seed := seedPartition(12)
	seed = append(seed, photo("r1", "reviewed", models.CategoryBird, base.Add(5*time.Minute), true, "x"))

	for _, strategy := range []string{NeighborRange, NeighborScan} {
		t.Run(strategy, func(t *testing.T) {
			store := newFakePhotoStore(seed...)
			svc := newPhotoService(t, store, &fakeImageStore{}, PhotoServiceConfig{NeighborStrategy: strategy})
			ctx := context.Background()

			ids, err := store.PartitionIDs(ctx, false)
			require.NoError(t, err)

			for i, id := range ids {
				n, err := svc.Neighbors(ctx, id)
				require.NoError(t, err)
				if i == 0 {
					assert.Empty(t, n.PrevID)
				} else {
					assert.Equal(t, ids[i-1], n.PrevID)
				}
				if i == len(ids)-1 {
					assert.Empty(t, n.NextID)
				} else {
					assert.Equal(t, ids[i+1], n.NextID)
				}
			}

			n, err := svc.Neighbors(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, &Neighbors{}, n)

			_, err = svc.Neighbors(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
