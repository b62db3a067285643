package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return newCache(5*time.Minute, 30*time.Minute, clock.Now), clock
}

func counter(values ...int) (func(context.Context) (int, error), *int) {
	calls := 0
	return func(context.Context) (int, error) {
		v := values[calls]
		calls++
		return v, nil
	}, &calls
}

func TestFetchServesFreshEntry(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()
	load, calls := counter(1, 2)

	v, err := Fetch(ctx, c, "photos:a", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(4 * time.Minute)
	v, err = Fetch(ctx, c, "photos:a", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, *calls)
}

func TestFetchReloadsStaleEntry(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()
	load, calls := counter(1, 2)

	_, err := Fetch(ctx, c, "k", load)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	v, err := Fetch(ctx, c, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, *calls)
}

func TestFetchServesStaleOnReloadFailure(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()

	_, err := Fetch(ctx, c, "k", func(context.Context) (string, error) { return "old", nil })
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	v, err := Fetch(ctx, c, "k", func(context.Context) (string, error) { return "", errors.New("store down") })
	require.NoError(t, err)
	assert.Equal(t, "old", v)
}

func TestFetchPastRetentionReturnsError(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()

	_, err := Fetch(ctx, c, "k", func(context.Context) (string, error) { return "old", nil })
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = Fetch(ctx, c, "k", func(context.Context) (string, error) { return "", errors.New("store down") })
	assert.Error(t, err)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	_, err := Fetch(ctx, c, "k", func(context.Context) (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestInvalidatePrefix(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	for _, key := range []string{"photos:list:1", "photos:get:2", "trails:all"} {
		_, err := Fetch(ctx, c, key, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Invalidate("photos:"))
	assert.Equal(t, 1, c.Len())

	load, calls := counter(7)
	v, err := Fetch(ctx, c, "photos:get:2", load)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, *calls)
}

func TestCleanupEvictsExpired(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()

	_, err := Fetch(ctx, c, "old", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	_, err = Fetch(ctx, c, "new", func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	c.cleanup()
	assert.Equal(t, 1, c.Len())
}

func TestInvalidateDuringLoadDropsResult(t *testing.T) {
	c, _ := newTestCache()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, _ := Fetch(ctx, c, "photos:list", func(context.Context) (string, error) {
			close(started)
			<-release
			return "pre-mutation", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate("photos:")
	close(release)
	assert.Equal(t, "pre-mutation", <-done)
	assert.Zero(t, c.Len())

	v, err := Fetch(ctx, c, "photos:list", func(context.Context) (string, error) {
		return "post-mutation", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "post-mutation", v)
}
