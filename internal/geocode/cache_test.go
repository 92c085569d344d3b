package geocode

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrmap/internal/model"
)

func TestCacheKey_Deterministic(t *testing.T) {
	key1 := CacheKey("경기도 수원시 팔달구 효원로 1")
	key2 := CacheKey("경기도 수원시 팔달구 효원로 1")
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64)
}

func TestCacheKey_DifferentAddresses(t *testing.T) {
	assert.NotEqual(t, CacheKey("효원로 1"), CacheKey("효원로 2"))
}

func TestMemoryCache_HitAndMiss(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	got, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, "k", CacheEntry{Matched: true, Latitude: 37.1, Longitude: 127.2, Kind: model.KindRoad}))
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Matched)
	assert.InDelta(t, 37.1, got.Latitude, 1e-9)
	assert.Equal(t, model.KindRoad, got.Kind)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", CacheEntry{Matched: false}))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Matched)

	now = now.Add(2 * time.Hour)
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_ExpiredReadKeepsFreshEntry(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	c.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", CacheEntry{Matched: false}))
	now = start.Add(2 * time.Hour)

	// A reader saw the stale entry, then a Put refreshed it before eviction.
	require.NoError(t, c.Put(ctx, "k", CacheEntry{Matched: true, Dong: "영통동"}))
	c.evict("k", start)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Matched)
	assert.Equal(t, "영통동", got.Dong)
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, c.Migrate(ctx))

	got, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, "hit", CacheEntry{
		Matched:   true,
		Latitude:  37.2636,
		Longitude: 127.0286,
		Dong:      "인계동",
		Refined:   "경기도 수원시 팔달구 효원로 1",
		Kind:      model.KindRoad,
	}))
	require.NoError(t, c.Put(ctx, "miss", CacheEntry{Matched: false}))

	got, err = c.Get(ctx, "hit")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Matched)
	assert.InDelta(t, 37.2636, got.Latitude, 1e-9)
	assert.InDelta(t, 127.0286, got.Longitude, 1e-9)
	assert.Equal(t, "인계동", got.Dong)
	assert.Equal(t, model.KindRoad, got.Kind)

	got, err = c.Get(ctx, "miss")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Matched)

	// Overwrite flips a negative into a match.
	require.NoError(t, c.Put(ctx, "miss", CacheEntry{Matched: true, Latitude: 1, Longitude: 2, Kind: model.KindParcel}))
	got, err = c.Get(ctx, "miss")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Matched)
	assert.Equal(t, model.KindParcel, got.Kind)
}

func TestPostgresCache_Hit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lat, lng := 37.2636, 127.0286
	dong, refined, kind := "인계동", "경기도 수원시 팔달구 효원로 1", "road"
	mock.ExpectQuery(`SELECT matched, latitude, longitude, dong, refined, kind FROM public.geocode_cache`).
		WithArgs("abc123").
		WillReturnRows(
			pgxmock.NewRows([]string{"matched", "latitude", "longitude", "dong", "refined", "kind"}).
				AddRow(true, &lat, &lng, &dong, &refined, &kind),
		)

	c := NewPostgresCache(mock, 0)
	got, err := c.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Matched)
	assert.InDelta(t, 37.2636, got.Latitude, 1e-9)
	assert.Equal(t, "인계동", got.Dong)
	assert.Equal(t, model.KindRoad, got.Kind)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Negative(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT matched, latitude, longitude, dong, refined, kind FROM public.geocode_cache`).
		WithArgs("neg").
		WillReturnRows(
			pgxmock.NewRows([]string{"matched", "latitude", "longitude", "dong", "refined", "kind"}).
				AddRow(false, (*float64)(nil), (*float64)(nil), (*string)(nil), (*string)(nil), (*string)(nil)),
		)

	c := NewPostgresCache(mock, 0)
	got, err := c.Get(context.Background(), "neg")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Matched)
	assert.Zero(t, got.Latitude)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_TTL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`cached_at > now\(\) - interval '30 days'`).
		WithArgs("k").
		WillReturnError(assert.AnError)

	c := NewPostgresCache(mock, 30)
	got, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Nil(t, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO public.geocode_cache`).
		WithArgs("k", true, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c := NewPostgresCache(mock, 0)
	err = c.Put(context.Background(), "k", CacheEntry{Matched: true, Latitude: 1, Longitude: 2, Kind: model.KindRoad})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_PutError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO public.geocode_cache`).
		WithArgs("k", false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	c := NewPostgresCache(mock, 0)
	err = c.Put(context.Background(), "k", CacheEntry{Matched: false})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "postgres cache: put")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS public.geocode_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, NewPostgresCache(mock, 0).Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
