package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/addrmap/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresCache.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const postgresCacheMigration = `
CREATE TABLE IF NOT EXISTS public.geocode_cache (
	address_hash TEXT PRIMARY KEY,
	matched      BOOLEAN NOT NULL,
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	dong         TEXT,
	refined      TEXT,
	kind         TEXT,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresCache is a Cache shared between instances through Postgres.
type PostgresCache struct {
	pool    Pool
	ttlDays int
}

// NewPostgresCache creates a cache over pool. A ttlDays of zero disables
// expiry.
func NewPostgresCache(pool Pool, ttlDays int) *PostgresCache {
	return &PostgresCache{pool: pool, ttlDays: ttlDays}
}

// Migrate creates the cache table.
func (c *PostgresCache) Migrate(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, postgresCacheMigration); err != nil {
		return eris.Wrap(err, "postgres cache: migrate")
	}
	return nil
}

// Get implements Cache.
func (c *PostgresCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	query := "SELECT matched, latitude, longitude, dong, refined, kind FROM public.geocode_cache WHERE address_hash = $1"
	if c.ttlDays > 0 {
		query += fmt.Sprintf(" AND cached_at > now() - interval '%d days'", c.ttlDays)
	}

	var (
		matched             bool
		lat, lng            *float64
		dong, refined, kind *string
	)
	err := c.pool.QueryRow(ctx, query, key).Scan(&matched, &lat, &lng, &dong, &refined, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres cache: get")
	}

	e := &CacheEntry{Matched: matched}
	if lat != nil {
		e.Latitude = *lat
	}
	if lng != nil {
		e.Longitude = *lng
	}
	if dong != nil {
		e.Dong = *dong
	}
	if refined != nil {
		e.Refined = *refined
	}
	if kind != nil {
		e.Kind = model.Kind(*kind)
	}
	return e, nil
}

// Put implements Cache. Non-matches are stored with NULL coordinates.
func (c *PostgresCache) Put(ctx context.Context, key string, e CacheEntry) error {
	var lat, lng any
	if e.Matched {
		lat, lng = e.Latitude, e.Longitude
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO public.geocode_cache (address_hash, matched, latitude, longitude, dong, refined, kind, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (address_hash) DO UPDATE SET
			matched = EXCLUDED.matched,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			dong = EXCLUDED.dong,
			refined = EXCLUDED.refined,
			kind = EXCLUDED.kind,
			cached_at = now()`,
		key, e.Matched, lat, lng, nilIfEmpty(e.Dong), nilIfEmpty(e.Refined), nilIfEmpty(string(e.Kind)),
	)
	if err != nil {
		return eris.Wrap(err, "postgres cache: put")
	}
	return nil
}

// nilIfEmpty returns nil for empty strings so they are stored as NULL.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
