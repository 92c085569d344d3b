package geocode

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/addrmap/internal/model"
)

const sqliteCacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	matched      INTEGER NOT NULL,
	latitude     REAL,
	longitude    REAL,
	dong         TEXT,
	refined      TEXT,
	kind         TEXT,
	cached_at    INTEGER NOT NULL
);
`

// SQLiteCache is a Cache backed by a local SQLite file.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteCache opens the database at dsn and configures WAL mode.
func NewSQLiteCache(dsn string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite cache: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// Migrate creates the cache table.
func (c *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, sqliteCacheMigration)
	return eris.Wrap(err, "sqlite cache: migrate")
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	query := `SELECT matched, latitude, longitude, dong, refined, kind, cached_at FROM geocode_cache WHERE address_hash = ?`
	args := []any{key}
	if c.ttl > 0 {
		query += ` AND cached_at > ?`
		args = append(args, time.Now().Add(-c.ttl).Unix())
	}

	var (
		matched             int
		lat, lng            sql.NullFloat64
		dong, refined, kind sql.NullString
		cachedAt            int64
	)
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&matched, &lat, &lng, &dong, &refined, &kind, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite cache: get")
	}

	return &CacheEntry{
		Matched:   matched == 1,
		Latitude:  lat.Float64,
		Longitude: lng.Float64,
		Dong:      dong.String,
		Refined:   refined.String,
		Kind:      model.Kind(kind.String),
		CachedAt:  time.Unix(cachedAt, 0),
	}, nil
}

// Put implements Cache.
func (c *SQLiteCache) Put(ctx context.Context, key string, e CacheEntry) error {
	matched := 0
	if e.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, matched, latitude, longitude, dong, refined, kind, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (address_hash) DO UPDATE SET
			matched = excluded.matched,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			dong = excluded.dong,
			refined = excluded.refined,
			kind = excluded.kind,
			cached_at = excluded.cached_at`,
		key, matched, e.Latitude, e.Longitude, e.Dong, e.Refined, string(e.Kind), time.Now().Unix(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite cache: put")
	}
	return nil
}
