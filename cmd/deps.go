package main

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/config"
	"github.com/sells-group/addrmap/internal/geocode"
	"github.com/sells-group/addrmap/pkg/vworld"
)

// nopCloser is returned when the cache holds no resources.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type poolCloser struct{ pool *pgxpool.Pool }

func (p poolCloser) Close() error {
	p.pool.Close()
	return nil
}

// initResolver builds the VWorld client, the configured cache and the
// resolver over them. The returned closer releases the cache.
func initResolver(ctx context.Context, c *config.Config) (*geocode.Resolver, io.Closer, error) {
	client := vworld.New(
		vworld.WithKey(c.VWorld.Key),
		vworld.WithBaseURL(c.VWorld.BaseURL),
		vworld.WithTimeout(c.VWorld.Timeout()),
		vworld.WithRateLimit(c.VWorld.RateLimit),
	)
	if !client.HasKey() {
		zap.L().Warn("vworld api key not configured; lookups will fail (set ADDRMAP_VWORLD_KEY or VWORLD_API_KEY)")
	}

	cache, closer, err := openCache(ctx, c.Geocode)
	if err != nil {
		return nil, nil, err
	}

	opts := []geocode.Option{geocode.WithLogger(zap.L())}
	if cache != nil {
		opts = append(opts, geocode.WithCache(cache))
	}
	return geocode.NewResolver(client, opts...), closer, nil
}

func openCache(ctx context.Context, c config.GeocodeConfig) (geocode.Cache, io.Closer, error) {
	switch c.Cache {
	case "", "none":
		return nil, nopCloser{}, nil
	case "memory":
		return geocode.NewMemoryCache(c.CacheTTL()), nopCloser{}, nil
	case "sqlite":
		sc, err := geocode.NewSQLiteCache(c.CacheDSN, c.CacheTTL())
		if err != nil {
			return nil, nil, err
		}
		if err := sc.Migrate(ctx); err != nil {
			sc.Close() //nolint:errcheck
			return nil, nil, err
		}
		return sc, sc, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.CacheDSN)
		if err != nil {
			return nil, nil, eris.Wrap(err, "postgres cache: connect")
		}
		pc := geocode.NewPostgresCache(pool, c.CacheTTLDays)
		if err := pc.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pc, poolCloser{pool: pool}, nil
	default:
		return nil, nil, eris.Errorf("unsupported geocode cache: %s", c.Cache)
	}
}
