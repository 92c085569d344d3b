// Package geocode resolves normalized Korean addresses to coordinates. Each
// address is looked up as a road address first and as a parcel address when
// the road lookup yields nothing usable.
package geocode

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/addrmap/internal/address"
	"github.com/sells-group/addrmap/internal/model"
	"github.com/sells-group/addrmap/pkg/vworld"
)

// Lookuper performs one provider lookup. *vworld.Client implements it.
type Lookuper interface {
	Lookup(ctx context.Context, address, addrType string) (*vworld.Response, error)
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithCache enables the lookup cache keyed by normalized address.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// Resolver turns a parsed address into a coordinate. It is safe for
// concurrent use; identical in-flight addresses share one provider call.
type Resolver struct {
	lookup Lookuper
	cache  Cache
	log    *zap.Logger
	group  singleflight.Group
}

// NewResolver creates a Resolver over the given lookup capability.
func NewResolver(l Lookuper, opts ...Option) *Resolver {
	r := &Resolver{
		lookup: l,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve geocodes p.Address. On failure it returns a nil result and a
// *Failure, or the context error if ctx ends first. The building number extracted during normalization is attached
// with a "동" suffix.
func (r *Resolver) Resolve(ctx context.Context, p address.Parsed) (*model.GeocodeResult, error) {
	if p.Address == "" {
		return nil, &Failure{Reason: ReasonEmptyInput, Address: p.Raw}
	}

	// The shared lookup outlives any single caller; the client timeout
	// still bounds it.
	ch := r.group.DoChan(p.Address, func() (any, error) {
		return r.resolveCached(context.WithoutCancel(ctx), p.Address)
	})

	var out singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out = <-ch:
	}
	if out.Err != nil {
		return nil, out.Err
	}

	res := *out.Val.(*model.GeocodeResult)
	if p.BuildingNumber != "" {
		res.BuildingNumber = p.BuildingNumber + "동"
	}
	return &res, nil
}

func (r *Resolver) resolveCached(ctx context.Context, addr string) (*model.GeocodeResult, error) {
	if r.cache == nil {
		return r.resolve(ctx, addr)
	}

	key := CacheKey(addr)
	cached, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Debug("geocode cache read failed", zap.String("address", addr), zap.Error(err))
	}
	if cached != nil {
		r.log.Debug("geocode cache hit", zap.String("address", addr), zap.Bool("matched", cached.Matched))
		if !cached.Matched {
			return nil, &Failure{Reason: ReasonNoAddressMatch, Address: addr}
		}
		return cached.result(addr), nil
	}

	res, err := r.resolve(ctx, addr)
	switch {
	case err == nil:
		r.store(ctx, key, entryFromResult(res))
	case isNoMatch(err):
		r.store(ctx, key, CacheEntry{Matched: false})
	}
	return res, err
}

func (r *Resolver) store(ctx context.Context, key string, e CacheEntry) {
	if err := r.cache.Put(ctx, key, e); err != nil {
		r.log.Warn("geocode cache write failed", zap.Error(err))
	}
}

// resolve runs the road→parcel fallback without caching.
func (r *Resolver) resolve(ctx context.Context, addr string) (*model.GeocodeResult, error) {
	failures := make([]*Failure, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		res, f := r.attempt(ctx, model.Query{Address: addr, Kind: kind})
		if f == nil {
			r.log.Debug("address resolved",
				zap.String("address", addr),
				zap.String("kind", string(kind)),
				zap.Float64("lat", res.Latitude),
				zap.Float64("lng", res.Longitude),
			)
			return res, nil
		}
		if f.Fatal() {
			return nil, f
		}
		r.log.Debug("lookup attempt failed",
			zap.String("address", addr),
			zap.String("kind", string(kind)),
			zap.Stringer("reason", f.Reason),
			zap.String("detail", f.Detail),
		)
		failures = append(failures, f)
	}
	return nil, combine(addr, failures)
}

func (r *Resolver) attempt(ctx context.Context, q model.Query) (*model.GeocodeResult, *Failure) {
	addr, kind := q.Address, q.Kind
	resp, err := r.lookup.Lookup(ctx, addr, string(kind))
	if err != nil {
		switch {
		case eris.Is(err, vworld.ErrMissingKey):
			return nil, &Failure{Reason: ReasonMissingCredential, Address: addr}
		case eris.Is(err, vworld.ErrMalformedResponse):
			return nil, &Failure{Reason: ReasonMalformedResponse, Address: addr, Detail: err.Error()}
		default:
			return nil, &Failure{Reason: ReasonTransport, Address: addr, Detail: err.Error()}
		}
	}

	switch resp.Status {
	case vworld.StatusOK:
		if resp.Point == nil {
			return nil, &Failure{Reason: ReasonMalformedResponse, Address: addr, Detail: "response has no coordinate"}
		}
		res := &model.GeocodeResult{
			Latitude:  resp.Point.Y,
			Longitude: resp.Point.X,
			Address:   addr,
			Refined:   resp.Refined,
			Kind:      kind,
		}
		if resp.Structure != nil {
			res.Dong = resp.Structure.Level4A
		}
		return res, nil
	case vworld.StatusNotFound:
		return nil, &Failure{Reason: ReasonNoAddressMatch, Address: addr}
	case vworld.StatusError:
		if resp.Error == nil {
			return nil, &Failure{Reason: ReasonTransport, Address: addr, Detail: "provider reported an error"}
		}
		if resp.Error.KeyRejected() {
			return nil, &Failure{Reason: ReasonMissingCredential, Address: addr, Detail: resp.Error.Error()}
		}
		return nil, &Failure{Reason: ReasonTransport, Address: addr, Detail: resp.Error.Error()}
	default:
		return nil, &Failure{Reason: ReasonMalformedResponse, Address: addr, Detail: fmt.Sprintf("unexpected status %q", resp.Status)}
	}
}

// combine picks the reported failure once every kind has been tried. A plain
// "not found" from both kinds is NoAddressMatch; otherwise the first
// transport or malformed failure wins since a later retry may succeed.
func combine(addr string, failures []*Failure) *Failure {
	for _, f := range failures {
		if f.Reason != ReasonNoAddressMatch {
			return f
		}
	}
	return &Failure{Reason: ReasonNoAddressMatch, Address: addr}
}

func isNoMatch(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Reason == ReasonNoAddressMatch
}
