// Package batch turns spreadsheet rows into deduplicated map markers.
package batch

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/address"
	"github.com/sells-group/addrmap/internal/geocode"
	"github.com/sells-group/addrmap/internal/model"
)

// Resolver resolves one parsed address. *geocode.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, p address.Parsed) (*model.GeocodeResult, error)
}

// ProgressFunc is called after each row with the number of rows handled.
type ProgressFunc func(done, total int)

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithPacing pauses for d after every n rows. n <= 0 or d <= 0 disables pacing.
func WithPacing(n int, d time.Duration) Option {
	return func(a *Aggregator) {
		a.pauseEvery = n
		a.pause = d
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Aggregator) {
		a.onProgress = fn
	}
}

const (
	defaultPauseEvery = 5
	defaultPause      = 50 * time.Millisecond
)

// Aggregator resolves rows one at a time and groups identical locations.
type Aggregator struct {
	resolver   Resolver
	log        *zap.Logger
	pauseEvery int
	pause      time.Duration
	onProgress ProgressFunc
}

// NewAggregator creates an Aggregator over r.
func NewAggregator(r Resolver, opts ...Option) *Aggregator {
	a := &Aggregator{
		resolver:   r,
		log:        zap.NewNop(),
		pauseEvery: defaultPauseEvery,
		pause:      defaultPause,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the outcome of one batch run. Markers are in order of first
// appearance; Failed is in row order.
type Result struct {
	RunID   string
	Markers []*model.Marker
	Failed  []model.FailedAddress
}

// SuccessCount returns the number of rows that landed on a marker.
func (r *Result) SuccessCount() int {
	n := 0
	for _, m := range r.Markers {
		n += m.OccurrenceCount
	}
	return n
}

// Summary reports the run against the total number of input rows.
func (r *Result) Summary(total int) model.Summary {
	failed := r.Failed
	if failed == nil {
		failed = []model.FailedAddress{}
	}
	return model.Summary{
		TotalAddresses:  total,
		SuccessCount:    r.SuccessCount(),
		FailedAddresses: failed,
	}
}

// Aggregate resolves every row in order. Per-row failures are recorded in
// Result.Failed. A missing credential aborts the run and returns the error
// with no partial result, as does context cancellation.
func (a *Aggregator) Aggregate(ctx context.Context, rows []model.Row) (*Result, error) {
	res := &Result{
		RunID:   uuid.New().String(),
		Markers: []*model.Marker{},
	}
	log := a.log.With(zap.String("run_id", res.RunID))
	log.Info("batch started", zap.Int("rows", len(rows)))

	index := make(map[string]*model.Marker)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && a.pauseEvery > 0 && a.pause > 0 && i%a.pauseEvery == 0 {
			if err := sleep(ctx, a.pause); err != nil {
				return nil, err
			}
		}

		p := address.Parse(row.Address)
		var (
			geo *model.GeocodeResult
			err error
		)
		if p.Address == "" {
			err = &geocode.Failure{Reason: geocode.ReasonEmptyInput, Address: row.Address}
		} else {
			geo, err = a.resolver.Resolve(ctx, p)
		}
		if err != nil {
			if geocode.IsFatal(err) {
				log.Error("batch aborted", zap.Int("row", row.Number), zap.Error(err))
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Debug("row failed", zap.Int("row", row.Number), zap.String("address", row.Address), zap.Error(err))
			res.Failed = append(res.Failed, model.FailedAddress{
				OriginalAddress: row.Address,
				Reason:          err.Error(),
				Row:             row.Number,
			})
		} else {
			key := groupKey(geo.Latitude, geo.Longitude, p.Address)
			if m, ok := index[key]; ok {
				m.Add(row.Address, p.Apartment)
			} else {
				m := model.NewMarker(geo.Latitude, geo.Longitude, row.Address, p.Apartment)
				m.Dong = geo.Dong
				index[key] = m
				res.Markers = append(res.Markers, m)
			}
		}

		if a.onProgress != nil {
			a.onProgress(i+1, len(rows))
		}
	}

	log.Info("batch complete",
		zap.Int("rows", len(rows)),
		zap.Int("markers", len(res.Markers)),
		zap.Int("succeeded", res.SuccessCount()),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// groupKey identifies a marker: exact coordinates plus the grouping form of
// the normalized address.
func groupKey(lat, lng float64, normalized string) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(lng, 'f', -1, 64) + "," +
		address.GroupingForm(normalized)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
