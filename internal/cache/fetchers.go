package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrEmptySymbol is returned when a fetch is requested for a blank symbol.
var ErrEmptySymbol = errors.New("empty symbol")

// Fetchers are the memoized front of a market.Provider. Failures are never
// cached and provider errors are returned unchanged.
type Fetchers struct {
	provider market.Provider
	store    *Store
	group    *singleflight.Group
	log      zerolog.Logger
}

// Option configures Fetchers.
type Option func(*Fetchers)

// WithSingleFlight makes concurrent misses for the same key share one provider call.
func WithSingleFlight() Option {
	return func(f *Fetchers) {
		f.group = &singleflight.Group{}
	}
}

// WithLogger sets the logger used for cache hit/miss tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Fetchers) {
		f.log = log
	}
}

// NewFetchers creates memoized fetchers over p, storing results in store.
func NewFetchers(p market.Provider, store *Store, opts ...Option) *Fetchers {
	f := &Fetchers{
		provider: p,
		store:    store,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the underlying cache.
func (f *Fetchers) Store() *Store { return f.store }

// ProviderName returns the name of the wrapped provider.
func (f *Fetchers) ProviderName() string { return f.provider.Name() }

func (f *Fetchers) Profile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	return memoize(ctx, f, OpProfile, symbol, f.provider.FetchProfile)
}

func (f *Fetchers) PriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error) {
	return memoize(ctx, f, OpPriceHistory, symbol, f.provider.FetchPriceHistory)
}

func (f *Fetchers) QuarterlyFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return memoize(ctx, f, OpQuarterlyFinancials, symbol, f.provider.FetchQuarterlyFinancials)
}

func (f *Fetchers) AnnualFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return memoize(ctx, f, OpAnnualFinancials, symbol, f.provider.FetchAnnualFinancials)
}

// Financials dispatches to the fetcher for granularity g.
func (f *Fetchers) Financials(ctx context.Context, symbol string, g models.Granularity) (models.FinancialStatement, error) {
	switch g {
	case models.Quarterly:
		return f.QuarterlyFinancials(ctx, symbol)
	case models.Annual:
		return f.AnnualFinancials(ctx, symbol)
	default:
		return models.FinancialStatement{}, fmt.Errorf("%w: %d", models.ErrInvalidGranularity, int(g))
	}
}

func memoize[T any](ctx context.Context, f *Fetchers, op Operation, symbol string, fetch func(context.Context, string) (T, error)) (T, error) {
	var zero T
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return zero, ErrEmptySymbol
	}

	if v, ok := f.store.Get(op, symbol); ok {
		if typed, ok := v.(T); ok {
			f.log.Debug().Str("op", string(op)).Str("symbol", symbol).Msg("cache hit")
			return typed, nil
		}
	}

	load := func(ctx context.Context) (T, error) {
		f.log.Debug().Str("op", string(op)).Str("symbol", symbol).Str("provider", f.provider.Name()).Msg("cache miss")
		v, err := fetch(ctx, symbol)
		if err != nil {
			return zero, err
		}
		f.store.Set(op, symbol, v)
		return v, nil
	}

	if f.group == nil {
		return load(ctx)
	}

	// The shared fetch outlives any one caller: a waiter that goes away must
	// not cancel the fetch the others are waiting on.
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key(op, symbol), func() (any, error) {
		// Another caller may have filled the key while this one waited.
		if v, ok := f.store.Get(op, symbol); ok {
			return v, nil
		}
		return load(shared)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
