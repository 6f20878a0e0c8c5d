// Package warmer prefetches dashboard data on a cron schedule so the first
// visitor of a symbol does not wait on the provider.
package warmer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mauv0809/stockboard/internal/cache"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Source is the memoized fetch surface. Hits are free, so warming a symbol
// that is already cached costs nothing.
type Source interface {
	Profile(ctx context.Context, symbol string) (models.CompanyProfile, error)
	PriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error)
	QuarterlyFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error)
	AnnualFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error)
}

// Result summarises one warming pass.
type Result struct {
	Symbols  int
	Fetches  int
	Failures int
}

// Warmer runs warming passes over a fixed symbol list.
type Warmer struct {
	cron    *cron.Cron
	source  Source
	symbols []string
	timeout time.Duration
	log     zerolog.Logger

	// running guards against overlapping passes when one outlasts the schedule.
	running sync.Mutex
}

// New creates a warmer for symbols. timeout bounds one pass.
func New(src Source, symbols []string, timeout time.Duration, log zerolog.Logger) *Warmer {
	return &Warmer{
		cron:    cron.New(),
		source:  src,
		symbols: symbols,
		timeout: timeout,
		log:     log.With().Str("component", "warmer").Logger(),
	}
}

// Start registers the pass under a standard five-field cron spec and starts
// the scheduler.
func (w *Warmer) Start(spec string) error {
	if _, err := w.cron.AddFunc(spec, w.scheduled); err != nil {
		return fmt.Errorf("register warm task: %w", err)
	}
	w.cron.Start()
	w.log.Info().Str("cron", spec).Int("symbols", len(w.symbols)).Msg("cache warmer started")
	return nil
}

// Stop stops the scheduler and waits for a running pass to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info().Msg("cache warmer stopped")
}

func (w *Warmer) scheduled() {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	w.Run(ctx)
}

// Run performs one pass: every operation for every symbol, in order.
// Failures are logged and counted; they are not cached, so the next pass
// tries again. A pass that finds another one running is skipped.
func (w *Warmer) Run(ctx context.Context) Result {
	if !w.running.TryLock() {
		w.log.Warn().Msg("previous warm pass still running, skipping")
		return Result{}
	}
	defer w.running.Unlock()

	start := time.Now()
	var res Result
	for _, symbol := range w.symbols {
		if ctx.Err() != nil {
			break
		}
		res.Symbols++
		for _, op := range operations {
			res.Fetches++
			if err := op.warm(w.source, ctx, symbol); err != nil {
				res.Failures++
				w.log.Warn().Err(err).Str("symbol", symbol).Str("op", string(op.name)).Msg("warm fetch failed")
			}
		}
	}

	w.log.Info().
		Int("symbols", res.Symbols).
		Int("fetches", res.Fetches).
		Int("failures", res.Failures).
		Dur("elapsed", time.Since(start)).
		Msg("warm pass complete")
	return res
}

// operations are warmed in dashboard fetch order.
var operations = []struct {
	name cache.Operation
	warm func(Source, context.Context, string) error
}{
	{cache.OpProfile, discard(Source.Profile)},
	{cache.OpPriceHistory, discard(Source.PriceHistory)},
	{cache.OpQuarterlyFinancials, discard(Source.QuarterlyFinancials)},
	{cache.OpAnnualFinancials, discard(Source.AnnualFinancials)},
}

func discard[T any](fetch func(Source, context.Context, string) (T, error)) func(Source, context.Context, string) error {
	return func(src Source, ctx context.Context, symbol string) error {
		_, err := fetch(src, ctx, symbol)
		return err
	}
}
