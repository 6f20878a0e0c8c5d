package market

import (
	"context"
	"time"

	"github.com/mauv0809/stockboard/internal/models"
	"github.com/rs/zerolog"
)

// Retrying decorates a Provider, retrying transient failures with exponential backoff.
type Retrying struct {
	next     Provider
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

var _ Provider = (*Retrying)(nil)

// WithRetry wraps p so that each call is tried up to attempts times.
// Waits double from backoff between tries. Only ErrTransientFetch is retried.
func WithRetry(p Provider, attempts int, backoff time.Duration, log zerolog.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: p, attempts: attempts, backoff: backoff, log: log}
}

func (r *Retrying) Name() string { return r.next.Name() }

func (r *Retrying) FetchProfile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	return retry(ctx, r, "profile", symbol, r.next.FetchProfile)
}

func (r *Retrying) FetchPriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error) {
	return retry(ctx, r, "price history", symbol, r.next.FetchPriceHistory)
}

func (r *Retrying) FetchQuarterlyFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return retry(ctx, r, "quarterly financials", symbol, r.next.FetchQuarterlyFinancials)
}

func (r *Retrying) FetchAnnualFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return retry(ctx, r, "annual financials", symbol, r.next.FetchAnnualFinancials)
}

func retry[T any](ctx context.Context, r *Retrying, what, symbol string, fetch func(context.Context, string) (T, error)) (T, error) {
	var (
		v       T
		lastErr error
	)
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			wait := r.backoff * time.Duration(1<<(attempt-1))
			r.log.Warn().Err(lastErr).
				Str("provider", r.next.Name()).
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Msgf("retrying %s fetch", what)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				var zero T
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, lastErr = fetch(ctx, symbol)
		if lastErr == nil || !IsRetryable(lastErr) {
			return v, lastErr
		}
	}
	return v, lastErr
}
