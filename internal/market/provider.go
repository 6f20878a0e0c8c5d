// Package market defines the remote data contract shared by every market-data
// source, its error classes, and helpers the sources have in common.
package market

import (
	"context"
	"errors"

	"github.com/mauv0809/stockboard/internal/models"
)

var (
	// ErrDataUnavailable means the provider has no data for the symbol
	// (unknown or delisted ticker). Retrying will not help.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrTransientFetch covers network failures, timeouts, throttling and
	// upstream 5xx responses. The caller may retry.
	ErrTransientFetch = errors.New("transient fetch error")
)

// Provider is a thin pass-through to an external market-data source.
// Implementations perform no caching and no shaping.
type Provider interface {
	Name() string
	FetchProfile(ctx context.Context, symbol string) (models.CompanyProfile, error)
	FetchPriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error)
	FetchQuarterlyFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error)
	FetchAnnualFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error)
}

// IsRetryable reports whether err is a transient fetch failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}

// IsUnavailable reports whether err means the symbol has no data.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrDataUnavailable)
}
