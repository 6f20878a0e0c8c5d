// Package markettest provides an in-memory market.Provider for tests.
package markettest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
)

// Fake serves canned data per symbol and counts calls per operation.
// Symbols with no canned data fail with market.ErrDataUnavailable.
type Fake struct {
	Profiles  map[string]models.CompanyProfile
	Prices    map[string]models.PriceHistory
	Quarterly map[string]models.FinancialStatement
	Annual    map[string]models.FinancialStatement

	// Errs forces an error for a symbol on every operation.
	Errs map[string]error

	mtx   sync.Mutex
	calls map[string]int
}

var _ market.Provider = (*Fake)(nil)

// NewFake returns an empty fake.
func NewFake() *Fake {
	return &Fake{
		Profiles:  make(map[string]models.CompanyProfile),
		Prices:    make(map[string]models.PriceHistory),
		Quarterly: make(map[string]models.FinancialStatement),
		Annual:    make(map[string]models.FinancialStatement),
		Errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *Fake) Name() string { return "fake" }

// Calls returns how many times op was invoked for symbol.
func (f *Fake) Calls(op, symbol string) int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.calls[op+":"+symbol]
}

// TotalCalls returns the number of provider calls across all operations.
func (f *Fake) TotalCalls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Fake) record(op, symbol string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op+":"+symbol]++
	return f.Errs[symbol]
}

func unavailable(symbol string) error {
	return fmt.Errorf("fake: %s: %w", symbol, market.ErrDataUnavailable)
}

func (f *Fake) FetchProfile(_ context.Context, symbol string) (models.CompanyProfile, error) {
	if err := f.record("profile", symbol); err != nil {
		return models.CompanyProfile{}, err
	}
	p, ok := f.Profiles[symbol]
	if !ok {
		return models.CompanyProfile{}, unavailable(symbol)
	}
	return p, nil
}

func (f *Fake) FetchPriceHistory(_ context.Context, symbol string) (models.PriceHistory, error) {
	if err := f.record("price_history", symbol); err != nil {
		return models.PriceHistory{}, err
	}
	h, ok := f.Prices[symbol]
	if !ok {
		return models.PriceHistory{}, unavailable(symbol)
	}
	return h, nil
}

func (f *Fake) FetchQuarterlyFinancials(_ context.Context, symbol string) (models.FinancialStatement, error) {
	if err := f.record("quarterly_financials", symbol); err != nil {
		return models.FinancialStatement{}, err
	}
	s, ok := f.Quarterly[symbol]
	if !ok {
		return models.FinancialStatement{}, unavailable(symbol)
	}
	return s, nil
}

func (f *Fake) FetchAnnualFinancials(_ context.Context, symbol string) (models.FinancialStatement, error) {
	if err := f.record("annual_financials", symbol); err != nil {
		return models.FinancialStatement{}, err
	}
	s, ok := f.Annual[symbol]
	if !ok {
		return models.FinancialStatement{}, unavailable(symbol)
	}
	return s, nil
}
