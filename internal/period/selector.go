// Package period holds the quarterly/annual toggle that drives the financial charts.
package period

import (
	"context"

	"github.com/mauv0809/stockboard/internal/models"
	"github.com/mauv0809/stockboard/internal/series"
)

// FinancialSource fetches a statement of the requested granularity.
// cache.Fetchers implements it.
type FinancialSource interface {
	Financials(ctx context.Context, symbol string, g models.Granularity) (models.FinancialStatement, error)
}

// Selector is a two-state machine, Quarterly or Annual, starting at Quarterly.
// Only the active state's statement is fetched and shaped on Render.
type Selector struct {
	state  models.Granularity
	source FinancialSource
}

func NewSelector(source FinancialSource) *Selector {
	return &Selector{state: models.Quarterly, source: source}
}

// State returns the active granularity.
func (s *Selector) State() models.Granularity {
	return s.state
}

// Select switches to the granularity named by a control value.
// An unknown value leaves the state unchanged.
func (s *Selector) Select(control string) error {
	g, err := models.ParseGranularity(control)
	if err != nil {
		return err
	}
	s.state = g
	return nil
}

// Set switches to g.
func (s *Selector) Set(g models.Granularity) {
	s.state = g
}

// Render fetches the active statement for symbol and shapes it.
func (s *Selector) Render(ctx context.Context, symbol string) (series.FinancialSeries, error) {
	stmt, err := s.source.Financials(ctx, symbol, s.state)
	if err != nil {
		return series.FinancialSeries{}, err
	}
	return series.ShapeFinancials(stmt)
}
