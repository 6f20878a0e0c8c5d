// Package series turns fetched price histories and financial statements into
// the exact sequences the dashboard charts consume.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mauv0809/stockboard/internal/models"
)

// ErrShaping means the input cannot be turned into a chart series,
// e.g. a statement with zero periods.
var ErrShaping = errors.New("shaping error")

// Candle is the price part of one bar.
type Candle struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// VolumePoint is the volume part of one bar.
type VolumePoint struct {
	Date   time.Time `json:"date"`
	Volume int64     `json:"volume"`
}

// PriceSeries holds two sequences on the same date axis, row for row.
type PriceSeries struct {
	Candles []Candle      `json:"candles"`
	Volume  []VolumePoint `json:"volume,omitempty"`
}

// ShapePrices splits a price history into candle and volume series.
// Order is preserved and no resampling happens here.
func ShapePrices(h models.PriceHistory) (PriceSeries, error) {
	if len(h.Bars) == 0 {
		return PriceSeries{}, fmt.Errorf("%w: no price bars for %s", ErrShaping, h.Symbol)
	}
	if err := h.Validate(); err != nil {
		return PriceSeries{}, fmt.Errorf("%w: %s: %v", ErrShaping, h.Symbol, err)
	}

	ps := PriceSeries{
		Candles: make([]Candle, len(h.Bars)),
		Volume:  make([]VolumePoint, len(h.Bars)),
	}
	for i, bar := range h.Bars {
		ps.Candles[i] = Candle{Date: bar.Date, Open: bar.Open, High: bar.High, Low: bar.Low, Close: bar.Close}
		ps.Volume[i] = VolumePoint{Date: bar.Date, Volume: bar.Volume}
	}
	return ps, nil
}

// FinancialPoint is one (label, revenue, net income) triple.
// Absent values stay nil; renderers decide whether to skip or zero-fill.
type FinancialPoint struct {
	Label        string    `json:"label"`
	Period       time.Time `json:"period"`
	TotalRevenue *float64  `json:"total_revenue"`
	NetIncome    *float64  `json:"net_income"`
}

// FinancialSeries is a statement reshaped for bar charts.
type FinancialSeries struct {
	Granularity models.Granularity `json:"granularity"`
	Points      []FinancialPoint   `json:"points"`
}

// Point is a bar-chart-ready (label, value) pair.
type Point struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// Revenue returns the revenue-by-period series.
func (fs FinancialSeries) Revenue() []Point {
	out := make([]Point, len(fs.Points))
	for i, p := range fs.Points {
		out[i] = Point{Label: p.Label, Value: p.TotalRevenue}
	}
	return out
}

// NetIncome returns the net-income-by-period series.
func (fs FinancialSeries) NetIncome() []Point {
	out := make([]Point, len(fs.Points))
	for i, p := range fs.Points {
		out[i] = Point{Label: p.Label, Value: p.NetIncome}
	}
	return out
}

// ShapeFinancials labels every row of stmt and orders them ascending by
// period. Rows with missing values are kept. The statement is not modified.
func ShapeFinancials(stmt models.FinancialStatement) (FinancialSeries, error) {
	if len(stmt.Rows) == 0 {
		return FinancialSeries{}, fmt.Errorf("%w: %s %s statement has no periods", ErrShaping, stmt.Symbol, stmt.Granularity)
	}

	rows := make([]models.FinancialRow, len(stmt.Rows))
	copy(rows, stmt.Rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period.Before(rows[j].Period) })

	fs := FinancialSeries{
		Granularity: stmt.Granularity,
		Points:      make([]FinancialPoint, len(rows)),
	}
	for i, row := range rows {
		label, err := PeriodLabel(FormatPeriod(row.Period), stmt.Granularity)
		if err != nil {
			return FinancialSeries{}, fmt.Errorf("labelling %s: %w", row.Period.Format(time.DateOnly), err)
		}
		fs.Points[i] = FinancialPoint{
			Label:        label,
			Period:       row.Period,
			TotalRevenue: row.TotalRevenue,
			NetIncome:    row.NetIncome,
		}
	}
	return fs, nil
}
