package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidGranularity is returned when a period control value is not recognized.
var ErrInvalidGranularity = errors.New("invalid granularity")

// Granularity is the reporting cadence of a financial statement.
type Granularity int

const (
	Quarterly Granularity = iota
	Annual
)

func (g Granularity) String() string {
	switch g {
	case Quarterly:
		return "quarterly"
	case Annual:
		return "annual"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// MarshalText encodes the granularity as its lowercase name.
func (g Granularity) MarshalText() ([]byte, error) {
	if g != Quarterly && g != Annual {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGranularity, int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText accepts any value ParseGranularity accepts.
func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGranularity maps a period control value to a Granularity.
// Portuguese labels ("trimestral", "anual") are accepted as aliases.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quarterly", "quarter", "q", "trimestral":
		return Quarterly, nil
	case "annual", "yearly", "year", "a", "anual":
		return Annual, nil
	}
	return Quarterly, fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
}

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type CompanyProfile struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	MarketCap int64  `json:"market_cap"`
	Sector    string `json:"sector"`
	Industry  string `json:"industry,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// PriceBar is one weekly OHLCV row keyed by the week start.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceHistory holds weekly bars over a trailing one-year window, ascending by date.
type PriceHistory struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Validate checks that bar dates are strictly increasing and volumes are non-negative.
func (h PriceHistory) Validate() error {
	for i, bar := range h.Bars {
		if bar.Volume < 0 {
			return fmt.Errorf("bar %s: negative volume %d", bar.Date.Format(time.DateOnly), bar.Volume)
		}
		if i > 0 && !h.Bars[i-1].Date.Before(bar.Date) {
			return fmt.Errorf("bar %d: date %s does not follow %s", i,
				bar.Date.Format(time.DateOnly), h.Bars[i-1].Date.Format(time.DateOnly))
		}
	}
	return nil
}

// FinancialRow is one reporting period of an income statement.
// A nil field means the provider did not report it for that period.
type FinancialRow struct {
	Period       time.Time `json:"period"`
	TotalRevenue *float64  `json:"total_revenue"`
	NetIncome    *float64  `json:"net_income"`
}

type FinancialStatement struct {
	Symbol      string         `json:"symbol"`
	Granularity Granularity    `json:"granularity"`
	Rows        []FinancialRow `json:"rows"`
}

// Float returns a pointer to v, for building optional statement fields.
func Float(v float64) *float64 {
	return &v
}
