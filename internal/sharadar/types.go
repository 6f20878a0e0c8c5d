package sharadar

import (
	"time"

	"github.com/shopspring/decimal"
)

// Response is the raw API response from Nasdaq Data Link Tables API.
// The data is column-oriented: columns define the schema, data contains rows as arrays.
type Response struct {
	Datatable struct {
		Data    [][]interface{} `json:"data"`
		Columns []Column        `json:"columns"`
	} `json:"datatable"`
	Meta struct {
		NextCursorID *string `json:"next_cursor_id"`
	} `json:"meta"`
}

// Column describes a column in the response.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TickerRow represents a row from SHARADAR/TICKERS table.
type TickerRow struct {
	Ticker     string
	Name       string
	Sector     string
	Industry   string
	Currency   string
	IsDelisted bool
}

// SF1Row represents a row from SHARADAR/SF1 table (fundamentals).
// Only the income statement fields the dashboard charts are kept.
type SF1Row struct {
	Ticker       string
	Dimension    string
	CalendarDate time.Time
	DateKey      time.Time
	ReportPeriod *time.Time

	Revenue   *decimal.Decimal
	NetIncome *decimal.Decimal
}

// Period is the period-end date of the row: reportperiod when present,
// calendardate otherwise.
func (r SF1Row) Period() time.Time {
	if r.ReportPeriod != nil {
		return *r.ReportPeriod
	}
	return r.CalendarDate
}

// DailyRow represents a row from SHARADAR/SEP (prices) or SHARADAR/DAILY
// (metrics). Fields the table does not carry stay nil.
type DailyRow struct {
	Ticker    string
	Date      time.Time
	Open      *decimal.Decimal
	High      *decimal.Decimal
	Low       *decimal.Decimal
	Close     *decimal.Decimal
	Volume    *int64
	MarketCap *decimal.Decimal // millions of USD
}

// SF1 dimensions used by the dashboard.
const (
	DimensionQuarterly = "ARQ" // as reported, quarterly
	DimensionAnnual    = "ARY" // as reported, annual
)
