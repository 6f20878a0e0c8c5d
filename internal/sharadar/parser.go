package sharadar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var timeFormats = []string{
	time.DateOnly,
	"2006-01-02T15:04:05.000Z",
	time.DateTime,
}

// columns addresses the cells of a column-oriented datatable by name.
type columns map[string]int

func indexColumns(cols []Column) columns {
	idx := make(columns, len(cols))
	for i, col := range cols {
		idx[col.Name] = i
	}
	return idx
}

// cell returns the raw value of col in row, or nil when absent.
func (c columns) cell(row []interface{}, col string) interface{} {
	i, ok := c[col]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

func (c columns) str(row []interface{}, col string) string {
	switch v := c.cell(row, col).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// flag reads Sharadar's Y/N style booleans.
func (c columns) flag(row []interface{}, col string) bool {
	switch v := c.cell(row, col).(type) {
	case bool:
		return v
	case string:
		return v == "Y" || v == "true" || v == "1"
	case float64:
		return v != 0
	}
	return false
}

// dec parses a numeric cell; nil means the value is missing or unparseable.
func (c columns) dec(row []interface{}, col string) *decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := c.cell(row, col).(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case string:
		if d, err = decimal.NewFromString(v); err != nil {
			return nil
		}
	default:
		return nil
	}
	return &d
}

func (c columns) integer(row []interface{}, col string) *int64 {
	var n int64
	switch v := c.cell(row, col).(type) {
	case float64:
		n = int64(v)
	case int64:
		n = v
	case int:
		n = int64(v)
	default:
		return nil
	}
	return &n
}

func (c columns) date(row []interface{}, col string) *time.Time {
	s, ok := c.cell(row, col).(string)
	if !ok || s == "" {
		return nil
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseTickers parses a SHARADAR/TICKERS response into typed rows.
func ParseTickers(resp *Response) []TickerRow {
	cols := indexColumns(resp.Datatable.Columns)
	rows := make([]TickerRow, 0, len(resp.Datatable.Data))

	for _, row := range resp.Datatable.Data {
		tr := TickerRow{
			Ticker:     cols.str(row, "ticker"),
			Name:       cols.str(row, "name"),
			Sector:     cols.str(row, "sector"),
			Industry:   cols.str(row, "industry"),
			Currency:   cols.str(row, "currency"),
			IsDelisted: cols.flag(row, "isdelisted"),
		}
		if tr.Ticker != "" {
			rows = append(rows, tr)
		}
	}
	return rows
}

// ParseSF1 parses a SHARADAR/SF1 response into typed rows.
// Rows without a datekey are dropped.
func ParseSF1(resp *Response) []SF1Row {
	cols := indexColumns(resp.Datatable.Columns)
	rows := make([]SF1Row, 0, len(resp.Datatable.Data))

	for _, row := range resp.Datatable.Data {
		dateKey := cols.date(row, "datekey")
		if dateKey == nil {
			continue
		}
		calendarDate := cols.date(row, "calendardate")
		if calendarDate == nil {
			calendarDate = dateKey
		}

		sr := SF1Row{
			Ticker:       cols.str(row, "ticker"),
			Dimension:    cols.str(row, "dimension"),
			CalendarDate: *calendarDate,
			DateKey:      *dateKey,
			ReportPeriod: cols.date(row, "reportperiod"),
			Revenue:      cols.dec(row, "revenue"),
			NetIncome:    cols.dec(row, "netinc"),
		}
		if sr.Ticker != "" {
			rows = append(rows, sr)
		}
	}
	return rows
}

// ParseDaily parses a SHARADAR/DAILY response into typed rows.
func ParseDaily(resp *Response) []DailyRow {
	cols := indexColumns(resp.Datatable.Columns)
	rows := make([]DailyRow, 0, len(resp.Datatable.Data))

	for _, row := range resp.Datatable.Data {
		date := cols.date(row, "date")
		if date == nil {
			continue
		}

		dr := DailyRow{
			Ticker:    cols.str(row, "ticker"),
			Date:      *date,
			Open:      cols.dec(row, "open"),
			High:      cols.dec(row, "high"),
			Low:       cols.dec(row, "low"),
			Close:     cols.dec(row, "close"),
			Volume:    cols.integer(row, "volume"),
			MarketCap: cols.dec(row, "marketcap"),
		}
		if dr.Ticker != "" {
			rows = append(rows, dr)
		}
	}
	return rows
}
