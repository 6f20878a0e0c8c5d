package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/tidwall/gjson"
)

// timeseriesStart is the earliest period1 the timeseries endpoint accepts.
const timeseriesStart = 493590046

func (c *Client) FetchQuarterlyFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return c.fetchStatement(ctx, symbol, models.Quarterly)
}

func (c *Client) FetchAnnualFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return c.fetchStatement(ctx, symbol, models.Annual)
}

func (c *Client) fetchStatement(ctx context.Context, symbol string, g models.Granularity) (models.FinancialStatement, error) {
	prefix := "quarterly"
	if g == models.Annual {
		prefix = "annual"
	}
	revenueKey, incomeKey := prefix+"TotalRevenue", prefix+"NetIncome"

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", strings.Join([]string{revenueKey, incomeKey}, ","))
	q.Set("period1", strconv.Itoa(timeseriesStart))
	q.Set("period2", strconv.FormatInt(c.now().Unix(), 10))
	endpoint := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?%s",
		c.cfg.BaseURL, escape(symbol), q.Encode())

	doc, err := c.getJSON(ctx, endpoint, "timeseries")
	if err != nil {
		return models.FinancialStatement{}, fmt.Errorf("fetching %s financials for %s: %w", g, symbol, err)
	}

	rows := parseTimeseries(doc.Get("timeseries.result"), revenueKey, incomeKey)
	if len(rows) == 0 {
		return models.FinancialStatement{}, fmt.Errorf("no %s financials for %s: %w", g, symbol, market.ErrDataUnavailable)
	}
	return models.FinancialStatement{Symbol: symbol, Granularity: g, Rows: rows}, nil
}

// parseTimeseries merges the revenue and net income series by asOfDate.
// A period reported by only one series keeps a nil for the other.
func parseTimeseries(results gjson.Result, revenueKey, incomeKey string) []models.FinancialRow {
	byPeriod := make(map[time.Time]*models.FinancialRow)
	collect := func(entries gjson.Result, set func(*models.FinancialRow, float64)) {
		entries.ForEach(func(_, entry gjson.Result) bool {
			raw := entry.Get("reportedValue.raw")
			day, err := time.Parse(time.DateOnly, entry.Get("asOfDate").String())
			if !raw.Exists() || err != nil {
				return true
			}
			row, ok := byPeriod[day]
			if !ok {
				row = &models.FinancialRow{Period: day}
				byPeriod[day] = row
			}
			set(row, raw.Float())
			return true
		})
	}

	results.ForEach(func(_, result gjson.Result) bool {
		switch result.Get("meta.type.0").String() {
		case revenueKey:
			collect(result.Get(revenueKey), func(r *models.FinancialRow, v float64) { r.TotalRevenue = models.Float(v) })
		case incomeKey:
			collect(result.Get(incomeKey), func(r *models.FinancialRow, v float64) { r.NetIncome = models.Float(v) })
		}
		return true
	})

	rows := make([]models.FinancialRow, 0, len(byPeriod))
	for _, row := range byPeriod {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Period.Before(rows[j].Period) })
	return rows
}
