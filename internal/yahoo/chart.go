package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/tidwall/gjson"
)

// FetchPriceHistory returns one year of weekly bars from the v8 chart endpoint.
func (c *Client) FetchPriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error) {
	q := url.Values{}
	q.Set("interval", "1wk")
	q.Set("range", "1y")
	q.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.cfg.BaseURL, escape(symbol), q.Encode())

	doc, err := c.getJSON(ctx, endpoint, "chart")
	if err != nil {
		return models.PriceHistory{}, fmt.Errorf("fetching chart for %s: %w", symbol, err)
	}

	bars := parseChart(doc.Get("chart.result.0"))
	if len(bars) == 0 {
		return models.PriceHistory{}, fmt.Errorf("no price data for %s: %w", symbol, market.ErrDataUnavailable)
	}
	c.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched weekly chart")
	return models.PriceHistory{Symbol: symbol, Bars: bars}, nil
}

// parseChart turns the column arrays of a chart result into bars. Bars with a
// null price are skipped. Yahoo appends the live quote as an extra row inside
// the current week; rows sharing an ISO week merge into one bar keyed by the
// earlier date, with the later row's close and volume.
func parseChart(result gjson.Result) []models.PriceBar {
	offset := result.Get("meta.gmtoffset").Int()
	stamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]models.PriceBar, 0, len(stamps))
	for i, ts := range stamps {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		if isNull(opens[i]) || isNull(highs[i]) || isNull(lows[i]) || isNull(closes[i]) {
			continue
		}
		var volume int64
		if i < len(volumes) && !isNull(volumes[i]) {
			volume = volumes[i].Int()
		}
		bars = append(bars, models.PriceBar{
			Date:   tradingDay(ts.Int(), offset),
			Open:   opens[i].Float(),
			High:   highs[i].Float(),
			Low:    lows[i].Float(),
			Close:  closes[i].Float(),
			Volume: volume,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && sameWeek(out[n-1].Date, b.Date) {
			week := &out[n-1]
			week.High = max(week.High, b.High)
			week.Low = min(week.Low, b.Low)
			week.Close = b.Close
			week.Volume = b.Volume
			continue
		}
		out = append(out, b)
	}
	return out
}

func sameWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

func isNull(r gjson.Result) bool {
	return r.Type == gjson.Null
}

// tradingDay converts a unix timestamp to midnight UTC of the exchange-local day.
func tradingDay(ts, gmtOffset int64) time.Time {
	t := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
