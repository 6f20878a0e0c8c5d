package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mauv0809/stockboard/internal/cache"
	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/market/markettest"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func seed(fake *markettest.Fake, sym string) {
	fake.Profiles[sym] = models.CompanyProfile{Symbol: sym, Name: sym + " Corp", MarketCap: 3000000, Sector: "Technology"}
	fake.Prices[sym] = models.PriceHistory{Symbol: sym, Bars: []models.PriceBar{
		{Date: d(2024, 9, 2), Open: 1, High: 2, Low: 1, Close: 2, Volume: 10},
		{Date: d(2024, 9, 9), Open: 2, High: 3, Low: 2, Close: 3, Volume: 20},
	}}
	fake.Quarterly[sym] = models.FinancialStatement{Symbol: sym, Granularity: models.Quarterly, Rows: []models.FinancialRow{
		{Period: d(2024, 6, 30), TotalRevenue: models.Float(95), NetIncome: models.Float(9)},
		{Period: d(2024, 9, 30), TotalRevenue: models.Float(120)},
	}}
	fake.Annual[sym] = models.FinancialStatement{Symbol: sym, Granularity: models.Annual, Rows: []models.FinancialRow{
		{Period: d(2023, 9, 30), TotalRevenue: models.Float(400), NetIncome: models.Float(40)},
	}}
}

func newDashboard(t *testing.T, fake *markettest.Fake, v Variant) *Dashboard {
	t.Helper()
	db, err := New(v, cache.NewFetchers(fake, cache.NewStore()), zerolog.Nop())
	assert.NoError(t, err)
	return db
}

func TestRenderFullView(t *testing.T) {
	fake := markettest.NewFake()
	seed(fake, "AAPL")
	db := newDashboard(t, fake, Variant{Name: "default", Title: "Stock Market Dashboard", Symbols: []string{"aapl", "MSFT", "AAPL"}, ShowVolume: true})

	view, err := db.Render(context.Background(), "aapl", "")
	assert.NoError(t, err)
	assert.Equal(t, "AAPL", view.Symbol)
	assert.Equal(t, 2, len(view.Symbols))
	assert.Equal(t, models.Quarterly, view.Period)
	assert.Equal(t, ChartPlotly, view.ChartLibrary)
	assert.Equal(t, 0, len(view.Notices))

	assert.Equal(t, "AAPL Corp", view.Header.Name)
	assert.Equal(t, "$ 3,000,000", view.Header.MarketCap)
	assert.Equal(t, 2, len(view.Prices.Candles))
	assert.Equal(t, 2, len(view.Prices.Volume))
	assert.Equal(t, 2, len(view.Revenue))
	assert.Equal(t, "2024-09-30", view.Revenue[1].Label)
	assert.True(t, view.NetIncome[1].Value == nil)

	// Ensure the fetch sequence touched only the active period.
	assert.Equal(t, 1, fake.Calls("profile", "AAPL"))
	assert.Equal(t, 1, fake.Calls("price_history", "AAPL"))
	assert.Equal(t, 1, fake.Calls("quarterly_financials", "AAPL"))
	assert.Equal(t, 0, fake.Calls("annual_financials", "AAPL"))
}

func TestRenderAnnualWithoutVolume(t *testing.T) {
	fake := markettest.NewFake()
	seed(fake, "NVDA")
	db := newDashboard(t, fake, Variant{Name: "compact", Symbols: []string{"NVDA"}, ChartLibrary: ChartVegaLite, DefaultPeriod: "Anual"})

	view, err := db.Render(context.Background(), "NVDA", "")
	assert.NoError(t, err)
	assert.Equal(t, models.Annual, view.Period)
	assert.Equal(t, "2023", view.Revenue[0].Label)
	assert.True(t, view.Prices.Volume == nil)
	assert.Equal(t, ChartVegaLite, view.ChartLibrary)

	// Ensure an explicit control value overrides the default.
	view, err = db.Render(context.Background(), "NVDA", "quarterly")
	assert.NoError(t, err)
	assert.Equal(t, models.Quarterly, view.Period)
}

func TestRenderRejects(t *testing.T) {
	fake := markettest.NewFake()
	seed(fake, "AAPL")
	db := newDashboard(t, fake, Variant{Name: "default", Symbols: []string{"AAPL"}})

	_, err := db.Render(context.Background(), "GME", "")
	assert.True(t, errors.Is(err, ErrUnknownSymbol))

	_, err = db.Render(context.Background(), "AAPL", "monthly")
	assert.True(t, errors.Is(err, models.ErrInvalidGranularity))
	assert.Equal(t, 0, fake.TotalCalls())
}

func TestRenderUnavailableSymbol(t *testing.T) {
	fake := markettest.NewFake()
	db := newDashboard(t, fake, Variant{Name: "default", Symbols: []string{"Z"}})

	view, err := db.Render(context.Background(), "Z", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(view.Notices))
	assert.Equal(t, NoticeUnavailable, view.Notices[0].Kind)
	assert.Equal(t, "no data for this symbol", view.Notices[0].Message)
	assert.True(t, view.Profile == nil)

	// Ensure later sections were skipped and nothing was cached.
	assert.Equal(t, 0, fake.Calls("price_history", "Z"))
	_, err = db.Render(context.Background(), "Z", "")
	assert.NoError(t, err)
	assert.Equal(t, 2, fake.Calls("profile", "Z"))
}

func TestRenderScopesFailures(t *testing.T) {
	fake := markettest.NewFake()
	seed(fake, "TSLA")
	fake.Quarterly["TSLA"] = models.FinancialStatement{Symbol: "TSLA", Granularity: models.Quarterly}
	fake.Prices["TSLA"] = models.PriceHistory{Symbol: "TSLA"}
	db := newDashboard(t, fake, Variant{Name: "default", Symbols: []string{"TSLA"}, ShowVolume: true})

	view, err := db.Render(context.Background(), "TSLA", "")
	assert.NoError(t, err)
	assert.NotNil(t, view.Header)
	assert.True(t, view.Prices == nil)
	assert.True(t, view.Financials == nil)
	assert.Equal(t, 2, len(view.Notices))
	assert.Equal(t, Notice{Section: SectionPrices, Kind: NoticeInsufficient, Message: "insufficient price data"}, view.Notices[0])
	assert.Equal(t, Notice{Section: SectionFinancials, Kind: NoticeInsufficient, Message: "insufficient financial data"}, view.Notices[1])
}

func TestRenderTransientBanner(t *testing.T) {
	fake := markettest.NewFake()
	seed(fake, "META")
	fake.Errs["META"] = fmt.Errorf("timeout: %w", market.ErrTransientFetch)
	db := newDashboard(t, fake, Variant{Name: "default", Symbols: []string{"META"}})

	view, err := db.Render(context.Background(), "META", "")
	assert.NoError(t, err)
	assert.Equal(t, 3, len(view.Notices))
	for _, n := range view.Notices {
		assert.Equal(t, NoticeTransient, n.Kind)
	}

	// Ensure the dashboard recovers once the provider does.
	delete(fake.Errs, "META")
	view, err = db.Render(context.Background(), "META", "")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(view.Notices))
}

func TestRenderCancelled(t *testing.T) {
	fake := markettest.NewFake()
	fake.Errs["AAPL"] = context.Canceled
	db := newDashboard(t, fake, Variant{Name: "default", Symbols: []string{"AAPL"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.Render(ctx, "AAPL", "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSet(t *testing.T) {
	fake := markettest.NewFake()
	src := cache.NewFetchers(fake, cache.NewStore())
	set, err := NewSet([]Variant{
		{Name: "default", Symbols: []string{"AAPL", "MSFT"}},
		{Name: "mega", Symbols: []string{"MSFT", "NVDA"}},
	}, src, zerolog.Nop())
	assert.NoError(t, err)
	assert.Equal(t, "default", set.Default().Variant().Name)
	assert.Equal(t, 3, len(set.Symbols()))
	assert.Equal(t, 2, len(set.Variants()))

	mega, err := set.Get("mega")
	assert.NoError(t, err)
	assert.True(t, mega.Allows("nvda"))
	assert.False(t, mega.Allows("AAPL"))
	assert.Equal(t, "MSFT", mega.DefaultSymbol())

	_, err = set.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownVariant))

	_, err = NewSet([]Variant{{Name: "a", Symbols: []string{"X"}}, {Name: "a", Symbols: []string{"Y"}}}, src, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewSet(nil, src, zerolog.Nop())
	assert.Error(t, err)
}

func TestFormatMarketCap(t *testing.T) {
	assert.Equal(t, "$ 3,512,000,000,000", FormatMarketCap(3512000000000))
	assert.Equal(t, "$ 0", FormatMarketCap(0))
}

func TestNewRejectsBlankAllowList(t *testing.T) {
	src := cache.NewFetchers(markettest.NewFake(), cache.NewStore())
	for _, symbols := range [][]string{nil, {}, {" ", ""}, {"\t"}} {
		_, err := New(Variant{Name: "blank", Symbols: symbols}, src, zerolog.Nop())
		assert.Error(t, err)
	}

	db, err := New(Variant{Name: "padded", Symbols: []string{" ", " msft ", "MSFT"}}, src, zerolog.Nop())
	assert.NoError(t, err)
	assert.Equal(t, "MSFT", db.DefaultSymbol())
	assert.Equal(t, []string{"MSFT"}, db.Variant().Symbols)
}
