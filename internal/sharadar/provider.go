package sharadar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/shopspring/decimal"
)

// marketCapScale converts SHARADAR/DAILY market caps (millions) to currency units.
var marketCapScale = decimal.NewFromInt(1_000_000)

// Provider serves market.Provider from Sharadar tables.
type Provider struct {
	client *Client
	now    func() time.Time
}

var _ market.Provider = (*Provider)(nil)

func NewProvider(client *Client) *Provider {
	return &Provider{client: client, now: time.Now}
}

func (p *Provider) Name() string { return "sharadar" }

// FetchProfile combines the TICKERS row with the latest market cap from DAILY.
func (p *Provider) FetchProfile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	tickers, err := p.client.FetchTickers(ctx, []string{symbol})
	if err != nil {
		return models.CompanyProfile{}, err
	}
	var row *TickerRow
	for i := range tickers {
		if tickers[i].Ticker == symbol {
			row = &tickers[i]
			break
		}
	}
	if row == nil {
		return models.CompanyProfile{}, fmt.Errorf("sharadar: ticker %s: %w", symbol, market.ErrDataUnavailable)
	}
	if row.IsDelisted {
		return models.CompanyProfile{}, fmt.Errorf("sharadar: ticker %s is delisted: %w", symbol, market.ErrDataUnavailable)
	}

	profile := models.CompanyProfile{
		Symbol:   symbol,
		Name:     row.Name,
		Sector:   row.Sector,
		Industry: row.Industry,
		Currency: row.Currency,
	}

	// DAILY only supplies the market cap; a failed lookup leaves it zero.
	daily, err := p.client.FetchDaily(ctx, []string{symbol}, p.now().AddDate(0, 0, -14))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.CompanyProfile{}, ctxErr
		}
		p.client.log.Warn().Err(err).Str("symbol", symbol).Msg("market cap lookup failed")
		return profile, nil
	}
	if mc := latestMarketCap(daily); mc != nil {
		profile.MarketCap = mc.Mul(marketCapScale).IntPart()
	}
	return profile, nil
}

func latestMarketCap(rows []DailyRow) *decimal.Decimal {
	var (
		latest time.Time
		mc     *decimal.Decimal
	)
	for _, r := range rows {
		if r.MarketCap != nil && !r.Date.Before(latest) {
			latest, mc = r.Date, r.MarketCap
		}
	}
	return mc
}

// FetchPriceHistory returns weekly bars for the trailing year, aggregated from SEP.
func (p *Provider) FetchPriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error) {
	rows, err := p.client.FetchPrices(ctx, []string{symbol}, p.now().AddDate(-1, 0, 0))
	if err != nil {
		return models.PriceHistory{}, err
	}

	daily := make([]models.PriceBar, 0, len(rows))
	for _, r := range rows {
		if r.Ticker != symbol || r.Open == nil || r.High == nil || r.Low == nil || r.Close == nil {
			continue
		}
		bar := models.PriceBar{
			Date:  r.Date,
			Open:  r.Open.InexactFloat64(),
			High:  r.High.InexactFloat64(),
			Low:   r.Low.InexactFloat64(),
			Close: r.Close.InexactFloat64(),
		}
		if r.Volume != nil && *r.Volume > 0 {
			bar.Volume = *r.Volume
		}
		daily = append(daily, bar)
	}
	if len(daily) == 0 {
		return models.PriceHistory{}, fmt.Errorf("sharadar: prices for %s: %w", symbol, market.ErrDataUnavailable)
	}

	return models.PriceHistory{Symbol: symbol, Bars: market.AggregateWeekly(daily)}, nil
}

func (p *Provider) FetchQuarterlyFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return p.fetchStatement(ctx, symbol, DimensionQuarterly, models.Quarterly)
}

func (p *Provider) FetchAnnualFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return p.fetchStatement(ctx, symbol, DimensionAnnual, models.Annual)
}

func (p *Provider) fetchStatement(ctx context.Context, symbol, dimension string, g models.Granularity) (models.FinancialStatement, error) {
	rows, err := p.client.FetchSF1(ctx, []string{symbol}, dimension)
	if err != nil {
		return models.FinancialStatement{}, err
	}

	// One row per period; a restated filing (later datekey) wins.
	byPeriod := make(map[time.Time]SF1Row, len(rows))
	for _, r := range rows {
		if r.Ticker != symbol || (r.Dimension != "" && r.Dimension != dimension) {
			continue
		}
		period := r.Period()
		if prev, ok := byPeriod[period]; ok && prev.DateKey.After(r.DateKey) {
			continue
		}
		byPeriod[period] = r
	}
	if len(byPeriod) == 0 {
		return models.FinancialStatement{}, fmt.Errorf("sharadar: %s fundamentals for %s: %w", dimension, symbol, market.ErrDataUnavailable)
	}

	stmt := models.FinancialStatement{Symbol: symbol, Granularity: g, Rows: make([]models.FinancialRow, 0, len(byPeriod))}
	for period, r := range byPeriod {
		stmt.Rows = append(stmt.Rows, models.FinancialRow{
			Period:       period,
			TotalRevenue: toFloat(r.Revenue),
			NetIncome:    toFloat(r.NetIncome),
		})
	}
	sort.Slice(stmt.Rows, func(i, j int) bool { return stmt.Rows[i].Period.Before(stmt.Rows[j].Period) })
	return stmt, nil
}

func toFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	return models.Float(d.InexactFloat64())
}
