package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/shopspring/decimal"
)

// SF1 dimensions stored in financial_metrics.
const (
	dimensionQuarterly = "ARQ"
	dimensionAnnual    = "ARY"
)

var million = decimal.NewFromInt(1_000_000)

// querier is the part of *pgxpool.Pool the repository uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository serves warehouse rows as a market.Provider. It never writes.
type Repository struct {
	db  querier
	now func() time.Time
}

var _ market.Provider = (*Repository)(nil)

// NewRepository creates a new repository over a pgx pool (or any querier).
func NewRepository(db querier) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Name() string { return "warehouse" }

// FetchProfile reads the company row and its most recent market cap.
func (r *Repository) FetchProfile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	var (
		p         models.CompanyProfile
		marketCap decimal.NullDecimal
		found     bool
	)
	rows, err := r.db.Query(ctx, `
		SELECT c.ticker, c.name, COALESCE(c.sector, ''), COALESCE(c.industry, ''), COALESCE(c.currency, ''),
			(SELECT p.market_cap FROM daily_prices p
			 WHERE p.ticker = c.ticker AND p.market_cap IS NOT NULL
			 ORDER BY p.date DESC LIMIT 1)
		FROM companies c
		WHERE c.ticker = $1
	`, symbol)
	if err != nil {
		return p, classify("querying company", err)
	}
	_, err = pgx.ForEachRow(rows, []any{&p.Symbol, &p.Name, &p.Sector, &p.Industry, &p.Currency, &marketCap}, func() error {
		found = true
		return nil
	})
	if err != nil {
		return p, classify("reading company", err)
	}
	if !found {
		return p, fmt.Errorf("no company %s: %w", symbol, market.ErrDataUnavailable)
	}
	if marketCap.Valid {
		p.MarketCap = marketCap.Decimal.Mul(million).IntPart()
	}
	return p, nil
}

// FetchPriceHistory reads one year of daily prices and folds them into weekly bars.
func (r *Repository) FetchPriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error) {
	from := r.now().AddDate(-1, 0, 0)
	rows, err := r.db.Query(ctx, `
		SELECT date, open, high, low, close, COALESCE(volume, 0)
		FROM daily_prices
		WHERE ticker = $1 AND date >= $2
			AND open IS NOT NULL AND high IS NOT NULL AND low IS NOT NULL AND close IS NOT NULL
		ORDER BY date
	`, symbol, from)
	if err != nil {
		return models.PriceHistory{}, classify("querying daily prices", err)
	}

	var (
		daily      []models.PriceBar
		day        time.Time
		o, h, l, c decimal.Decimal
		volume     int64
	)
	_, err = pgx.ForEachRow(rows, []any{&day, &o, &h, &l, &c, &volume}, func() error {
		daily = append(daily, models.PriceBar{
			Date:   day,
			Open:   o.InexactFloat64(),
			High:   h.InexactFloat64(),
			Low:    l.InexactFloat64(),
			Close:  c.InexactFloat64(),
			Volume: volume,
		})
		return nil
	})
	if err != nil {
		return models.PriceHistory{}, classify("reading daily prices", err)
	}
	if len(daily) == 0 {
		return models.PriceHistory{}, fmt.Errorf("no prices for %s: %w", symbol, market.ErrDataUnavailable)
	}
	return models.PriceHistory{Symbol: symbol, Bars: market.AggregateWeekly(daily)}, nil
}

func (r *Repository) FetchQuarterlyFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return r.fetchStatement(ctx, symbol, models.Quarterly)
}

func (r *Repository) FetchAnnualFinancials(ctx context.Context, symbol string) (models.FinancialStatement, error) {
	return r.fetchStatement(ctx, symbol, models.Annual)
}

// fetchStatement reads one row per report period; restatements resolve to the
// latest date_key.
func (r *Repository) fetchStatement(ctx context.Context, symbol string, g models.Granularity) (models.FinancialStatement, error) {
	dimension := dimensionQuarterly
	if g == models.Annual {
		dimension = dimensionAnnual
	}

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (report_period) report_period, revenue, net_income
		FROM financial_metrics
		WHERE ticker = $1 AND dimension = $2
		ORDER BY report_period, date_key DESC
	`, symbol, dimension)
	if err != nil {
		return models.FinancialStatement{}, classify("querying financial metrics", err)
	}

	var (
		out                []models.FinancialRow
		period             time.Time
		revenue, netIncome decimal.NullDecimal
	)
	_, err = pgx.ForEachRow(rows, []any{&period, &revenue, &netIncome}, func() error {
		out = append(out, models.FinancialRow{
			Period:       period,
			TotalRevenue: nullFloat(revenue),
			NetIncome:    nullFloat(netIncome),
		})
		return nil
	})
	if err != nil {
		return models.FinancialStatement{}, classify("reading financial metrics", err)
	}
	if len(out) == 0 {
		return models.FinancialStatement{}, fmt.Errorf("no %s financials for %s: %w", g, symbol, market.ErrDataUnavailable)
	}
	return models.FinancialStatement{Symbol: symbol, Granularity: g, Rows: out}, nil
}

func nullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	return models.Float(d.Decimal.InexactFloat64())
}

// classify maps database errors onto the market error classes. Connection
// and server failures count as transient.
func classify(msg string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", msg, market.ErrDataUnavailable)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", msg, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		// undefined_table: the warehouse has not been migrated.
		return fmt.Errorf("%s: %s", msg, pgErr.Message)
	}
	return fmt.Errorf("%s: %v: %w", msg, err, market.ErrTransientFetch)
}
