// Package dashboard composes the fetch and shaping pipeline into one view per
// render, scoping every failure to the section that produced it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/mauv0809/stockboard/internal/period"
	"github.com/mauv0809/stockboard/internal/series"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrUnknownSymbol is returned for symbols outside a variant's allow-list.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Chart libraries a variant can render with.
const (
	ChartPlotly   = "plotly"
	ChartVegaLite = "vega-lite"
)

// Variant is one configured dashboard. The differences between dashboards
// live here rather than in separate pipelines.
type Variant struct {
	Name          string   `yaml:"name" json:"name" validate:"required,alphanum"`
	Title         string   `yaml:"title" json:"title"`
	Symbols       []string `yaml:"symbols" json:"symbols" validate:"required,min=1,dive,required"`
	ShowVolume    bool     `yaml:"show_volume" json:"show_volume"`
	ChartLibrary  string   `yaml:"chart_library" json:"chart_library" validate:"omitempty,oneof=plotly vega-lite"`
	DefaultPeriod string   `yaml:"default_period" json:"default_period"`
}

// Source is the memoized data the dashboard reads. cache.Fetchers implements it.
type Source interface {
	period.FinancialSource
	Profile(ctx context.Context, symbol string) (models.CompanyProfile, error)
	PriceHistory(ctx context.Context, symbol string) (models.PriceHistory, error)
}

// NoticeKind classifies a section failure for display.
type NoticeKind string

const (
	NoticeUnavailable  NoticeKind = "unavailable"
	NoticeTransient    NoticeKind = "transient"
	NoticeInsufficient NoticeKind = "insufficient"
	NoticeFailed       NoticeKind = "failed"
)

// Dashboard sections.
const (
	SectionProfile    = "profile"
	SectionPrices     = "prices"
	SectionFinancials = "financials"
)

// Notice is a non-fatal, user-facing message for one section.
type Notice struct {
	Section string     `json:"section"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Header is the profile block shown above the charts.
type Header struct {
	Name      string `json:"name"`
	MarketCap string `json:"market_cap"`
	Sector    string `json:"sector"`
}

// View is everything the rendering layer needs for one symbol and period.
// A nil section means it failed and a matching notice explains why.
type View struct {
	Variant      string                  `json:"variant"`
	Title        string                  `json:"title"`
	Symbol       string                  `json:"symbol"`
	Symbols      []string                `json:"symbols"`
	Period       models.Granularity      `json:"period"`
	ShowVolume   bool                    `json:"show_volume"`
	ChartLibrary string                  `json:"chart_library"`
	Profile      *models.CompanyProfile  `json:"profile,omitempty"`
	Header       *Header                 `json:"header,omitempty"`
	Prices       *series.PriceSeries     `json:"prices,omitempty"`
	Financials   *series.FinancialSeries `json:"financials,omitempty"`
	Revenue      []series.Point          `json:"revenue,omitempty"`
	NetIncome    []series.Point          `json:"net_income,omitempty"`
	Notices      []Notice                `json:"notices"`
}

// Dashboard renders views for one variant.
type Dashboard struct {
	variant       Variant
	defaultPeriod models.Granularity
	allowed       map[string]bool
	source        Source
	log           zerolog.Logger
}

// New builds a dashboard for v backed by src.
func New(v Variant, src Source, log zerolog.Logger) (*Dashboard, error) {
	if v.ChartLibrary == "" {
		v.ChartLibrary = ChartPlotly
	}

	def := models.Quarterly
	if v.DefaultPeriod != "" {
		g, err := models.ParseGranularity(v.DefaultPeriod)
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", v.Name, err)
		}
		def = g
	}

	symbols := make([]string, 0, len(v.Symbols))
	allowed := make(map[string]bool, len(v.Symbols))
	for _, s := range v.Symbols {
		s = models.NormalizeSymbol(s)
		if s == "" || allowed[s] {
			continue
		}
		allowed[s] = true
		symbols = append(symbols, s)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("variant %q: empty symbol allow-list", v.Name)
	}
	v.Symbols = symbols

	return &Dashboard{
		variant:       v,
		defaultPeriod: def,
		allowed:       allowed,
		source:        src,
		log:           log.With().Str("variant", v.Name).Logger(),
	}, nil
}

// Variant returns the normalized variant configuration.
func (d *Dashboard) Variant() Variant {
	return d.variant
}

// DefaultSymbol is the first entry of the allow-list.
func (d *Dashboard) DefaultSymbol() string {
	return d.variant.Symbols[0]
}

// Allows reports whether symbol is on the allow-list.
func (d *Dashboard) Allows(symbol string) bool {
	return d.allowed[models.NormalizeSymbol(symbol)]
}

// Render builds the view for symbol. control is the period control value;
// empty selects the variant default. Fetches run in a fixed order: profile,
// price history, then financials for the active period.
//
// Only an unknown symbol, an invalid control value or a cancelled context are
// returned as errors. Section failures become notices on the view.
func (d *Dashboard) Render(ctx context.Context, symbol, control string) (*View, error) {
	symbol = models.NormalizeSymbol(symbol)
	if !d.allowed[symbol] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}

	selector := period.NewSelector(d.source)
	selector.Set(d.defaultPeriod)
	if strings.TrimSpace(control) != "" {
		if err := selector.Select(control); err != nil {
			return nil, err
		}
	}

	view := &View{
		Variant:      d.variant.Name,
		Title:        d.variant.Title,
		Symbol:       symbol,
		Symbols:      d.variant.Symbols,
		Period:       selector.State(),
		ShowVolume:   d.variant.ShowVolume,
		ChartLibrary: d.variant.ChartLibrary,
		Notices:      []Notice{},
	}

	profile, err := d.source.Profile(ctx, symbol)
	if err != nil {
		if stop, err := d.fail(ctx, view, SectionProfile, symbol, err); stop {
			return view, err
		}
	} else {
		view.Profile = &profile
		view.Header = &Header{
			Name:      profile.Name,
			MarketCap: FormatMarketCap(profile.MarketCap),
			Sector:    profile.Sector,
		}
	}

	history, err := d.source.PriceHistory(ctx, symbol)
	if err == nil {
		var prices series.PriceSeries
		prices, err = series.ShapePrices(history)
		if err == nil {
			if !d.variant.ShowVolume {
				prices.Volume = nil
			}
			view.Prices = &prices
		}
	}
	if err != nil {
		if stop, err := d.fail(ctx, view, SectionPrices, symbol, err); stop {
			return view, err
		}
	}

	fs, err := selector.Render(ctx, symbol)
	if err != nil {
		if _, err := d.fail(ctx, view, SectionFinancials, symbol, err); err != nil {
			return view, err
		}
		return view, nil
	}
	view.Financials = &fs
	view.Revenue = fs.Revenue()
	view.NetIncome = fs.NetIncome()

	return view, nil
}

// fail records a notice for a failed section. It reports whether rendering
// should stop, and returns an error only when the context is done.
func (d *Dashboard) fail(ctx context.Context, view *View, section, symbol string, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return true, ctxErr
	}

	d.log.Warn().Err(err).Str("section", section).Str("symbol", symbol).Msg("section failed")

	notice := Notice{Section: section}
	stop := false
	switch {
	case market.IsUnavailable(err):
		notice.Kind = NoticeUnavailable
		notice.Message = "no data for this symbol"
		// The provider does not know the symbol; the other sections would fail the same way.
		stop = true
	case market.IsRetryable(err):
		notice.Kind = NoticeTransient
		notice.Message = "data source temporarily unavailable, try again"
	case errors.Is(err, series.ErrShaping):
		notice.Kind = NoticeInsufficient
		if section == SectionPrices {
			notice.Message = "insufficient price data"
		} else {
			notice.Message = "insufficient financial data"
		}
	default:
		notice.Kind = NoticeFailed
		notice.Message = fmt.Sprintf("could not load %s", section)
	}
	view.Notices = append(view.Notices, notice)
	return stop, nil
}

var printer = message.NewPrinter(language.English)

// FormatMarketCap renders a market cap for the header, e.g. "$ 3,000,000".
func FormatMarketCap(v int64) string {
	return printer.Sprintf("$ %d", v)
}
